package environment

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"mvdan.cc/sh/v3/interp"
)

const defaultPrompt = "compsh$ "

// IsTruthy reports whether a shell variable is set to 1, true, yes or on.
func IsTruthy(runner *interp.Runner, name string) bool {
	val := strings.ToLower(strings.TrimSpace(runner.Vars[name].String()))
	return val == "1" || val == "true" || val == "yes" || val == "on"
}

// GetLogLevel reads COMPSH_LOG_LEVEL, falling back to info for unset or
// unrecognized values.
func GetLogLevel(runner *interp.Runner) zap.AtomicLevel {
	level, err := zapcore.ParseLevel(runner.Vars["COMPSH_LOG_LEVEL"].String())
	if err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zap.NewAtomicLevelAt(level)
}

// ShouldCleanLogFile checks COMPSH_CLEAN_LOG_FILE
func ShouldCleanLogFile(runner *interp.Runner) bool {
	return IsTruthy(runner, "COMPSH_CLEAN_LOG_FILE")
}

// GetPrompt returns COMPSH_PROMPT, or a default prompt when it is unset.
func GetPrompt(runner *interp.Runner) string {
	if vr, ok := runner.Vars["COMPSH_PROMPT"]; ok && vr.IsSet() {
		return vr.String()
	}
	return defaultPrompt
}
