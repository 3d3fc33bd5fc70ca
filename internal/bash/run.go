package bash

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// RunBashScriptFromReader parses the whole script before running any of it,
// so a syntax error runs nothing.
func RunBashScriptFromReader(ctx context.Context, runner *interp.Runner, reader io.Reader, name string) error {
	prog, err := syntax.NewParser().Parse(reader, name)
	if err != nil {
		return err
	}
	return runner.Run(ctx, prog)
}

func RunBashScriptFromFile(ctx context.Context, runner *interp.Runner, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	return RunBashScriptFromReader(ctx, runner, file, filePath)
}

// RunBashCommand runs cmd in a subshell of runner and returns what it wrote
// to stdout and stderr. The parent shell's state is not modified.
func RunBashCommand(ctx context.Context, runner *interp.Runner, cmd string) (string, string, error) {
	subShell := runner.Subshell()

	var outBuf, errBuf bytes.Buffer
	if err := interp.StdIO(nil, &outBuf, &errBuf)(subShell); err != nil {
		return "", "", err
	}

	err := RunBashScriptFromReader(ctx, subShell, strings.NewReader(cmd), "compsh")
	return outBuf.String(), errBuf.String(), err
}
