package completion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

func TestRunnerEnvironment(t *testing.T) {
	runner, err := interp.New(
		interp.Env(expand.ListEnviron("HOME=/home/test", "PATH=/bin")),
		interp.StdIO(nil, nil, nil),
	)
	require.NoError(t, err)

	file, err := syntax.NewParser().Parse(strings.NewReader(`
shopt -s expand_aliases
alias ll='ls -l'
alias gs='git status'
greet() { echo hi; }
plain=1
export EXPORTED=yes
list=(a b)
`), "setup")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), file))

	env := &RunnerEnvironment{
		Runner:          runner,
		HandledBuiltins: []string{"complete"},
		JobSource:       func() []Job { return []Job{{ID: 1, Command: "sleep 10"}} },
	}

	assert.Equal(t, "/home/test", env.Getenv("HOME"))
	assert.Equal(t, "1", env.Getenv("plain"))
	assert.Equal(t, "", env.Getenv("UNSET_VARIABLE"))
	assert.Equal(t, runner.Dir, env.Dir())

	assert.Equal(t, []string{"gs", "ll"}, env.Aliases())
	assert.Equal(t, []string{"greet"}, env.Functions())
	assert.Equal(t, []Job{{ID: 1, Command: "sleep 10"}}, env.Jobs())

	vars := make(map[string]Variable)
	for _, v := range env.Variables() {
		vars[v.Name] = v
	}
	assert.True(t, vars["EXPORTED"].Exported)
	assert.False(t, vars["plain"].Exported)
	assert.True(t, vars["list"].Array)
	assert.Contains(t, vars, "HOME")

	builtins := make(map[string]bool)
	for _, b := range env.Builtins() {
		builtins[b.Name] = b.Enabled
	}
	assert.True(t, builtins["cd"])
	assert.True(t, builtins["complete"])
	assert.False(t, builtins["compopt"])

	assert.Contains(t, env.SetOptions(), "errexit")
	assert.Contains(t, env.ShoptOptions(), "globstar")
}

func TestRunnerEnvironmentWithScope(t *testing.T) {
	var runner *interp.Runner
	var captured []Variable
	var value, dir string
	handler := func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if args[0] != "probe" {
				return next(ctx, args)
			}
			scoped := (&RunnerEnvironment{Runner: runner}).WithScope(interp.HandlerCtx(ctx))
			captured = scoped.Variables()
			value = scoped.Getenv("FRESH")
			dir = scoped.Dir()
			return nil
		}
	}
	runner, err := interp.New(interp.StdIO(nil, nil, nil), interp.ExecHandlers(handler))
	require.NoError(t, err)

	file, err := syntax.NewParser().Parse(strings.NewReader("FRESH=now\nprobe"), "scope")
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), file))

	assert.Equal(t, "now", value)
	assert.Equal(t, runner.Dir, dir)
	names := make([]string, len(captured))
	for i, v := range captured {
		names[i] = v.Name
	}
	assert.Contains(t, names, "FRESH")
}

func TestSnapshotDefaultsToWorkingDirectory(t *testing.T) {
	s := &Snapshot{}
	assert.NotEmpty(t, s.Dir())
	assert.Empty(t, s.Getenv("ANY"))
}
