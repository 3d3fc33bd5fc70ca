package completion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrFunctionNotFound is returned when a -F function is not defined.
var ErrFunctionNotFound = errors.New("function not defined")

// RunnerInvoker runs -F functions and -C commands in subshells of an
// interpreter, so a failing source cannot disturb the parent shell state.
type RunnerInvoker struct {
	Runner *interp.Runner
}

var (
	_ SourceInvoker      = (*RunnerInvoker)(nil)
	_ CommandSubstituter = (*RunnerInvoker)(nil)
)

// CallFunction calls name with the command, current word and previous word
// as arguments and COMP_LINE, COMP_POINT, COMP_WORDS and COMP_CWORD set, then
// reads the candidates back from COMPREPLY. The function's exit status is
// ignored.
func (i *RunnerInvoker) CallFunction(ctx context.Context, name string, req Request) ([]Candidate, error) {
	if _, ok := i.Runner.Funcs[name]; !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrFunctionNotFound)
	}

	words := make([]string, len(req.Words))
	for n, w := range req.Words {
		words[n] = Quote(w)
	}

	var script strings.Builder
	fmt.Fprintf(&script, "COMP_LINE=%s\n", Quote(req.Line))
	fmt.Fprintf(&script, "COMP_POINT=%d\n", req.Point)
	fmt.Fprintf(&script, "COMP_CWORD=%d\n", req.WordIndex)
	fmt.Fprintf(&script, "COMP_WORDS=(%s)\n", strings.Join(words, " "))
	script.WriteString("COMPREPLY=()\n")
	fmt.Fprintf(&script, "%s %s %s %s\n", Quote(name), Quote(req.Command), Quote(req.Word), Quote(req.PrevWord))

	sub, _, _, err := i.run(ctx, script.String())
	if err != nil {
		if _, isStatus := exitStatus(err); !isStatus {
			return nil, err
		}
	}

	reply := sub.Vars["COMPREPLY"]
	var values []string
	switch reply.Kind {
	case expand.Indexed:
		values = reply.List
	case expand.Associative:
		for _, v := range reply.Map {
			values = append(values, v)
		}
	case expand.String:
		if reply.Str != "" {
			values = []string{reply.Str}
		}
	}
	return toCandidates(values), nil
}

// RunCommand runs command with the command name, current word and previous
// word appended as arguments, COMP_LINE and COMP_POINT exported, and parses
// its standard output. A non-zero exit status is a failure.
func (i *RunnerInvoker) RunCommand(ctx context.Context, command string, req Request) ([]Candidate, error) {
	var script strings.Builder
	fmt.Fprintf(&script, "export COMP_LINE=%s COMP_POINT=%d\n", Quote(req.Line), req.Point)
	fmt.Fprintf(&script, "%s %s %s %s\n", command, Quote(req.Command), Quote(req.Word), Quote(req.PrevWord))

	_, stdout, stderr, err := i.run(ctx, script.String())
	if err != nil {
		if code, isStatus := exitStatus(err); isStatus {
			msg := strings.TrimSpace(stderr)
			if msg == "" {
				msg = "exit status " + strconv.Itoa(int(code))
			}
			return nil, errors.New(msg)
		}
		return nil, err
	}
	return ParseExternalCompletionOutput(stdout)
}

// CommandSubst runs each substitution in a fresh subshell with its standard
// output captured. As in the shell, the exit status is ignored.
func (i *RunnerInvoker) CommandSubst(ctx context.Context) func(io.Writer, *syntax.CmdSubst) error {
	return func(w io.Writer, cs *syntax.CmdSubst) error {
		sub := i.Runner.Subshell()
		if err := interp.StdIO(nil, w, io.Discard)(sub); err != nil {
			return err
		}
		err := sub.Run(ctx, &syntax.File{Stmts: cs.Stmts})
		if _, isStatus := exitStatus(err); isStatus {
			return nil
		}
		return err
	}
}

func (i *RunnerInvoker) run(ctx context.Context, script string) (*interp.Runner, string, string, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(script), "complete")
	if err != nil {
		return nil, "", "", fmt.Errorf("parse: %w", err)
	}

	sub := i.Runner.Subshell()
	var stdout, stderr bytes.Buffer
	if err := interp.StdIO(nil, &stdout, &stderr)(sub); err != nil {
		return nil, "", "", err
	}

	err = sub.Run(ctx, file)
	return sub, stdout.String(), stderr.String(), err
}

func exitStatus(err error) (uint8, bool) {
	var es interp.ExitStatus
	if errors.As(err, &es) {
		return uint8(es), true
	}
	return 0, false
}
