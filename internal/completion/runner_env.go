package completion

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/robottwo/compsh/internal/bash"
	"github.com/samber/lo"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

// RunnerEnvironment reads completion tables from a live interpreter.
type RunnerEnvironment struct {
	Runner *interp.Runner
	// HandledBuiltins are commands implemented by exec handlers rather than
	// the interpreter, reported as enabled builtins.
	HandledBuiltins []string
	// JobSource supplies the job table; nil means no job control.
	JobSource func() []Job
	// Scope, when set, supplies variables and the working directory instead
	// of the runner. Exec handlers set it from interp.HandlerCtx because
	// Runner.Vars is only refreshed once a Run returns.
	Scope *interp.HandlerContext
}

var _ Environment = (*RunnerEnvironment)(nil)

var aliasLine = regexp.MustCompile(`^alias ([^=\s]+)=`)

// WithScope returns a copy of e reading variables from hc.
func (e *RunnerEnvironment) WithScope(hc interp.HandlerContext) *RunnerEnvironment {
	scoped := *e
	scoped.Scope = &hc
	return &scoped
}

func (e *RunnerEnvironment) Dir() string {
	if e.Scope != nil {
		return e.Scope.Dir
	}
	return e.Runner.Dir
}

func (e *RunnerEnvironment) Getenv(name string) string {
	if e.Scope != nil {
		return e.Scope.Env.Get(name).String()
	}
	if vr, ok := e.Runner.Vars[name]; ok && vr.IsSet() {
		return vr.String()
	}
	if e.Runner.Env != nil {
		return e.Runner.Env.Get(name).String()
	}
	return ""
}

// Variables merges the initial environment with the variables the shell has
// set since.
func (e *RunnerEnvironment) Variables() []Variable {
	merged := make(map[string]expand.Variable)
	if e.Scope != nil {
		e.Scope.Env.Each(func(name string, vr expand.Variable) bool {
			merged[name] = vr
			return true
		})
	} else if e.Runner.Env != nil {
		e.Runner.Env.Each(func(name string, vr expand.Variable) bool {
			merged[name] = vr
			return true
		})
	}
	if e.Scope == nil {
		for name, vr := range e.Runner.Vars {
			merged[name] = vr
		}
	}

	vars := make([]Variable, 0, len(merged))
	for name, vr := range merged {
		if !vr.IsSet() {
			continue
		}
		vars = append(vars, Variable{
			Name:     name,
			Exported: vr.Exported,
			Array:    vr.Kind == expand.Indexed || vr.Kind == expand.Associative,
		})
	}
	slices.SortFunc(vars, func(a, b Variable) int { return strings.Compare(a.Name, b.Name) })
	return vars
}

func (e *RunnerEnvironment) Functions() []string {
	names := lo.Keys(e.Runner.Funcs)
	slices.Sort(names)
	return names
}

// Aliases lists alias names by running the alias builtin in a subshell, since
// the interpreter keeps its alias table private.
func (e *RunnerEnvironment) Aliases() []string {
	out, _, err := bash.RunBashCommand(context.Background(), e.Runner, "alias")
	if err != nil {
		return nil
	}

	var names []string
	for _, line := range strings.Split(out, "\n") {
		if m := aliasLine.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	slices.Sort(names)
	return names
}

func (e *RunnerEnvironment) Jobs() []Job {
	if e.JobSource == nil {
		return nil
	}
	return e.JobSource()
}

// Builtins reports the bash builtin table, marking as enabled the ones this
// interpreter or its exec handlers implement.
func (e *RunnerEnvironment) Builtins() []Builtin {
	builtins := make([]Builtin, 0, len(shellBuiltins))
	for _, name := range shellBuiltins {
		builtins = append(builtins, Builtin{
			Name:    name,
			Enabled: interp.IsBuiltin(name) || slices.Contains(e.HandledBuiltins, name),
		})
	}
	return builtins
}

func (e *RunnerEnvironment) SetOptions() []string {
	return slices.Clone(setOptions)
}

func (e *RunnerEnvironment) ShoptOptions() []string {
	return slices.Clone(shoptOptions)
}
