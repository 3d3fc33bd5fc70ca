package completion

import (
	"errors"
	"strings"
)

// ErrNotComplete is returned by ParseLine for a line that is not a complete
// invocation.
var ErrNotComplete = errors.New("not a complete command")

// Registration is a parsed complete line.
type Registration struct {
	Names   []string
	Default bool
	Spec    CompletionSpec
}

// Render prints spec as a complete command line registering it for name.
// Options and actions are sorted by name, value flags follow in a fixed
// order, and values are quoted only when the shell would otherwise split or
// expand them.
func Render(name string, spec CompletionSpec) string {
	parts := renderFlags(spec)
	if strings.HasPrefix(name, "-") {
		parts = append(parts, "--")
	}
	parts = append(parts, Quote(name))
	return strings.Join(parts, " ")
}

// RenderDefault prints spec as a complete -D line.
func RenderDefault(spec CompletionSpec) string {
	return strings.Join(append(renderFlags(spec), "-D"), " ")
}

func renderFlags(spec CompletionSpec) []string {
	parts := []string{"complete"}
	for _, o := range spec.Options.Sorted() {
		parts = append(parts, "-o", o.String())
	}
	for _, a := range spec.Actions.Sorted() {
		parts = append(parts, "-A", a.String())
	}
	for _, f := range valueFlags {
		if v := *f.field(&spec); v != nil {
			parts = append(parts, "-"+string(f.letter), Quote(*v))
		}
	}
	return parts
}

// RenderAll prints every registration of r, the default spec first and then
// each command in registration order.
func RenderAll(r *Registry) []string {
	var lines []string
	if spec, ok := r.Default(); ok {
		lines = append(lines, RenderDefault(spec))
	}
	for _, e := range r.List() {
		lines = append(lines, Render(e.Name, e.Spec))
	}
	return lines
}

// ParseLine parses a line produced by Render or RenderDefault. Words are
// split with shell quoting rules; no variables are expanded.
func ParseLine(line string) (Registration, error) {
	words, err := SplitWords(line, nil)
	if err != nil {
		return Registration{}, err
	}
	if len(words) == 0 || words[0] != "complete" {
		return Registration{}, ErrNotComplete
	}

	inv, err := parseArgs("complete", words[1:], true)
	if err != nil {
		return Registration{}, err
	}
	if inv.print || inv.remove || inv.help || inv.spec.IsEmpty() {
		return Registration{}, ErrNotComplete
	}
	return Registration{Names: inv.names, Default: inv.defaultSpec, Spec: inv.spec}, nil
}
