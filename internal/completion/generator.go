package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/pattern"
	"mvdan.cc/sh/v3/syntax"
)

// ErrNoInvoker is reported when a spec names -F or -C but the generator has
// no way to run functions or commands.
var ErrNoInvoker = errors.New("no function or command runner configured")

// Request describes one completion attempt.
type Request struct {
	// Command is the command name whose spec applies.
	Command string
	// Word is the partial word being completed.
	Word string
	// PrevWord is the word before Word.
	PrevWord string
	// Words are all words of the command line; Words[WordIndex] is Word.
	Words []string
	// WordIndex is the position of Word; 0 is the command name itself.
	WordIndex int
	// Line and Point are the full line and cursor byte offset.
	Line  string
	Point int
}

// Fallback tells the front end what to do beyond the returned candidates.
type Fallback int

const (
	// FallbackNone means the candidates are the complete answer.
	FallbackNone Fallback = iota
	// FallbackFilenames means no spec applies; complete filenames.
	FallbackFilenames
	// FallbackCommandNames means the word is in command position.
	FallbackCommandNames
	// FallbackDefault means the spec produced nothing and asked for the
	// line editor's default completion (-o default).
	FallbackDefault
	// FallbackBashDefault means the spec produced nothing and asked for the
	// shell's default completion (-o bashdefault).
	FallbackBashDefault
)

func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackFilenames:
		return "filenames"
	case FallbackCommandNames:
		return "commands"
	case FallbackDefault:
		return "default"
	case FallbackBashDefault:
		return "bashdefault"
	}
	return fmt.Sprintf("Fallback(%d)", int(f))
}

// Result is the outcome of a completion attempt.
type Result struct {
	Candidates []Candidate
	// Options are the spec's -o flags for the front end to apply.
	Options  OptionSet
	Fallback Fallback
	// Diagnostics collects source failures. They never abort generation.
	Diagnostics []error
}

// Values returns the candidate strings.
func (r Result) Values() []string {
	return lo.Map(r.Candidates, func(c Candidate, _ int) string { return c.Value })
}

// SourceError reports a -F or -C source that failed during generation.
type SourceError struct {
	Source string
	Name   string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Name, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// SourceInvoker runs the function and command sources of a spec.
type SourceInvoker interface {
	CallFunction(ctx context.Context, name string, req Request) ([]Candidate, error)
	RunCommand(ctx context.Context, command string, req Request) ([]Candidate, error)
}

// Generator produces candidates for a command from its registered spec.
type Generator struct {
	registry *Registry
	catalog  *Catalog
	env      Environment
	system   *SystemTables
	invoker  SourceInvoker
	logger   *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCatalog replaces the action catalog.
func WithCatalog(c *Catalog) GeneratorOption {
	return func(g *Generator) { g.catalog = c }
}

// WithSystemTables sets where host databases are read from.
func WithSystemTables(t *SystemTables) GeneratorOption {
	return func(g *Generator) { g.system = t }
}

// WithInvoker sets the runner for -F and -C sources.
func WithInvoker(inv SourceInvoker) GeneratorOption {
	return func(g *Generator) { g.invoker = inv }
}

// WithGeneratorLogger sets the logger for source diagnostics.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator reading specs from registry and tables
// from env.
func NewGenerator(registry *Registry, env Environment, opts ...GeneratorOption) *Generator {
	g := &Generator{
		registry: registry,
		catalog:  NewCatalog(),
		env:      env,
		system:   &SystemTables{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.env == nil {
		g.env = &Snapshot{}
	}
	return g
}

// Generate completes req using the spec registered for req.Command, or the
// default spec. Without a spec the result asks for filename completion.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	if req.WordIndex == 0 {
		return Result{Fallback: FallbackCommandNames}
	}

	spec, ok := g.registry.Lookup(req.Command)
	if !ok {
		return Result{Fallback: FallbackFilenames}
	}
	return g.GenerateFromSpec(ctx, spec, req)
}

// GenerateFromSpec completes req against spec directly.
func (g *Generator) GenerateFromSpec(ctx context.Context, spec CompletionSpec, req Request) Result {
	res := Result{Options: spec.Options}

	wantDirs := spec.Options.Has(OptionDirNames) || spec.Options.Has(OptionPlusDirs)
	if !spec.HasSources() && !wantDirs {
		res.Fallback = FallbackFilenames
		return res
	}

	candidates := g.collect(ctx, spec, req, &res)

	if spec.Filter != nil {
		filtered, err := applyFilter(candidates, *spec.Filter, req.Word)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Errorf("filter %q: %w", *spec.Filter, err))
		} else {
			candidates = filtered
		}
	}

	candidates = lo.Filter(candidates, func(c Candidate, _ int) bool {
		return strings.HasPrefix(c.Value, req.Word)
	})

	prefix, suffix := deref(spec.Prefix), deref(spec.Suffix)
	if prefix != "" || suffix != "" {
		candidates = lo.Map(candidates, func(c Candidate, _ int) Candidate {
			c.Value = prefix + c.Value + suffix
			return c
		})
	}

	if spec.Options.Has(OptionPlusDirs) || (spec.Options.Has(OptionDirNames) && len(candidates) == 0) {
		dirs := g.catalog.Generate(ActionDirectory, g.actionContext(req.Word))
		candidates = append(candidates, toCandidates(dirs)...)
	}

	candidates = lo.UniqBy(candidates, func(c Candidate) string { return c.Value })
	if !spec.Options.Has(OptionNoSort) {
		slices.SortStableFunc(candidates, func(a, b Candidate) int {
			return strings.Compare(a.Value, b.Value)
		})
	}
	res.Candidates = candidates

	if len(candidates) == 0 {
		switch {
		case spec.Options.Has(OptionBashDefault):
			res.Fallback = FallbackBashDefault
		case spec.Options.Has(OptionDefault):
			res.Fallback = FallbackDefault
		}
	}

	for _, err := range res.Diagnostics {
		g.logger.Warn("completion source failed",
			zap.String("command", req.Command),
			zap.Error(err))
	}

	return res
}

// collect gathers raw candidates in source order: word list, glob pattern,
// actions in registration order, function, command.
func (g *Generator) collect(ctx context.Context, spec CompletionSpec, req Request, res *Result) []Candidate {
	var candidates []Candidate

	if spec.WordList != nil {
		words, errs := ExpandWords(*spec.WordList, g.env.Getenv, g.cmdSubst(ctx))
		for _, err := range errs {
			res.Diagnostics = append(res.Diagnostics, fmt.Errorf("word list: %w", err))
		}
		candidates = append(candidates, toCandidates(words)...)
	}

	if spec.GlobPattern != nil {
		matches, err := expandGlob(g.env.Dir(), *spec.GlobPattern)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Errorf("glob %q: %w", *spec.GlobPattern, err))
		}
		candidates = append(candidates, toCandidates(matches)...)
	}

	actx := g.actionContext(req.Word)
	for _, kind := range spec.Actions.Ordered() {
		candidates = append(candidates, toCandidates(g.catalog.Generate(kind, actx))...)
	}

	if spec.Function != nil {
		candidates = append(candidates, g.invoke(ctx, "function", *spec.Function, req, res, func(inv SourceInvoker) ([]Candidate, error) {
			return inv.CallFunction(ctx, *spec.Function, req)
		})...)
	}

	if spec.Command != nil {
		candidates = append(candidates, g.invoke(ctx, "command", *spec.Command, req, res, func(inv SourceInvoker) ([]Candidate, error) {
			return inv.RunCommand(ctx, *spec.Command, req)
		})...)
	}

	return candidates
}

func (g *Generator) invoke(ctx context.Context, source, name string, req Request, res *Result, call func(SourceInvoker) ([]Candidate, error)) []Candidate {
	if g.invoker == nil {
		res.Diagnostics = append(res.Diagnostics, &SourceError{Source: source, Name: name, Err: ErrNoInvoker})
		return nil
	}
	out, err := call(g.invoker)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, &SourceError{Source: source, Name: name, Err: err})
		return nil
	}
	return out
}

// CommandSubstituter is implemented by invokers that can run the $(...)
// substitutions of a -W word list.
type CommandSubstituter interface {
	CommandSubst(ctx context.Context) func(io.Writer, *syntax.CmdSubst) error
}

func (g *Generator) cmdSubst(ctx context.Context) func(io.Writer, *syntax.CmdSubst) error {
	if sub, ok := g.invoker.(CommandSubstituter); ok {
		return sub.CommandSubst(ctx)
	}
	return nil
}

func (g *Generator) actionContext(word string) ActionContext {
	return ActionContext{Word: word, Env: g.env, System: g.system}
}

func toCandidates(values []string) []Candidate {
	return lo.Map(values, func(v string, _ int) Candidate { return Candidate{Value: v} })
}

// expandGlob expands a -G pattern relative to dir. Patterns may use ** to
// match across directories.
func expandGlob(dir, pat string) ([]string, error) {
	if filepath.IsAbs(pat) {
		return doublestar.FilepathGlob(pat)
	}

	rel, hadDot := strings.CutPrefix(pat, "./")
	matches, err := doublestar.Glob(os.DirFS(dir), rel)
	if err != nil {
		return nil, err
	}
	if hadDot {
		for i, m := range matches {
			matches[i] = "./" + m
		}
	}
	return matches, nil
}

// applyFilter implements -X: candidates matching pat are removed, or with a
// leading ! only matching candidates are kept. An unescaped & in pat stands
// for the word being completed.
func applyFilter(candidates []Candidate, pat, word string) ([]Candidate, error) {
	keepMatches := false
	if rest, ok := strings.CutPrefix(pat, "!"); ok {
		keepMatches = true
		pat = rest
	}

	re, err := compileFilter(pat, word)
	if err != nil {
		return nil, err
	}

	return lo.Filter(candidates, func(c Candidate, _ int) bool {
		return re.MatchString(c.Value) == keepMatches
	}), nil
}

func compileFilter(pat, word string) (*regexp.Regexp, error) {
	var b strings.Builder
	for i := 0; i < len(pat); i++ {
		switch {
		case pat[i] == '\\' && i+1 < len(pat) && pat[i+1] == '&':
			b.WriteString(`\&`)
			i++
		case pat[i] == '&':
			b.WriteString(pattern.QuoteMeta(word, 0))
		default:
			b.WriteByte(pat[i])
		}
	}

	expr, err := pattern.Regexp(b.String(), 0)
	if err != nil {
		return nil, err
	}
	return regexp.Compile("^(?:" + expr + ")$")
}
