package completion

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/interp"
)

// ErrNoSpec is reported for a name that has no completion specification.
var ErrNoSpec = errors.New("no completion specification")

// Exit statuses of the complete and compgen builtins.
const (
	exitMiss  = 1
	exitUsage = 2
)

// Persister records registrations so a later session can replay them. The
// key is the command name, or "" for the default spec; line is a complete
// command that recreates the registration.
type Persister interface {
	SaveSpec(key, line string) error
	DeleteSpec(key string) error
	DeleteAll() error
}

// CompletionManager owns the registry of one shell session together with
// everything needed to generate candidates from it.
type CompletionManager struct {
	registry  *Registry
	catalog   *Catalog
	system    *SystemTables
	env       Environment
	invoker   SourceInvoker
	persister Persister
	logger    *zap.Logger
}

// NewCompletionManager creates a manager with an empty registry. A nil
// logger discards output.
func NewCompletionManager(logger *zap.Logger) *CompletionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionManager{
		registry: NewRegistry(),
		catalog:  NewCatalog(),
		system:   &SystemTables{},
		env:      &Snapshot{},
		logger:   logger,
	}
}

func (m *CompletionManager) Registry() *Registry {
	return m.registry
}

// AttachRunner makes the manager read shell state from runner and run -F and
// -C sources in its subshells.
func (m *CompletionManager) AttachRunner(runner *interp.Runner, jobs func() []Job) {
	m.env = &RunnerEnvironment{
		Runner:          runner,
		HandledBuiltins: []string{"complete", "compgen"},
		JobSource:       jobs,
	}
	m.invoker = &RunnerInvoker{Runner: runner}
}

func (m *CompletionManager) SetEnvironment(env Environment) {
	m.env = env
}

func (m *CompletionManager) SetInvoker(inv SourceInvoker) {
	m.invoker = inv
}

func (m *CompletionManager) SetSystemTables(t *SystemTables) {
	m.system = t
}

func (m *CompletionManager) SetPersister(p Persister) {
	m.persister = p
}

// SetLogger replaces the logger. Watchers created earlier keep the old one.
func (m *CompletionManager) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m.logger = logger
}

// Generator returns a generator over the manager's registry and environment.
func (m *CompletionManager) Generator() *Generator {
	return m.generatorFor(m.env)
}

func (m *CompletionManager) generatorFor(env Environment) *Generator {
	opts := []GeneratorOption{
		WithCatalog(m.catalog),
		WithSystemTables(m.system),
		WithGeneratorLogger(m.logger),
	}
	if m.invoker != nil {
		opts = append(opts, WithInvoker(m.invoker))
	}
	return NewGenerator(m.registry, env, opts...)
}

// scopedEnv narrows a runner-backed environment to the variables visible to
// the running builtin.
func (m *CompletionManager) scopedEnv(ctx context.Context) Environment {
	if re, ok := m.env.(*RunnerEnvironment); ok {
		return re.WithScope(interp.HandlerCtx(ctx))
	}
	return m.env
}

// NewCompleteCommandHandler creates a new ExecHandler for the complete and
// compgen commands
func NewCompleteCommandHandler(manager *CompletionManager) func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return next(ctx, args)
			}

			switch args[0] {
			case "complete":
				return manager.runComplete(ctx, args[1:])
			case "compgen":
				return manager.runCompgen(ctx, args[1:])
			}
			return next(ctx, args)
		}
	}
}

func (m *CompletionManager) runComplete(ctx context.Context, args []string) error {
	hc := interp.HandlerCtx(ctx)

	inv, err := parseArgs("complete", args, true)
	if err != nil {
		fmt.Fprintf(hc.Stderr, "complete: %v\n", err)
		return interp.ExitStatus(exitUsage)
	}
	if inv.help {
		fmt.Fprintln(hc.Stdout, completeUsage)
		return nil
	}

	var misses int
	switch {
	case inv.remove:
		misses = m.remove(hc.Stderr, inv)
	case inv.print || inv.spec.IsEmpty():
		misses = m.print(hc.Stdout, hc.Stderr, inv)
	default:
		m.register(inv)
	}

	if misses > 0 {
		return interp.ExitStatus(exitMiss)
	}
	return nil
}

func (m *CompletionManager) register(inv invocation) {
	if inv.defaultSpec || len(inv.names) == 0 {
		spec := m.registry.MergeDefault(inv.spec)
		m.persist("", RenderDefault(spec))
	}
	for _, name := range inv.names {
		spec := m.registry.Merge(name, inv.spec)
		m.persist(name, Render(name, spec))
	}
}

func (m *CompletionManager) print(stdout, stderr io.Writer, inv invocation) int {
	if !inv.defaultSpec && len(inv.names) == 0 {
		for _, line := range RenderAll(m.registry) {
			fmt.Fprintln(stdout, line)
		}
		return 0
	}

	var misses int
	if inv.defaultSpec {
		if spec, ok := m.registry.Default(); ok {
			fmt.Fprintln(stdout, RenderDefault(spec))
		} else {
			reportMiss(stderr, "-D")
			misses++
		}
	}
	for _, name := range inv.names {
		spec, ok := m.registry.Get(name)
		if !ok {
			reportMiss(stderr, name)
			misses++
			continue
		}
		fmt.Fprintln(stdout, Render(name, spec))
	}
	return misses
}

func (m *CompletionManager) remove(stderr io.Writer, inv invocation) int {
	if !inv.defaultSpec && len(inv.names) == 0 {
		m.registry.RemoveAll()
		if m.persister != nil {
			if err := m.persister.DeleteAll(); err != nil {
				m.logger.Warn("failed to clear persisted completions", zap.Error(err))
			}
		}
		return 0
	}

	var misses int
	if inv.defaultSpec {
		if m.registry.RemoveDefault() {
			m.unpersist("")
		} else {
			reportMiss(stderr, "-D")
			misses++
		}
	}
	for _, name := range inv.names {
		if !m.registry.Remove(name) {
			reportMiss(stderr, name)
			misses++
			continue
		}
		m.unpersist(name)
	}
	return misses
}

func reportMiss(w io.Writer, name string) {
	fmt.Fprintf(w, "complete: %v\n", fmt.Errorf("%s: %w", name, ErrNoSpec))
}

func (m *CompletionManager) persist(key, line string) {
	if m.persister == nil {
		return
	}
	if err := m.persister.SaveSpec(key, line); err != nil {
		m.logger.Warn("failed to persist completion", zap.String("command", key), zap.Error(err))
	}
}

func (m *CompletionManager) unpersist(key string) {
	if m.persister == nil {
		return
	}
	if err := m.persister.DeleteSpec(key); err != nil {
		m.logger.Warn("failed to delete persisted completion", zap.String("command", key), zap.Error(err))
	}
}

func (m *CompletionManager) runCompgen(ctx context.Context, args []string) error {
	hc := interp.HandlerCtx(ctx)

	inv, err := parseArgs("compgen", args, false)
	if err != nil {
		fmt.Fprintf(hc.Stderr, "compgen: %v\n", err)
		return interp.ExitStatus(exitUsage)
	}
	if inv.help {
		fmt.Fprintln(hc.Stdout, compgenUsage)
		return nil
	}
	if len(inv.names) > 1 {
		fmt.Fprintf(hc.Stderr, "compgen: %v\n", newUsageError("compgen", "too many arguments"))
		return interp.ExitStatus(exitUsage)
	}

	word := ""
	if len(inv.names) == 1 {
		word = inv.names[0]
	}
	req := Request{
		Command:   "compgen",
		Word:      word,
		Words:     []string{"compgen", word},
		WordIndex: 1,
		Line:      "compgen " + word,
		Point:     len("compgen ") + len(word),
	}

	res := m.generatorFor(m.scopedEnv(ctx)).GenerateFromSpec(ctx, inv.spec, req)
	for _, v := range res.Values() {
		fmt.Fprintln(hc.Stdout, v)
	}
	if len(res.Candidates) == 0 {
		return interp.ExitStatus(exitMiss)
	}
	return nil
}
