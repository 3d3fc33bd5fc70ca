package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robottwo/compsh/internal/bash"
	"github.com/robottwo/compsh/internal/completion"
	"github.com/robottwo/compsh/internal/config"
	"github.com/robottwo/compsh/internal/core"
	"github.com/robottwo/compsh/internal/environment"
	"github.com/robottwo/compsh/internal/store"
	"github.com/robottwo/compsh/internal/styles"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

var BUILD_VERSION = "dev"

var command = flag.String("c", "", "run a command")
var loginShell = flag.Bool("l", false, "run as a login shell")
var rcFile = flag.String("rcfile", "", "use a custom rc file instead of ~/.compshrc")
var strictConfig = flag.Bool("strict-config", false, "fail fast if configuration files contain errors (like bash 'set -e')")
var configPath = flag.String("config", "", "use a custom config file instead of ~/.config/compsh/config.yaml")
var completeLine = flag.String("complete", "", "print the completions for a command line and exit")
var initConfig = flag.Bool("init-config", false, "write a default config file and exit")

var helpFlag bool
var versionFlag bool

func init() {
	flag.BoolVar(&helpFlag, "h", false, "display help information")
	flag.BoolVar(&helpFlag, "help", false, "display help information")

	flag.BoolVar(&versionFlag, "v", false, "display build version")
	flag.BoolVar(&versionFlag, "version", false, "display build version")

	if err := zap.RegisterSink("zstd", newCompressedSink); err != nil {
		panic(fmt.Sprintf("failed to register zstd sink: %v", err))
	}
}

// main wires the completion manager into a shell interpreter. Specs come
// from, in order: the embedded defaults, the YAML files named in the config,
// the persisted store, and finally complete commands in rc files.
func main() {
	flag.Parse()

	if versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if helpFlag {
		printUsage()
		return
	}

	cfgFile := resolveConfigPath()
	if *initConfig {
		if err := writeDefaultConfig(cfgFile); err != nil {
			fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
			os.Exit(1)
		}
		fmt.Println(cfgFile)
		return
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
		os.Exit(1)
	}

	completionManager := completion.NewCompletionManager(nil)
	completionManager.SetSystemTables(completion.DefaultSystemTables(core.HomeDir()))
	specFiles := cfg.ResolveCompletionFiles(core.HomeDir(), cfgFile)
	if err := loadSpecFiles(completionManager, cfg, specFiles); err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
		os.Exit(1)
	}

	runner, err := newRunner(completionManager)
	if err != nil {
		panic(err)
	}

	var specStore *store.SpecStore
	if cfg.Persist {
		specStore, err = initializeSpecStore(runner)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to restore persisted completions: %v\n", err)
		} else {
			defer func() {
				if err := specStore.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to close completion store: %v\n", err)
				}
			}()
			completionManager.SetPersister(specStore)
		}
	}

	if err := loadRcFiles(runner); err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
		os.Exit(1)
	}

	logger, err := initializeLogger(runner, cfg)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	completionManager.SetLogger(logger)

	fields := []zap.Field{zap.Any("args", os.Args), zap.Int("specs", completionManager.Registry().Len())}
	if specStore != nil {
		fields = append(fields, zap.String("session", specStore.SessionID()))
	}
	logger.Info("-------- new compsh session --------", fields...)

	if cfg.Watch && len(specFiles) > 0 {
		watcher, err := completion.NewSpecWatcher(completionManager, specFiles, 0)
		if err != nil {
			logger.Warn("failed to watch completion files", zap.Error(err))
		} else {
			defer func() {
				_ = watcher.Close()
			}()
		}
	}

	err = run(runner, completionManager, logger)

	var status interp.ExitStatus
	if errors.As(err, &status) {
		os.Exit(int(status))
	}

	if err != nil {
		logger.Error("unhandled error", zap.Error(err))
		fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
		os.Exit(1)
	}
}

func run(runner *interp.Runner, completionManager *completion.CompletionManager, logger *zap.Logger) error {
	ctx := context.Background()
	provider := completion.NewShellCompletionProvider(completionManager)

	// compsh -complete "git che"
	if *completeLine != "" {
		result := provider.GetCompletions(ctx, *completeLine, len(*completeLine))
		for _, s := range result.Suggestions {
			fmt.Println(s.Text)
		}
		return nil
	}

	// compsh -c "complete -p"
	if *command != "" {
		return bash.RunBashScriptFromReader(ctx, runner, strings.NewReader(*command), "compsh")
	}

	// compsh
	if flag.NArg() == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return core.RunInteractiveShell(ctx, runner, provider, logger)
		}

		return bash.RunBashScriptFromReader(ctx, runner, os.Stdin, "compsh")
	}

	// compsh script.sh
	for _, filePath := range flag.Args() {
		if err := bash.RunBashScriptFromFile(ctx, runner, filePath); err != nil {
			return err
		}
	}

	return nil
}

func resolveConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	if p := os.Getenv("COMPSH_CONFIG"); p != "" {
		return p
	}
	return core.ConfigFile()
}

func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return config.Save(path, config.Config{
		CompletionFiles: []string{"completions.yaml"},
		Watch:           true,
		LogLevel:        "info",
	})
}

func loadSpecFiles(manager *completion.CompletionManager, cfg config.Config, files []string) error {
	if !cfg.NoDefaults {
		if err := manager.LoadDefaults(); err != nil {
			return fmt.Errorf("failed to load default completions: %w", err)
		}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := manager.LoadFile(f); err != nil {
			return err
		}
	}
	return nil
}

func printUsage() {
	fmt.Println(styles.HEADING("Usage:") + " compsh [flags] [script]")
	fmt.Println("\nA POSIX shell with bash-style programmable completion.")
	fmt.Println()

	fmt.Println(styles.HEADING("Options:"))

	// group aliases like -h and -help, which share a usage string
	printed := make(map[string]bool)

	flag.VisitAll(func(f *flag.Flag) {
		if printed[f.Name] {
			return
		}

		aliases := []string{f.Name}
		flag.VisitAll(func(p *flag.Flag) {
			if p.Name != f.Name && p.Usage == f.Usage {
				aliases = append(aliases, p.Name)
				printed[p.Name] = true
			}
		})
		printed[f.Name] = true

		var shortFlags, longFlags []string
		for _, name := range aliases {
			if len(name) == 1 {
				shortFlags = append(shortFlags, "-"+name)
			} else {
				longFlags = append(longFlags, "-"+name)
			}
		}
		flagStr := strings.Join(append(shortFlags, longFlags...), ", ")

		argName, usage := flag.UnquoteUsage(f)
		if argName != "" {
			flagStr += " <" + argName + ">"
		}

		fmt.Printf("  %-28s %s\n", flagStr, usage)
	})

	fmt.Println()
	fmt.Println(styles.HEADING("Completion:"))
	fmt.Printf("  %-28s %s\n", "complete -p", "List registered completion specs")
	fmt.Printf("  %-28s %s\n", "complete -W 'a b' cmd", "Complete cmd from a word list")
	fmt.Printf("  %-28s %s\n", "compgen -A file pre", "Print matches for a word")
	fmt.Printf("  %-28s %s\n", "<Tab>", "Complete the word under the cursor")
}

// initializeLogger honours COMPSH_LOG_LEVEL set in an rc file over the
// configured level. Development builds always log at debug.
func initializeLogger(runner *interp.Runner, cfg config.Config) (*zap.Logger, error) {
	logLevel := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logLevel.SetLevel(level)
	}
	if vr, ok := runner.Vars["COMPSH_LOG_LEVEL"]; ok && vr.IsSet() {
		logLevel = environment.GetLogLevel(runner)
	}
	if BUILD_VERSION == "dev" {
		logLevel.SetLevel(zap.DebugLevel)
	}

	if environment.ShouldCleanLogFile(runner) {
		_ = core.CleanLogFiles()
	} else {
		_ = core.RotateLogFiles()
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		"zstd://" + core.LogFile(),
	}
	return loggerConfig.Build()
}

// initializeSpecStore replays the persisted registrations into runner.
func initializeSpecStore(runner *interp.Runner) (*store.SpecStore, error) {
	specStore, err := store.NewSpecStore(core.StoreFile())
	if err != nil {
		return nil, err
	}

	lines, err := specStore.Lines()
	if err != nil {
		_ = specStore.Close()
		return nil, err
	}
	if len(lines) > 0 {
		script := strings.Join(lines, "\n") + "\n"
		if err := bash.RunBashScriptFromReader(context.Background(), runner, strings.NewReader(script), core.StoreFile()); err != nil {
			var status interp.ExitStatus
			if !errors.As(err, &status) {
				_ = specStore.Close()
				return nil, err
			}
		}
	}
	return specStore, nil
}

func newRunner(completionManager *completion.CompletionManager) (*interp.Runner, error) {
	shellPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	env := expand.ListEnviron(append(os.Environ(),
		"SHELL="+shellPath,
		"COMPSH_BUILD_VERSION="+BUILD_VERSION,
	)...)

	runner, err := interp.New(
		interp.Interactive(true),
		interp.Env(env),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.ExecHandlers(
			completion.NewCompleteCommandHandler(completionManager),
		),
	)
	if err != nil {
		return nil, err
	}

	completionManager.AttachRunner(runner, nil)
	return runner, nil
}

// loadRcFiles runs the rc files. Errors are reported and skipped unless
// -strict-config is set.
func loadRcFiles(runner *interp.Runner) error {
	var rcFiles []string
	if *rcFile != "" {
		rcFiles = []string{*rcFile}
	} else {
		rcFiles = []string{core.RcFile()}
		if *loginShell || strings.HasPrefix(os.Args[0], "-") {
			rcFiles = append([]string{
				"/etc/profile",
				filepath.Join(core.HomeDir(), ".compsh_profile"),
			}, rcFiles...)
		}
	}

	for _, f := range rcFiles {
		stat, err := os.Stat(f)
		if err != nil || stat.Size() == 0 {
			continue
		}
		if err := bash.RunBashScriptFromFile(context.Background(), runner, f); err != nil {
			var status interp.ExitStatus
			if errors.As(err, &status) && !runner.Exited() {
				continue
			}
			fmt.Fprintf(os.Stderr, "Configuration file %s contains errors: %v\n", f, err)
			if *strictConfig {
				return fmt.Errorf("aborting due to configuration error in %s: %w", f, err)
			}
		}
	}
	return nil
}
