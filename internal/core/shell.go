package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"unicode/utf8"

	"github.com/robottwo/compsh/internal/completion"
	"github.com/robottwo/compsh/internal/environment"
	"github.com/robottwo/compsh/internal/styles"
	"go.uber.org/zap"
	"golang.org/x/term"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const keyTab = '\t'

// RunInteractiveShell reads commands from the terminal until exit or EOF,
// completing the word under the cursor on Tab.
func RunInteractiveShell(
	ctx context.Context,
	runner *interp.Runner,
	provider *completion.ShellCompletionProvider,
	logger *zap.Logger,
) error {
	fd := int(os.Stdin.Fd())

	chanSIGINT := make(chan os.Signal, 1)
	signal.Notify(chanSIGINT, os.Interrupt)
	defer signal.Stop(chanSIGINT)
	// ignore SIGINT; the running command receives it
	go func() {
		for range chanSIGINT {
		}
	}()

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	terminal := term.NewTerminal(screen, environment.GetPrompt(runner))
	terminal.AutoCompleteCallback = func(line string, pos int, key rune) (string, int, bool) {
		if key != keyTab {
			return "", 0, false
		}
		return completeLine(ctx, provider, terminal, line, pos)
	}

	for {
		if width, height, err := term.GetSize(fd); err == nil {
			_ = terminal.SetSize(width, height)
		}
		terminal.SetPrompt(environment.GetPrompt(runner))

		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		line, err := terminal.ReadLine()
		_ = term.Restore(fd, oldState)

		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			logger.Error("error reading input", zap.Error(err))
			return err
		}

		logger.Debug("received command", zap.String("line", line))
		if strings.TrimSpace(line) == "" {
			continue
		}

		exited, err := executeCommand(ctx, line, runner, logger)
		if exited {
			logger.Debug("exiting...")
			return err
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, styles.ERROR("compsh: "+err.Error()))
		}
	}
}

// completeLine applies the completions for the word before pos. A single
// suggestion is inserted; several extend the word to their common prefix,
// or are listed when there is nothing to extend.
func completeLine(ctx context.Context, provider *completion.ShellCompletionProvider, terminal *term.Terminal, line string, pos int) (string, int, bool) {
	result := provider.GetCompletions(ctx, line, pos)
	if len(result.Suggestions) == 0 {
		return line, pos, true
	}

	replace := func(text string) (string, int, bool) {
		newLine := line[:result.Start] + text + line[result.End:]
		return newLine, result.Start + len(text), true
	}

	if len(result.Suggestions) == 1 {
		return replace(result.Suggestions[0].Text)
	}

	texts := make([]string, len(result.Suggestions))
	for i, s := range result.Suggestions {
		texts[i] = s.Text
	}
	if prefix := commonPrefix(texts); len(prefix) > result.End-result.Start {
		return replace(prefix)
	}

	var listing strings.Builder
	for _, s := range result.Suggestions {
		listing.WriteString(s.Display)
		if s.Description != "" {
			listing.WriteString(styles.PROMPT_HINT("  " + s.Description))
		}
		listing.WriteString("\n")
	}
	_, _ = terminal.Write([]byte(listing.String()))
	return line, pos, true
}

func commonPrefix(values []string) string {
	prefix := values[0]
	for _, v := range values[1:] {
		for !strings.HasPrefix(v, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

// executeCommand parses and runs one line. Once the shell has exited, the
// returned error carries the exit status; otherwise a non-zero status of the
// command is not an error.
func executeCommand(ctx context.Context, input string, runner *interp.Runner, logger *zap.Logger) (bool, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(input), "")
	if err != nil {
		logger.Debug("error parsing command", zap.String("command", input), zap.Error(err))
		return false, err
	}

	err = runner.Run(ctx, prog)
	if runner.Exited() {
		return true, err
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return false, nil
	}
	return false, err
}
