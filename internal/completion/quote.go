package completion

import (
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// Quote returns s in a form the shell reads back as exactly one word equal to
// s. Words without special characters are returned unchanged.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return q
}

// SplitWords splits src with shell quoting and word-splitting rules,
// expanding parameters through getenv. A nil getenv expands every parameter
// to the empty string.
func SplitWords(src string, getenv func(string) string) ([]string, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return shell.Fields(src, getenv)
}

// ExpandWords is SplitWords for -W lists: each word is expanded on its own, so
// a word that fails to expand is reported and skipped while the rest are
// kept. Command substitutions run through cmdSubst; with a nil cmdSubst they
// fail. A syntax error in src expands nothing.
func ExpandWords(src string, getenv func(string) string, cmdSubst func(io.Writer, *syntax.CmdSubst) error) ([]string, []error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	var words []*syntax.Word
	for w, err := range syntax.NewParser().WordsSeq(strings.NewReader(src)) {
		if err != nil {
			return nil, []error{err}
		}
		words = append(words, w)
	}

	cfg := &expand.Config{Env: expand.FuncEnviron(getenv), CmdSubst: cmdSubst}
	var (
		fields []string
		errs   []error
	)
	for _, w := range words {
		expanded, err := expand.Fields(cfg, w)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", wordSource(src, w), err))
			continue
		}
		fields = append(fields, expanded...)
	}
	return fields, errs
}

func wordSource(src string, w *syntax.Word) string {
	start, end := int(w.Pos().Offset()), int(w.End().Offset())
	if start < 0 || end > len(src) || start > end {
		return "word"
	}
	return src[start:end]
}
