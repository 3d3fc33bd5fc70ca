package completion

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Suggestion is one completion ready to be inserted in place of the word
// under the cursor.
type Suggestion struct {
	// Text replaces the word, including any quoting and trailing space.
	Text string
	// Display is the bare candidate for listing.
	Display     string
	Description string
}

// Completions is the answer for one line and cursor position. Suggestions
// replace line[Start:End].
type Completions struct {
	Start       int
	End         int
	Suggestions []Suggestion
}

// ShellCompletionProvider adapts the generator to a line editor: it splits
// the line, picks the command and word under the cursor, and turns candidates
// into insertable text.
type ShellCompletionProvider struct {
	manager *CompletionManager
}

func NewShellCompletionProvider(manager *CompletionManager) *ShellCompletionProvider {
	return &ShellCompletionProvider{manager: manager}
}

// GetCompletions completes the word ending at point in line.
func (p *ShellCompletionProvider) GetCompletions(ctx context.Context, line string, point int) Completions {
	if point < 0 || point > len(line) {
		point = len(line)
	}

	words := splitLine(line[:point])
	current := words[len(words)-1]
	out := Completions{Start: current.start, End: point}

	req := Request{
		Word:      current.text,
		WordIndex: len(words) - 1,
		Line:      line,
		Point:     point,
	}
	for _, w := range words {
		req.Words = append(req.Words, w.text)
	}
	if len(words) > 1 {
		req.PrevWord = words[len(words)-2].text
	}
	req.Command = p.commandName(words[0].text)

	gen := p.manager.Generator()
	res := gen.Generate(ctx, req)

	options := res.Options
	var candidates []Candidate
	switch res.Fallback {
	case FallbackNone:
		candidates = res.Candidates
	case FallbackCommandNames:
		candidates = matchingCandidates(p.manager.catalog.Generate(ActionCommand, gen.actionContext(req.Word)), req.Word)
	default:
		candidates = matchingCandidates(p.manager.catalog.Generate(ActionFile, gen.actionContext(req.Word)), req.Word)
		options = options.With(OptionFilenames)
	}

	out.Suggestions = p.decorate(candidates, options)
	return out
}

func matchingCandidates(values []string, word string) []Candidate {
	values = lo.Uniq(lo.Filter(values, func(v string, _ int) bool { return strings.HasPrefix(v, word) }))
	slices.Sort(values)
	return toCandidates(values)
}

// commandName resolves the spec name for the typed command, trying the base
// name when a path was typed.
func (p *ShellCompletionProvider) commandName(typed string) string {
	if _, ok := p.manager.registry.Get(typed); ok {
		return typed
	}
	if base := filepath.Base(typed); base != typed {
		if _, ok := p.manager.registry.Get(base); ok {
			return base
		}
	}
	return typed
}

// decorate applies the filenames, noquote and nospace options.
func (p *ShellCompletionProvider) decorate(candidates []Candidate, options OptionSet) []Suggestion {
	filenames := options.Has(OptionFilenames)
	suggestions := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		text := c.Value
		isDir := filenames && !strings.HasSuffix(text, "/") && IsDirectory(p.manager.env, text)
		if filenames && !options.Has(OptionNoQuote) {
			text = quoteFilename(text)
		}
		if isDir {
			text += "/"
		}
		suggestions = append(suggestions, Suggestion{
			Text:        text,
			Display:     c.Value,
			Description: c.Description,
		})
	}

	if len(suggestions) == 1 && !options.Has(OptionNoSpace) && !strings.HasSuffix(suggestions[0].Text, "/") {
		suggestions[0].Text += " "
	}
	return suggestions
}

// quoteFilename quotes a path candidate, leaving a leading ~/ unquoted so the
// shell still expands it.
func quoteFilename(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if rest == "" {
			return path
		}
		return "~/" + Quote(rest)
	}
	return Quote(path)
}

// lineWord is a word of the line being edited with its quoting removed.
type lineWord struct {
	text  string
	start int
}

// splitLine splits the command under the cursor into words. Unlike a full
// shell parser it accepts unterminated quotes, and command separators start
// a new word list. The result always ends with the word being completed,
// which is empty when the line ends in a separator.
func splitLine(line string) []lineWord {
	var (
		words  []lineWord
		cur    strings.Builder
		inWord bool
		start  int
		quote  byte
	)
	endWord := func() {
		if inWord {
			words = append(words, lineWord{text: cur.String(), start: start})
		}
		cur.Reset()
		inWord = false
	}
	beginWord := func(i int) {
		if !inWord {
			inWord = true
			start = i
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch quote {
		case '\'':
			if c == '\'' {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
			continue
		case '"':
			switch {
			case c == '"':
				quote = 0
			case c == '\\' && i+1 < len(line) && strings.IndexByte("\"\\$`", line[i+1]) >= 0:
				i++
				cur.WriteByte(line[i])
			default:
				cur.WriteByte(c)
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n':
			endWord()
		case ';', '|', '&', '(', ')':
			endWord()
			words = nil
		case '\\':
			beginWord(i)
			if i+1 < len(line) {
				i++
				cur.WriteByte(line[i])
			}
		case '\'', '"':
			beginWord(i)
			quote = c
		default:
			beginWord(i)
			cur.WriteByte(c)
		}
	}

	if inWord {
		words = append(words, lineWord{text: cur.String(), start: start})
	} else {
		words = append(words, lineWord{start: len(line)})
	}
	return words
}
