package completion

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"mvdan.cc/sh/v3/syntax"
)

type fakeInvoker struct {
	functions map[string][]Candidate
	commands  map[string][]Candidate
	err       error
	requests  []Request
}

func (f *fakeInvoker) CallFunction(_ context.Context, name string, req Request) ([]Candidate, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.functions[name], nil
}

func (f *fakeInvoker) RunCommand(_ context.Context, command string, req Request) ([]Candidate, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.commands[command], nil
}

func requestFor(command, word string) Request {
	return Request{
		Command:   command,
		Word:      word,
		PrevWord:  command,
		Words:     []string{command, word},
		WordIndex: 1,
		Line:      command + " " + word,
		Point:     len(command) + 1 + len(word),
	}
}

func TestGenerateFromSpec(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.go"} {
		writeFile(t, filepath.Join(dir, name), "")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFile(t, filepath.Join(dir, "sub", "d.txt"), "")

	env := &Snapshot{
		WorkDir: dir,
		Values:  map[string]string{"TARGETS": "build test"},
		Vars:    []Variable{{Name: "alpha"}, {Name: "beta"}},
	}
	invoker := &fakeInvoker{
		functions: map[string][]Candidate{"_f": {{Value: "fn-one"}, {Value: "fn-two"}}},
		commands:  map[string][]Candidate{"gen": {{Value: "cmd-one", Description: "from gen"}}},
	}

	tests := []struct {
		name string
		spec CompletionSpec
		word string
		want []string
	}{
		{
			name: "word list prefix match",
			spec: CompletionSpec{WordList: ptr("start stop restart")},
			word: "st",
			want: []string{"start", "stop"},
		},
		{
			name: "word list expands variables at completion time",
			spec: CompletionSpec{WordList: ptr("$TARGETS clean")},
			want: []string{"build", "clean", "test"},
		},
		{
			name: "glob pattern",
			spec: CompletionSpec{GlobPattern: ptr("*.txt")},
			want: []string{"a.txt", "b.txt"},
		},
		{
			name: "recursive glob",
			spec: CompletionSpec{GlobPattern: ptr("**/*.txt")},
			want: []string{"a.txt", "b.txt", "sub/d.txt"},
		},
		{
			name: "action",
			spec: CompletionSpec{Actions: NewActionSet(ActionVariable)},
			word: "b",
			want: []string{"beta"},
		},
		{
			name: "function and command",
			spec: CompletionSpec{Function: ptr("_f"), Command: ptr("gen")},
			want: []string{"cmd-one", "fn-one", "fn-two"},
		},
		{
			name: "filter removes matches",
			spec: CompletionSpec{WordList: ptr("a.o b.c c.o"), Filter: ptr("*.o")},
			want: []string{"b.c"},
		},
		{
			name: "negated filter keeps matches",
			spec: CompletionSpec{WordList: ptr("a.o b.c c.o"), Filter: ptr("!*.o")},
			want: []string{"a.o", "c.o"},
		},
		{
			name: "ampersand in filter stands for the word",
			spec: CompletionSpec{WordList: ptr("foo foobar"), Filter: ptr("&")},
			word: "foo",
			want: []string{"foobar"},
		},
		{
			name: "escaped ampersand is literal",
			spec: CompletionSpec{WordList: ptr(`'a&b' ab`), Filter: ptr(`a\&b`)},
			want: []string{"ab"},
		},
		{
			name: "prefix and suffix wrap matches",
			spec: CompletionSpec{WordList: ptr("one two"), Prefix: ptr("--"), Suffix: ptr("=")},
			word: "o",
			want: []string{"--one="},
		},
		{
			name: "duplicates collapse",
			spec: CompletionSpec{WordList: ptr("x y x"), Function: ptr("_none")},
			want: []string{"x", "y"},
		},
		{
			name: "nosort keeps source order",
			spec: CompletionSpec{WordList: ptr("zeta alpha mid"), Options: NewOptionSet(OptionNoSort)},
			want: []string{"zeta", "alpha", "mid"},
		},
		{
			name: "plusdirs appends directories",
			spec: CompletionSpec{WordList: ptr("sing"), Options: NewOptionSet(OptionPlusDirs)},
			word: "s",
			want: []string{"sing", "sub"},
		},
		{
			name: "dirnames only when nothing matched",
			spec: CompletionSpec{WordList: ptr("sing"), Options: NewOptionSet(OptionDirNames)},
			word: "s",
			want: []string{"sing"},
		},
		{
			name: "dirnames fallback",
			spec: CompletionSpec{WordList: ptr("other"), Options: NewOptionSet(OptionDirNames)},
			word: "s",
			want: []string{"sub"},
		},
	}

	g := NewGenerator(NewRegistry(), env, WithInvoker(invoker))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.GenerateFromSpec(context.Background(), tt.spec, requestFor("cmd", tt.word))
			assert.Equal(t, tt.want, res.Values())
			assert.Empty(t, res.Diagnostics)
			assert.Equal(t, FallbackNone, res.Fallback)
		})
	}
}

func TestGenerateFallbacks(t *testing.T) {
	r := NewRegistry()
	r.Install("noop", CompletionSpec{Options: NewOptionSet(OptionNoSpace)})
	r.Install("bd", CompletionSpec{WordList: ptr("x"), Options: NewOptionSet(OptionBashDefault)})
	r.Install("def", CompletionSpec{WordList: ptr("x"), Options: NewOptionSet(OptionDefault)})
	g := NewGenerator(r, &Snapshot{})

	tests := []struct {
		name string
		req  Request
		want Fallback
	}{
		{"command position", Request{Command: "noop", WordIndex: 0}, FallbackCommandNames},
		{"unregistered command", requestFor("unknown", ""), FallbackFilenames},
		{"spec without sources", requestFor("noop", ""), FallbackFilenames},
		{"bashdefault on empty result", requestFor("bd", "zzz"), FallbackBashDefault},
		{"default on empty result", requestFor("def", "zzz"), FallbackDefault},
		{"matches suppress default", requestFor("def", "x"), FallbackNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Generate(context.Background(), tt.req)
			assert.Equal(t, tt.want, res.Fallback, res.Fallback.String())
		})
	}
}

func TestGenerateUsesDefaultSpec(t *testing.T) {
	r := NewRegistry()
	r.SetDefault(CompletionSpec{WordList: ptr("fallback")})
	g := NewGenerator(r, &Snapshot{})

	res := g.Generate(context.Background(), requestFor("anything", ""))
	assert.Equal(t, []string{"fallback"}, res.Values())
}

func TestGenerateSourceFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	spec := CompletionSpec{WordList: ptr("ok"), Function: ptr("_f"), Command: ptr("gen")}

	t.Run("failing sources are reported and skipped", func(t *testing.T) {
		invoker := &fakeInvoker{err: errors.New("boom")}
		g := NewGenerator(NewRegistry(), &Snapshot{}, WithInvoker(invoker), WithGeneratorLogger(zap.New(core)))

		res := g.GenerateFromSpec(context.Background(), spec, requestFor("cmd", ""))
		assert.Equal(t, []string{"ok"}, res.Values())
		require.Len(t, res.Diagnostics, 2)

		var srcErr *SourceError
		require.ErrorAs(t, res.Diagnostics[0], &srcErr)
		assert.Equal(t, "function", srcErr.Source)
		assert.Equal(t, "_f", srcErr.Name)
		assert.EqualError(t, res.Diagnostics[1], "command gen: boom")
		assert.Equal(t, 2, logs.FilterMessage("completion source failed").Len())
	})

	t.Run("no invoker", func(t *testing.T) {
		g := NewGenerator(NewRegistry(), &Snapshot{})
		res := g.GenerateFromSpec(context.Background(), spec, requestFor("cmd", ""))
		assert.Equal(t, []string{"ok"}, res.Values())
		require.Len(t, res.Diagnostics, 2)
		assert.ErrorIs(t, res.Diagnostics[0], ErrNoInvoker)
	})

	t.Run("bad filter is ignored", func(t *testing.T) {
		g := NewGenerator(NewRegistry(), &Snapshot{})
		bad := CompletionSpec{WordList: ptr("a b"), Filter: ptr("[")}
		res := g.GenerateFromSpec(context.Background(), bad, requestFor("cmd", ""))
		assert.Equal(t, []string{"a", "b"}, res.Values())
		assert.Len(t, res.Diagnostics, 1)
	})
}

type substitutingInvoker struct {
	fakeInvoker
	output string
}

func (s *substitutingInvoker) CommandSubst(context.Context) func(io.Writer, *syntax.CmdSubst) error {
	return func(w io.Writer, _ *syntax.CmdSubst) error {
		_, err := io.WriteString(w, s.output)
		return err
	}
}

func TestGenerateWordListSubstitution(t *testing.T) {
	spec := CompletionSpec{WordList: ptr("$(list) x \"$HOME_DIR\"")}
	env := &Snapshot{Values: map[string]string{"HOME_DIR": "/home/me"}}

	t.Run("without a substituter only the failing word is dropped", func(t *testing.T) {
		g := NewGenerator(NewRegistry(), env, WithInvoker(&fakeInvoker{}))
		res := g.GenerateFromSpec(context.Background(), spec, requestFor("cmd", ""))
		assert.Equal(t, []string{"/home/me", "x"}, res.Values())
		require.Len(t, res.Diagnostics, 1)
		assert.Contains(t, res.Diagnostics[0].Error(), "word list: $(list)")
	})

	t.Run("substitution output is split into words", func(t *testing.T) {
		inv := &substitutingInvoker{output: "one two\n"}
		g := NewGenerator(NewRegistry(), env, WithInvoker(inv))
		res := g.GenerateFromSpec(context.Background(), spec, requestFor("cmd", ""))
		assert.Equal(t, []string{"/home/me", "one", "two", "x"}, res.Values())
		assert.Empty(t, res.Diagnostics)
	})

	t.Run("syntax error expands nothing", func(t *testing.T) {
		g := NewGenerator(NewRegistry(), env)
		res := g.GenerateFromSpec(context.Background(), CompletionSpec{WordList: ptr(`a "b`)}, requestFor("cmd", ""))
		assert.Empty(t, res.Values())
		assert.Len(t, res.Diagnostics, 1)
	})
}

func TestGeneratePassesRequestToSources(t *testing.T) {
	invoker := &fakeInvoker{}
	g := NewGenerator(NewRegistry(), &Snapshot{}, WithInvoker(invoker))

	req := Request{
		Command:   "git",
		Word:      "ch",
		PrevWord:  "git",
		Words:     []string{"git", "ch"},
		WordIndex: 1,
		Line:      "git ch",
		Point:     6,
	}
	g.GenerateFromSpec(context.Background(), CompletionSpec{Function: ptr("_git")}, req)

	require.Len(t, invoker.requests, 1)
	assert.Equal(t, req, invoker.requests[0])
}

func TestGenerateKeepsDescriptions(t *testing.T) {
	invoker := &fakeInvoker{commands: map[string][]Candidate{
		"gen": {{Value: "b", Description: "second"}, {Value: "a", Description: "first"}},
	}}
	g := NewGenerator(NewRegistry(), &Snapshot{}, WithInvoker(invoker))

	res := g.GenerateFromSpec(context.Background(), CompletionSpec{Command: ptr("gen")}, requestFor("cmd", ""))
	assert.Equal(t, []Candidate{{Value: "a", Description: "first"}, {Value: "b", Description: "second"}}, res.Candidates)
}
