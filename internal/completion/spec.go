package completion

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownAction is returned for an -A value outside the action table.
	ErrUnknownAction = errors.New("invalid action name")
	// ErrUnknownOption is returned for an -o value outside the option table.
	ErrUnknownOption = errors.New("invalid option name")
)

// ActionKind names a built-in candidate source selected with -A.
type ActionKind int

// Action kinds, declared in lexicographic order of their names so that
// sorting by value also sorts by name.
const (
	ActionAlias ActionKind = iota
	ActionArrayVar
	ActionBinding
	ActionBuiltin
	ActionCommand
	ActionDirectory
	ActionDisabled
	ActionEnabled
	ActionExport
	ActionFile
	ActionFunction
	ActionGroup
	ActionHelpTopic
	ActionHostname
	ActionJob
	ActionKeyword
	ActionRunning
	ActionService
	ActionSetopt
	ActionShopt
	ActionSignal
	ActionStopped
	ActionUser
	ActionVariable
	actionCount
)

var actionNames = [actionCount]string{
	"alias", "arrayvar", "binding", "builtin", "command", "directory",
	"disabled", "enabled", "export", "file", "function", "group",
	"helptopic", "hostname", "job", "keyword", "running", "service",
	"setopt", "shopt", "signal", "stopped", "user", "variable",
}

func (k ActionKind) String() string {
	if k < 0 || k >= actionCount {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionNames[k]
}

// ParseActionKind maps an -A argument to its ActionKind.
func ParseActionKind(name string) (ActionKind, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%s: %w", name, ErrUnknownAction)
}

// ActionNames lists every valid -A argument in sorted order.
func ActionNames() []string {
	return slices.Clone(actionNames[:])
}

// OptionFlag is a post-processing modifier selected with -o.
type OptionFlag int

// Option flags, in lexicographic order of their names.
const (
	OptionBashDefault OptionFlag = iota
	OptionDefault
	OptionDirNames
	OptionFilenames
	OptionNoQuote
	OptionNoSort
	OptionNoSpace
	OptionPlusDirs
	optionCount
)

var optionNames = [optionCount]string{
	"bashdefault", "default", "dirnames", "filenames",
	"noquote", "nosort", "nospace", "plusdirs",
}

func (o OptionFlag) String() string {
	if o < 0 || o >= optionCount {
		return fmt.Sprintf("OptionFlag(%d)", int(o))
	}
	return optionNames[o]
}

// ParseOptionFlag maps an -o argument to its OptionFlag.
func ParseOptionFlag(name string) (OptionFlag, error) {
	for i, n := range optionNames {
		if n == name {
			return OptionFlag(i), nil
		}
	}
	return 0, fmt.Errorf("%s: %w", name, ErrUnknownOption)
}

// OptionNames lists every valid -o argument in sorted order.
func OptionNames() []string {
	return slices.Clone(optionNames[:])
}

// ActionSet is a set of action kinds that remembers insertion order.
// Generation walks the set in insertion order; printing sorts it.
type ActionSet struct {
	kinds []ActionKind
}

// NewActionSet builds a set from kinds, dropping duplicates.
func NewActionSet(kinds ...ActionKind) ActionSet {
	var s ActionSet
	for _, k := range kinds {
		s.Add(k)
	}
	return s
}

// Add inserts k and reports whether it was not already present.
func (s *ActionSet) Add(k ActionKind) bool {
	if s.Has(k) {
		return false
	}
	s.kinds = append(s.kinds, k)
	return true
}

func (s ActionSet) Has(k ActionKind) bool {
	return slices.Contains(s.kinds, k)
}

func (s ActionSet) Len() int {
	return len(s.kinds)
}

// Ordered returns the members in insertion order.
func (s ActionSet) Ordered() []ActionKind {
	return slices.Clone(s.kinds)
}

// Sorted returns the members ordered by name.
func (s ActionSet) Sorted() []ActionKind {
	sorted := slices.Clone(s.kinds)
	slices.Sort(sorted)
	return sorted
}

// Equal compares membership only.
func (s ActionSet) Equal(other ActionSet) bool {
	return slices.Equal(s.Sorted(), other.Sorted())
}

// OptionSet is a bit set of option flags.
type OptionSet uint16

// NewOptionSet builds a set from flags.
func NewOptionSet(flags ...OptionFlag) OptionSet {
	var s OptionSet
	for _, f := range flags {
		s = s.With(f)
	}
	return s
}

// With returns s with f added.
func (s OptionSet) With(f OptionFlag) OptionSet {
	return s | 1<<uint(f)
}

// Without returns s with f removed.
func (s OptionSet) Without(f OptionFlag) OptionSet {
	return s &^ (1 << uint(f))
}

func (s OptionSet) Has(f OptionFlag) bool {
	return s&(1<<uint(f)) != 0
}

func (s OptionSet) Len() int {
	n := 0
	for f := OptionFlag(0); f < optionCount; f++ {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// Sorted returns the members ordered by name.
func (s OptionSet) Sorted() []OptionFlag {
	var flags []OptionFlag
	for f := OptionFlag(0); f < optionCount; f++ {
		if s.Has(f) {
			flags = append(flags, f)
		}
	}
	return flags
}

func (s OptionSet) String() string {
	names := make([]string, 0, s.Len())
	for _, f := range s.Sorted() {
		names = append(names, f.String())
	}
	return strings.Join(names, ",")
}

// CompletionSpec is the completion configuration registered for one command.
// A nil scalar field is unset; a pointer to "" is set to the empty string.
type CompletionSpec struct {
	WordList    *string
	GlobPattern *string
	Prefix      *string
	Suffix      *string
	Function    *string
	Command     *string
	Filter      *string
	Actions     ActionSet
	Options     OptionSet
}

// valueFlag ties a single-valued option letter to its spec field. The table
// order is the order fields are printed in.
type valueFlag struct {
	letter byte
	field  func(*CompletionSpec) **string
}

var valueFlags = []valueFlag{
	{'G', func(s *CompletionSpec) **string { return &s.GlobPattern }},
	{'W', func(s *CompletionSpec) **string { return &s.WordList }},
	{'X', func(s *CompletionSpec) **string { return &s.Filter }},
	{'P', func(s *CompletionSpec) **string { return &s.Prefix }},
	{'S', func(s *CompletionSpec) **string { return &s.Suffix }},
	{'F', func(s *CompletionSpec) **string { return &s.Function }},
	{'C', func(s *CompletionSpec) **string { return &s.Command }},
}

func lookupValueFlag(letter byte) (valueFlag, bool) {
	for _, f := range valueFlags {
		if f.letter == letter {
			return f, true
		}
	}
	return valueFlag{}, false
}

// HasSources reports whether the spec names anything that produces candidates.
func (s CompletionSpec) HasSources() bool {
	return s.WordList != nil || s.GlobPattern != nil || s.Function != nil ||
		s.Command != nil || s.Actions.Len() > 0
}

// IsEmpty reports whether no field at all is set.
func (s CompletionSpec) IsEmpty() bool {
	if s.Actions.Len() > 0 || s.Options != 0 {
		return false
	}
	for _, f := range valueFlags {
		if *f.field(&s) != nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s CompletionSpec) Clone() CompletionSpec {
	c := s
	for _, f := range valueFlags {
		if v := *f.field(&s); v != nil {
			*f.field(&c) = ptr(*v)
		}
	}
	c.Actions = ActionSet{kinds: slices.Clone(s.Actions.kinds)}
	return c
}

// Merge overwrites the fields that patch sets and keeps the rest. The
// action and option sets are replaced as a whole when patch mentions them.
func (s *CompletionSpec) Merge(patch CompletionSpec) {
	for _, f := range valueFlags {
		if v := *f.field(&patch); v != nil {
			*f.field(s) = ptr(*v)
		}
	}
	if patch.Actions.Len() > 0 {
		s.Actions = ActionSet{kinds: slices.Clone(patch.Actions.kinds)}
	}
	if patch.Options != 0 {
		s.Options = patch.Options
	}
}

// Equal compares two specs by observable content: field values and set
// membership, ignoring action order.
func (s CompletionSpec) Equal(other CompletionSpec) bool {
	for _, f := range valueFlags {
		a, b := *f.field(&s), *f.field(&other)
		if (a == nil) != (b == nil) || (a != nil && *a != *b) {
			return false
		}
	}
	return s.Options == other.Options && s.Actions.Equal(other.Actions)
}

func ptr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
