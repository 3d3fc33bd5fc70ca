package completion

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// completeUsage provides the usage summary for the complete command
const completeUsage = `Usage: complete [-pr] [-D] [-o option] [-A action] [-G globpat] [-W wordlist]
                [-F function] [-C command] [-X filterpat] [-P prefix] [-S suffix] [name ...]

Options:
  -p          Print existing completion specifications (all if no name is given)
  -r          Remove completion specifications (all if no name is given)
  -D          Apply to the default specification used for commands without one
  -o option   Set a completion option: bashdefault, default, dirnames, filenames,
              noquote, nosort, nospace, plusdirs
  -A action   Add a candidate source, e.g. alias, command, directory, file,
              hostname, signal, user, variable
  -G globpat  Complete file names matching globpat
  -W wordlist Complete from wordlist, split and expanded at completion time
  -F function Call function; it reads COMP_WORDS and COMP_CWORD and sets COMPREPLY
  -C command  Run command; each output line is a candidate
  -X filterpat Remove candidates matching filterpat (a leading ! keeps only matches)
  -P prefix   Prepend prefix to each candidate
  -S suffix   Append suffix to each candidate
  -h, --help  Show this help message

Examples:
  complete -W "start stop restart" service
  complete -F _git_completion git
  complete -A directory -o nospace cd
  complete -p git
  complete -r git`

// compgenUsage provides the usage summary for the compgen command
const compgenUsage = `Usage: compgen [-o option] [-A action] [-G globpat] [-W wordlist] [-F function]
               [-C command] [-X filterpat] [-P prefix] [-S suffix] [word]

Prints the candidates the given options generate for word, one per line.

Examples:
  compgen -W "start stop restart" st
  compgen -A user
  compgen -A file -X '*.o'`

// usageError wraps an error with a usage hint
type usageError struct {
	cmd string
	msg string
}

func (e *usageError) Error() string {
	return fmt.Sprintf("%s\n\nRun '%s -h' for usage information.", e.msg, e.cmd)
}

// newUsageError creates a new error that hints at -h/--help
func newUsageError(cmd, format string, args ...any) error {
	return &usageError{cmd: cmd, msg: fmt.Sprintf(format, args...)}
}

// invocation is one parsed complete or compgen command line.
type invocation struct {
	spec        CompletionSpec
	print       bool
	remove      bool
	defaultSpec bool
	help        bool
	names       []string
}

// parseArgs parses the flags of complete (modes allowed) or compgen. Flags
// stop at "--" or the first argument not starting with "-"; the rest are
// names. Nothing is applied here, so a usage error leaves no partial state.
func parseArgs(cmd string, args []string, modes bool) (invocation, error) {
	var inv invocation

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			i++
			break
		}
		if arg == "-h" || arg == "--help" {
			inv.help = true
			return inv, nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			break
		}

	letters:
		for j := 1; j < len(arg); j++ {
			letter := arg[j]
			switch letter {
			case 'p', 'r', 'D':
				if !modes {
					return inv, newUsageError(cmd, "-%c: invalid option", letter)
				}
				switch letter {
				case 'p':
					inv.print = true
				case 'r':
					inv.remove = true
				case 'D':
					inv.defaultSpec = true
				}
				continue
			case 'A', 'o':
			default:
				if _, ok := lookupValueFlag(letter); !ok {
					return inv, newUsageError(cmd, "-%c: invalid option", letter)
				}
			}

			// Value flags take the rest of the argument, or the next one.
			value := arg[j+1:]
			if value == "" {
				if i+1 >= len(args) {
					return inv, newUsageError(cmd, "-%c: option requires an argument", letter)
				}
				i++
				value = args[i]
			}
			if err := setFlag(cmd, &inv.spec, letter, value); err != nil {
				return inv, err
			}
			break letters
		}
	}
	inv.names = args[i:]

	if inv.print && inv.remove {
		return inv, newUsageError(cmd, "-p and -r cannot be used together")
	}
	return inv, nil
}

func setFlag(cmd string, spec *CompletionSpec, letter byte, value string) error {
	switch letter {
	case 'A':
		kind, err := ParseActionKind(value)
		if err != nil {
			return newUsageError(cmd, "%s%s", err, suggest(value, ActionNames()))
		}
		spec.Actions.Add(kind)
	case 'o':
		flag, err := ParseOptionFlag(value)
		if err != nil {
			return newUsageError(cmd, "%s%s", err, suggest(value, OptionNames()))
		}
		spec.Options = spec.Options.With(flag)
	default:
		f, _ := lookupValueFlag(letter)
		*f.field(spec) = ptr(value)
	}
	return nil
}

// suggest returns a "did you mean" hint for the closest valid name.
func suggest(value string, names []string) string {
	matches := fuzzy.Find(value, names)
	if len(matches) == 0 {
		return " (valid: " + strings.Join(names, ", ") + ")"
	}
	return fmt.Sprintf(" (did you mean %q?)", matches[0].Str)
}
