package completion

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ActionContext is the input of an action generator: the word being
// completed and the tables it may read.
type ActionContext struct {
	Word   string
	Env    Environment
	System *SystemTables
}

// ActionFunc produces the raw candidates of one action. It must not modify
// shell state and returns nil when its table is unavailable.
type ActionFunc func(ActionContext) []string

// Catalog holds one generator per action kind.
type Catalog struct {
	generators map[ActionKind]ActionFunc
}

// NewCatalog returns a catalog with a generator for every ActionKind.
func NewCatalog() *Catalog {
	c := &Catalog{
		generators: make(map[ActionKind]ActionFunc, actionCount),
	}

	c.Register(ActionAlias, func(a ActionContext) []string { return a.Env.Aliases() })
	c.Register(ActionArrayVar, variablesWhere(func(v Variable) bool { return v.Array }))
	c.Register(ActionBinding, staticList(readlineBindings))
	c.Register(ActionBuiltin, builtinsWhere(func(Builtin) bool { return true }))
	c.Register(ActionCommand, commandNames)
	c.Register(ActionDirectory, func(a ActionContext) []string { return listFiles(a, true) })
	c.Register(ActionDisabled, builtinsWhere(func(b Builtin) bool { return !b.Enabled }))
	c.Register(ActionEnabled, builtinsWhere(func(b Builtin) bool { return b.Enabled }))
	c.Register(ActionExport, variablesWhere(func(v Variable) bool { return v.Exported }))
	c.Register(ActionFile, func(a ActionContext) []string { return listFiles(a, false) })
	c.Register(ActionFunction, func(a ActionContext) []string { return a.Env.Functions() })
	c.Register(ActionGroup, func(a ActionContext) []string { return readColonNames(a.System.GroupFile) })
	c.Register(ActionHelpTopic, builtinsWhere(func(Builtin) bool { return true }))
	c.Register(ActionHostname, hostnames)
	c.Register(ActionJob, jobsWhere(func(Job) bool { return true }))
	c.Register(ActionKeyword, staticList(shellKeywords))
	c.Register(ActionRunning, jobsWhere(func(j Job) bool { return !j.Stopped }))
	c.Register(ActionService, func(a ActionContext) []string { return readServices(a.System.ServicesFile) })
	c.Register(ActionSetopt, func(a ActionContext) []string { return a.Env.SetOptions() })
	c.Register(ActionShopt, func(a ActionContext) []string { return a.Env.ShoptOptions() })
	c.Register(ActionSignal, func(ActionContext) []string { return signalNames() })
	c.Register(ActionStopped, jobsWhere(func(j Job) bool { return j.Stopped }))
	c.Register(ActionUser, func(a ActionContext) []string { return readColonNames(a.System.PasswdFile) })
	c.Register(ActionVariable, variablesWhere(func(Variable) bool { return true }))

	return c
}

// Register replaces the generator for kind.
func (c *Catalog) Register(kind ActionKind, fn ActionFunc) {
	c.generators[kind] = fn
}

// Generate runs the generator for kind. Nil tables in actx are treated as
// empty.
func (c *Catalog) Generate(kind ActionKind, actx ActionContext) []string {
	fn, ok := c.generators[kind]
	if !ok {
		return nil
	}
	if actx.Env == nil {
		actx.Env = &Snapshot{}
	}
	if actx.System == nil {
		actx.System = &SystemTables{}
	}
	return fn(actx)
}

func staticList(list []string) ActionFunc {
	return func(ActionContext) []string {
		return slices.Clone(list)
	}
}

func variablesWhere(keep func(Variable) bool) ActionFunc {
	return func(a ActionContext) []string {
		return lo.FilterMap(a.Env.Variables(), func(v Variable, _ int) (string, bool) {
			return v.Name, keep(v)
		})
	}
}

func builtinsWhere(keep func(Builtin) bool) ActionFunc {
	return func(a ActionContext) []string {
		return lo.FilterMap(a.Env.Builtins(), func(b Builtin, _ int) (string, bool) {
			return b.Name, keep(b)
		})
	}
}

func jobsWhere(keep func(Job) bool) ActionFunc {
	return func(a ActionContext) []string {
		return lo.FilterMap(a.Env.Jobs(), func(j Job, _ int) (string, bool) {
			return j.Command, keep(j) && j.Command != ""
		})
	}
}

// hostnames merges $HOSTFILE (or the system hosts file) with ssh known_hosts.
func hostnames(a ActionContext) []string {
	hosts := make(map[string]bool)

	hostsFile := a.Env.Getenv("HOSTFILE")
	if hostsFile == "" {
		hostsFile = a.System.HostsFile
	}
	readHostsFile(hostsFile, hosts)

	for _, path := range a.System.KnownHostsFiles {
		parseKnownHosts(path, hosts)
	}

	names := lo.Keys(hosts)
	slices.Sort(names)
	return names
}

// commandNames lists executables on $PATH plus builtins, functions, aliases
// and keywords. A word containing a slash completes executable paths instead.
func commandNames(a ActionContext) []string {
	if strings.Contains(a.Word, "/") {
		return lo.Filter(listFiles(a, false), func(path string, _ int) bool {
			info, err := os.Stat(resolvePath(a.Env, path))
			return err == nil && (info.IsDir() || info.Mode()&0o111 != 0)
		})
	}

	var names []string
	for _, dir := range filepath.SplitList(a.Env.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), a.Word) || e.IsDir() {
				continue
			}
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
				continue
			}
			names = append(names, e.Name())
		}
	}

	names = append(names, builtinsWhere(func(b Builtin) bool { return b.Enabled })(a)...)
	names = append(names, a.Env.Functions()...)
	names = append(names, a.Env.Aliases()...)
	names = append(names, shellKeywords...)
	return names
}

// listFiles lists the directory named by the word's leading path, keeping
// entries that start with the word's last component. Dotfiles are listed only
// when that component starts with a dot.
func listFiles(a ActionContext, dirsOnly bool) []string {
	dirPart, base := splitPathWord(a.Word)

	searchDir := resolvePath(a.Env, dirPart)
	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if dirsOnly && !isDirEntry(searchDir, e) {
			continue
		}
		out = append(out, dirPart+name)
	}
	return out
}

// IsDirectory reports whether a candidate path names a directory, resolving it
// the way the file actions do.
func IsDirectory(env Environment, path string) bool {
	if env == nil {
		env = &Snapshot{}
	}
	info, err := os.Stat(resolvePath(env, path))
	return err == nil && info.IsDir()
}

func splitPathWord(word string) (dir, base string) {
	i := strings.LastIndex(word, "/")
	if i < 0 {
		return "", word
	}
	return word[:i+1], word[i+1:]
}

// resolvePath expands a leading ~ and anchors relative paths at the
// environment's working directory.
func resolvePath(env Environment, path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home := env.Getenv("HOME")
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		path = home + path[1:]
	}
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(env.Dir(), path)
	}
	return path
}

func isDirEntry(dir string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.IsDir()
}
