package completion

import (
	"os"
	"path/filepath"
	"slices"
)

// Variable describes one shell variable for the variable, export and arrayvar
// actions.
type Variable struct {
	Name     string
	Exported bool
	Array    bool
}

// Job is one entry of the job-control table.
type Job struct {
	ID      int
	Command string
	Stopped bool
}

// Builtin is one entry of the builtin-command table.
type Builtin struct {
	Name    string
	Enabled bool
}

// Environment is the read-only view of shell state that actions enumerate.
// Implementations return empty results for tables they cannot provide.
type Environment interface {
	Dir() string
	Getenv(name string) string
	Variables() []Variable
	Functions() []string
	Aliases() []string
	Jobs() []Job
	Builtins() []Builtin
	SetOptions() []string
	ShoptOptions() []string
}

// Snapshot is a static Environment, used for compgen against a fixed state
// and in tests.
type Snapshot struct {
	WorkDir      string
	Vars         []Variable
	Values       map[string]string
	Funcs        []string
	AliasNames   []string
	JobTable     []Job
	BuiltinTable []Builtin
	SetOpts      []string
	ShoptOpts    []string
}

var _ Environment = (*Snapshot)(nil)

func (s *Snapshot) Dir() string {
	if s.WorkDir == "" {
		wd, _ := os.Getwd()
		return wd
	}
	return s.WorkDir
}

func (s *Snapshot) Getenv(name string) string { return s.Values[name] }
func (s *Snapshot) Variables() []Variable { return slices.Clone(s.Vars) }
func (s *Snapshot) Functions() []string { return slices.Clone(s.Funcs) }
func (s *Snapshot) Aliases() []string { return slices.Clone(s.AliasNames) }
func (s *Snapshot) Jobs() []Job { return slices.Clone(s.JobTable) }
func (s *Snapshot) Builtins() []Builtin { return slices.Clone(s.BuiltinTable) }
func (s *Snapshot) SetOptions() []string { return slices.Clone(s.SetOpts) }
func (s *Snapshot) ShoptOptions() []string { return slices.Clone(s.ShoptOpts) }

// SystemTables locates the host databases read by the user, group, hostname
// and service actions. Missing files produce empty tables.
type SystemTables struct {
	PasswdFile      string
	GroupFile       string
	HostsFile       string
	ServicesFile    string
	KnownHostsFiles []string
}

// DefaultSystemTables returns the standard locations, with known_hosts files
// resolved under home.
func DefaultSystemTables(home string) *SystemTables {
	tables := &SystemTables{
		PasswdFile:   "/etc/passwd",
		GroupFile:    "/etc/group",
		HostsFile:    "/etc/hosts",
		ServicesFile: "/etc/services",
	}
	if home != "" {
		tables.KnownHostsFiles = []string{filepath.Join(home, ".ssh", "known_hosts")}
	}
	return tables
}

// Candidate is one completion suggestion.
type Candidate struct {
	Value       string
	Description string
}
