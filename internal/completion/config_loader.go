package completion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptySpec is returned for a spec entry that sets no field. Such an
// entry would render as "complete NAME", which prints instead of registers.
var ErrEmptySpec = errors.New("spec sets no completion field")

// SpecFile is the YAML form of a set of completion specs:
//
//	specs:
//	  - names: [cd, pushd]
//	    actions: [directory]
//	    options: [filenames]
//	  - names: [service]
//	    wordlist: start stop restart status
type SpecFile struct {
	Specs []SpecEntry `yaml:"specs"`
}

// SpecEntry registers one spec for every name in Names, and as the default
// spec when Default is set. Fields mirror the complete flags.
type SpecEntry struct {
	Names    []string `yaml:"names,omitempty"`
	Default  bool     `yaml:"default,omitempty"`
	Actions  []string `yaml:"actions,omitempty"`
	Options  []string `yaml:"options,omitempty"`
	WordList *string  `yaml:"wordlist,omitempty"`
	Glob     *string  `yaml:"glob,omitempty"`
	Filter   *string  `yaml:"filter,omitempty"`
	Prefix   *string  `yaml:"prefix,omitempty"`
	Suffix   *string  `yaml:"suffix,omitempty"`
	Function *string  `yaml:"function,omitempty"`
	Command  *string  `yaml:"command,omitempty"`
}

// Spec converts the entry, validating action and option names.
func (e SpecEntry) Spec() (CompletionSpec, error) {
	spec := CompletionSpec{
		WordList:    e.WordList,
		GlobPattern: e.Glob,
		Filter:      e.Filter,
		Prefix:      e.Prefix,
		Suffix:      e.Suffix,
		Function:    e.Function,
		Command:     e.Command,
	}
	for _, f := range valueFlags {
		if v := *f.field(&spec); v != nil && strings.ContainsRune(*v, 0) {
			return CompletionSpec{}, fmt.Errorf("-%c value contains a NUL byte", f.letter)
		}
	}
	for _, name := range e.Names {
		if strings.ContainsRune(name, 0) {
			return CompletionSpec{}, fmt.Errorf("name %q contains a NUL byte", name)
		}
	}
	for _, name := range e.Actions {
		kind, err := ParseActionKind(name)
		if err != nil {
			return CompletionSpec{}, err
		}
		spec.Actions.Add(kind)
	}
	for _, name := range e.Options {
		flag, err := ParseOptionFlag(name)
		if err != nil {
			return CompletionSpec{}, err
		}
		spec.Options = spec.Options.With(flag)
	}
	return spec.Clone(), nil
}

// ParseSpecFile decodes and validates a YAML spec file. source names the file
// in errors.
func ParseSpecFile(data []byte, source string) ([]SpecEntry, error) {
	var file SpecFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}

	for i, entry := range file.Specs {
		if len(entry.Names) == 0 && !entry.Default {
			return nil, fmt.Errorf("%s: spec %d: no names and not default", source, i+1)
		}
		spec, err := entry.Spec()
		if err != nil {
			return nil, fmt.Errorf("%s: spec %d: %w", source, i+1, err)
		}
		if spec.IsEmpty() {
			return nil, fmt.Errorf("%s: spec %d: %w", source, i+1, ErrEmptySpec)
		}
	}
	return file.Specs, nil
}

// ConfigLoader handles loading completion specs from YAML files
type ConfigLoader struct {
	fs fs.FS
}

// NewConfigLoader creates a new ConfigLoader with the given filesystem
func NewConfigLoader(filesystem fs.FS) *ConfigLoader {
	return &ConfigLoader{
		fs: filesystem,
	}
}

// LoadAll loads every YAML file in the filesystem, in lexical path order.
func (cl *ConfigLoader) LoadAll() ([]SpecEntry, error) {
	files, err := cl.ListFiles()
	if err != nil {
		return nil, err
	}

	var entries []SpecEntry
	for _, path := range files {
		loaded, err := cl.LoadFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, loaded...)
	}
	return entries, nil
}

// LoadFile loads the specs of a single file.
func (cl *ConfigLoader) LoadFile(path string) ([]SpecEntry, error) {
	data, err := fs.ReadFile(cl.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseSpecFile(data, path)
}

// ListFiles returns every YAML file in the filesystem
func (cl *ConfigLoader) ListFiles() ([]string, error) {
	var files []string

	err := fs.WalkDir(cl.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// LoadDefaults installs the embedded default specs.
func (m *CompletionManager) LoadDefaults() error {
	entries, err := NewConfigLoader(CompletionData).LoadAll()
	if err != nil {
		return err
	}
	m.installEntries(entries)
	return nil
}

// LoadFile installs the specs of a YAML file on disk. Specs replace earlier
// registrations of the same names. A file with any invalid entry installs
// nothing.
func (m *CompletionManager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	entries, err := ParseSpecFile(data, path)
	if err != nil {
		return err
	}
	m.installEntries(entries)
	return nil
}

// installEntries expects entries already validated by ParseSpecFile.
func (m *CompletionManager) installEntries(entries []SpecEntry) {
	for _, entry := range entries {
		spec, _ := entry.Spec()
		if entry.Default {
			m.registry.SetDefault(spec)
		}
		for _, name := range entry.Names {
			m.registry.Install(name, spec)
		}
	}
}
