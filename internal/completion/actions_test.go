package completion

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCatalogCoversEveryAction(t *testing.T) {
	c := NewCatalog()
	for i := range ActionNames() {
		_, ok := c.generators[ActionKind(i)]
		assert.True(t, ok, ActionKind(i).String())
	}
}

func TestCatalogShellTables(t *testing.T) {
	env := &Snapshot{
		Vars: []Variable{
			{Name: "HOME", Exported: true},
			{Name: "BASH_ARGV", Array: true},
			{Name: "local_var"},
		},
		Funcs:      []string{"_git", "greet"},
		AliasNames: []string{"ll", "la"},
		JobTable: []Job{
			{ID: 1, Command: "vim", Stopped: true},
			{ID: 2, Command: "sleep"},
		},
		BuiltinTable: []Builtin{
			{Name: "cd", Enabled: true},
			{Name: "coproc", Enabled: false},
		},
		SetOpts:   []string{"errexit"},
		ShoptOpts: []string{"globstar"},
	}
	actx := ActionContext{Env: env}
	c := NewCatalog()

	tests := []struct {
		kind ActionKind
		want []string
	}{
		{ActionAlias, []string{"ll", "la"}},
		{ActionArrayVar, []string{"BASH_ARGV"}},
		{ActionBuiltin, []string{"cd", "coproc"}},
		{ActionDisabled, []string{"coproc"}},
		{ActionEnabled, []string{"cd"}},
		{ActionExport, []string{"HOME"}},
		{ActionFunction, []string{"_git", "greet"}},
		{ActionHelpTopic, []string{"cd", "coproc"}},
		{ActionJob, []string{"vim", "sleep"}},
		{ActionRunning, []string{"sleep"}},
		{ActionStopped, []string{"vim"}},
		{ActionSetopt, []string{"errexit"}},
		{ActionShopt, []string{"globstar"}},
		{ActionVariable, []string{"HOME", "BASH_ARGV", "local_var"}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, c.Generate(tt.kind, actx))
		})
	}
}

func TestCatalogStaticTables(t *testing.T) {
	c := NewCatalog()

	assert.Contains(t, c.Generate(ActionKeyword, ActionContext{}), "while")
	assert.Contains(t, c.Generate(ActionBinding, ActionContext{}), "accept-line")

	signals := c.Generate(ActionSignal, ActionContext{})
	assert.Contains(t, signals, "SIGINT")
	assert.Contains(t, signals, "SIGTERM")
}

func TestCatalogSystemDatabases(t *testing.T) {
	dir := t.TempDir()
	tables := &SystemTables{
		PasswdFile:   filepath.Join(dir, "passwd"),
		GroupFile:    filepath.Join(dir, "group"),
		HostsFile:    filepath.Join(dir, "hosts"),
		ServicesFile: filepath.Join(dir, "services"),
		KnownHostsFiles: []string{
			filepath.Join(dir, "known_hosts"),
			filepath.Join(dir, "missing_known_hosts"),
		},
	}
	writeFile(t, tables.PasswdFile, "root:x:0:0:root:/root:/bin/sh\n# comment\nalice:x:1000:1000::/home/alice:/bin/bash\n+nisuser\n")
	writeFile(t, tables.GroupFile, "wheel:x:10:alice\nstaff:x:20:\n")
	writeFile(t, tables.HostsFile, "127.0.0.1 localhost loopback\n::1 ip6-localhost # v6\n\n10.0.0.5 build.internal\n")
	writeFile(t, tables.ServicesFile, "ssh 22/tcp\nhttp 80/tcp www # web\nbroken\n")
	writeFile(t, tables.KnownHostsFiles[0], `github.com,140.82.112.3 ssh-ed25519 AAAA
[git.example.com]:2222 ssh-rsa AAAA
|1|salt|hash ssh-rsa AAAA
@cert-authority *.corp.example ssh-rsa AAAA
@revoked old.example.com ssh-rsa AAAA
`)

	c := NewCatalog()
	actx := ActionContext{Env: &Snapshot{}, System: tables}

	assert.Equal(t, []string{"root", "alice"}, c.Generate(ActionUser, actx))
	assert.Equal(t, []string{"wheel", "staff"}, c.Generate(ActionGroup, actx))
	assert.Equal(t, []string{"ssh", "http", "www"}, c.Generate(ActionService, actx))
	assert.Equal(t, []string{
		"build.internal", "git.example.com", "github.com", "ip6-localhost",
		"localhost", "loopback", "old.example.com",
	}, c.Generate(ActionHostname, actx))

	t.Run("HOSTFILE overrides the hosts file", func(t *testing.T) {
		custom := filepath.Join(dir, "custom_hosts")
		writeFile(t, custom, "192.168.1.1 router\n")
		env := &Snapshot{Values: map[string]string{"HOSTFILE": custom}}
		hosts := c.Generate(ActionHostname, ActionContext{Env: env, System: &SystemTables{HostsFile: tables.HostsFile}})
		assert.Equal(t, []string{"router"}, hosts)
	})

	t.Run("missing files are empty", func(t *testing.T) {
		assert.Empty(t, c.Generate(ActionUser, ActionContext{}))
		assert.Empty(t, c.Generate(ActionHostname, ActionContext{}))
	})
}

func TestCatalogFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "")
	writeFile(t, filepath.Join(dir, "Makefile"), "")
	writeFile(t, filepath.Join(dir, ".hidden"), "")
	writeFile(t, filepath.Join(dir, "docs", "guide.md"), "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dist"), 0755))

	c := NewCatalog()
	env := &Snapshot{WorkDir: dir, Values: map[string]string{"HOME": dir}}

	tests := []struct {
		name string
		kind ActionKind
		word string
		want []string
	}{
		{"all files skip dotfiles", ActionFile, "", []string{"Makefile", "dist", "docs", "main.go"}},
		{"prefix", ActionFile, "m", []string{"main.go"}},
		{"dot prefix shows dotfiles", ActionFile, ".h", []string{".hidden"}},
		{"subdirectory", ActionFile, "docs/", []string{"docs/guide.md"}},
		{"directories only", ActionDirectory, "d", []string{"dist", "docs"}},
		{"tilde", ActionFile, "~/ma", []string{"~/main.go"}},
		{"absolute", ActionDirectory, dir + "/di", []string{dir + "/dist"}},
		{"missing directory", ActionFile, "nope/", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Generate(tt.kind, ActionContext{Word: tt.word, Env: env})
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	assert.True(t, IsDirectory(env, "docs"))
	assert.True(t, IsDirectory(env, "~/dist"))
	assert.False(t, IsDirectory(env, "main.go"))
	assert.False(t, IsDirectory(env, "missing"))
}

func TestCatalogCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits are not meaningful on Windows")
	}

	bin := t.TempDir()
	writeFile(t, filepath.Join(bin, "mytool"), "#!/bin/sh\n")
	require.NoError(t, os.Chmod(filepath.Join(bin, "mytool"), 0755))
	writeFile(t, filepath.Join(bin, "mydata"), "")

	env := &Snapshot{
		WorkDir:      bin,
		Values:       map[string]string{"PATH": bin},
		Funcs:        []string{"myfunc"},
		AliasNames:   []string{"myalias"},
		BuiltinTable: []Builtin{{Name: "echo", Enabled: true}, {Name: "mapfile"}},
	}
	c := NewCatalog()

	got := c.Generate(ActionCommand, ActionContext{Word: "my", Env: env})
	assert.Contains(t, got, "mytool")
	assert.Contains(t, got, "myfunc")
	assert.Contains(t, got, "myalias")
	assert.NotContains(t, got, "mydata")
	assert.NotContains(t, got, "mapfile")

	t.Run("path word completes executables", func(t *testing.T) {
		got := c.Generate(ActionCommand, ActionContext{Word: "./my", Env: env})
		assert.Equal(t, []string{"./mytool"}, got)
	})
}

func TestCatalogRegisterOverrides(t *testing.T) {
	c := NewCatalog()
	c.Register(ActionUser, func(ActionContext) []string { return []string{"fixed"} })
	assert.Equal(t, []string{"fixed"}, c.Generate(ActionUser, ActionContext{}))
}
