package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the compsh configuration file, by default
// ~/.config/compsh/config.yaml.
type Config struct {
	// CompletionFiles are YAML spec files loaded after the built-in defaults.
	CompletionFiles []string `yaml:"completion_files,omitempty"`
	// NoDefaults skips the built-in default specs.
	NoDefaults bool `yaml:"no_defaults,omitempty"`
	// Persist stores complete registrations and replays them on startup.
	Persist bool `yaml:"persist,omitempty"`
	// Watch reloads CompletionFiles when they change.
	Watch    bool   `yaml:"watch,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// Load reads the configuration at path. A missing file yields the zero
// configuration.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && len(bytes.TrimSpace(data)) > 0 {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides file settings with COMPSH_LOG_LEVEL and COMPSH_PERSIST.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if level := getenv("COMPSH_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if persist := getenv("COMPSH_PERSIST"); persist != "" {
		v, err := strconv.ParseBool(persist)
		if err != nil {
			return fmt.Errorf("COMPSH_PERSIST: %w", err)
		}
		c.Persist = v
	}
	return nil
}

// ResolveCompletionFiles expands a leading ~/ and makes relative paths
// relative to the directory of the config file.
func (c *Config) ResolveCompletionFiles(homeDir, configPath string) []string {
	base := filepath.Dir(configPath)
	files := make([]string, 0, len(c.CompletionFiles))
	for _, f := range c.CompletionFiles {
		switch {
		case f == "~":
			f = homeDir
		case strings.HasPrefix(f, "~/"):
			f = filepath.Join(homeDir, f[2:])
		case !filepath.IsAbs(f):
			f = filepath.Join(base, f)
		}
		files = append(files, f)
	}
	return files
}

// Save writes cfg to path atomically while holding a lock on path.lock, so
// concurrent shells cannot interleave writes.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	lockFile, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer func() {
		_ = unlock(lockFile.Fd())
		_ = lockFile.Close()
	}()

	if err := lockExclusive(lockFile.Fd()); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "config.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
