package core

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const logPrefix = "compsh."

type Paths struct {
	HomeDir    string
	DataDir    string
	LogFile    string
	StoreFile  string
	ConfigDir  string
	ConfigFile string
	RcFile     string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			configDir = filepath.Join(homeDir, ".config")
		}
		configDir = filepath.Join(configDir, "compsh")

		dataDir := filepath.Join(homeDir, ".local", "share", "compsh")
		defaultPaths = &Paths{
			HomeDir:    homeDir,
			DataDir:    dataDir,
			LogFile:    filepath.Join(dataDir, "compsh.zst"),
			StoreFile:  filepath.Join(dataDir, "completions.db"),
			ConfigDir:  configDir,
			ConfigFile: filepath.Join(configDir, "config.yaml"),
			RcFile:     filepath.Join(homeDir, ".compshrc"),
		}

		err = os.MkdirAll(defaultPaths.DataDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

// StoreFile is the SQLite database of persisted completion specs.
func StoreFile() string {
	ensureDefaultPaths()
	return defaultPaths.StoreFile
}

func ConfigFile() string {
	ensureDefaultPaths()
	return defaultPaths.ConfigFile
}

func RcFile() string {
	ensureDefaultPaths()
	return defaultPaths.RcFile
}

func isLogFile(name string) bool {
	return strings.HasPrefix(name, logPrefix) && strings.HasSuffix(name, ".zst")
}

// CleanLogFiles removes every compsh.*.zst file from the data directory.
func CleanLogFiles() error {
	ensureDefaultPaths()

	entries, err := os.ReadDir(defaultPaths.DataDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !isLogFile(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(defaultPaths.DataDir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// RotateLogFiles keeps the 10 most recently modified log files and removes
// the rest.
func RotateLogFiles() error {
	ensureDefaultPaths()

	entries, err := os.ReadDir(defaultPaths.DataDir)
	if err != nil {
		return err
	}

	var logFiles []logFileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isLogFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logFiles = append(logFiles, logFileInfo{
			path:    filepath.Join(defaultPaths.DataDir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	const maxLogFiles = 10
	if len(logFiles) <= maxLogFiles {
		return nil
	}

	// newest first
	sort.Slice(logFiles, func(i, j int) bool {
		return logFiles[i].modTime.After(logFiles[j].modTime)
	})

	for i := maxLogFiles; i < len(logFiles); i++ {
		if err := os.Remove(logFiles[i].path); err != nil {
			return err
		}
	}

	return nil
}

type logFileInfo struct {
	path    string
	modTime time.Time
}
