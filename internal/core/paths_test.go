package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDataDir(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	oldDefaultPaths := defaultPaths
	t.Cleanup(func() {
		defaultPaths = oldDefaultPaths
	})
	defaultPaths = &Paths{
		DataDir: tmpDir,
	}
	return tmpDir
}

func listLogFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && isLogFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestCleanLogFiles(t *testing.T) {
	t.Run("Removes all compsh.*.zst files", func(t *testing.T) {
		tmpDir := useTempDataDir(t)

		for _, name := range []string{"compsh.1234.zst", "compsh.5678.zst", "compsh.zst", "other.log"} {
			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("log"), 0644))
		}

		require.NoError(t, CleanLogFiles())

		assert.Empty(t, listLogFiles(t, tmpDir))
		_, err := os.Stat(filepath.Join(tmpDir, "other.log"))
		assert.NoError(t, err, "Other file should not be removed")
	})

	t.Run("Handles empty directory", func(t *testing.T) {
		useTempDataDir(t)
		assert.NoError(t, CleanLogFiles())
	})
}

func TestRotateLogFiles(t *testing.T) {
	t.Run("Keeps most recent 10 log files", func(t *testing.T) {
		tmpDir := useTempDataDir(t)

		now := time.Now()
		for i := 1; i <= 15; i++ {
			logFile := filepath.Join(tmpDir, fmt.Sprintf("compsh.%d.zst", i))
			// newest = lowest number
			modTime := now.Add(-time.Duration(i) * time.Minute)
			require.NoError(t, os.WriteFile(logFile, []byte("log"), 0644))
			require.NoError(t, os.Chtimes(logFile, modTime, modTime))
		}

		require.NoError(t, RotateLogFiles())

		logFiles := listLogFiles(t, tmpDir)
		assert.Len(t, logFiles, 10)
		for i := 1; i <= 10; i++ {
			assert.Contains(t, logFiles, fmt.Sprintf("compsh.%d.zst", i))
		}
	})

	t.Run("Keeps all files when <= 10", func(t *testing.T) {
		tmpDir := useTempDataDir(t)

		for i := 1; i <= 5; i++ {
			logFile := filepath.Join(tmpDir, fmt.Sprintf("compsh.%d.zst", i))
			require.NoError(t, os.WriteFile(logFile, []byte("log"), 0644))
		}

		require.NoError(t, RotateLogFiles())
		assert.Len(t, listLogFiles(t, tmpDir), 5)
	})

	t.Run("Preserves other files", func(t *testing.T) {
		tmpDir := useTempDataDir(t)

		for i := 1; i <= 12; i++ {
			logFile := filepath.Join(tmpDir, fmt.Sprintf("compsh.%d.zst", i))
			require.NoError(t, os.WriteFile(logFile, []byte("log"), 0644))
		}
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "completions.db"), []byte("db"), 0644))
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "subdir"), 0755))

		require.NoError(t, RotateLogFiles())

		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		assert.Len(t, listLogFiles(t, tmpDir), 10)
		assert.Len(t, entries, 12)
	})

	t.Run("Handles empty directory", func(t *testing.T) {
		useTempDataDir(t)
		assert.NoError(t, RotateLogFiles())
	})
}
