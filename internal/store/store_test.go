package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SpecStore {
	t.Helper()
	s, err := NewSpecStore(filepath.Join(t.TempDir(), "completions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveSpecKeepsFirstRegistrationOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveSpec("git", "complete -W add git"))
	require.NoError(t, s.SaveSpec("", "complete -o default -D"))
	require.NoError(t, s.SaveSpec("git", "complete -P x -W add git"))

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"complete -P x -W add git",
		"complete -o default -D",
	}, lines)
}

func TestDeleteSpec(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveSpec("git", "complete -W add git"))
	require.NoError(t, s.SaveSpec("ssh", "complete -A hostname ssh"))
	require.NoError(t, s.DeleteSpec("git"))
	require.NoError(t, s.DeleteSpec("never-saved"))

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"complete -A hostname ssh"}, lines)
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveSpec("git", "complete -W add git"))
	require.NoError(t, s.SaveSpec("ssh", "complete -A hostname ssh"))
	require.NoError(t, s.DeleteAll())

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSessionIDIsStable(t *testing.T) {
	s := newTestStore(t)
	assert.NotEmpty(t, s.SessionID())
	assert.Equal(t, s.SessionID(), s.SessionID())
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completions.db")

	s, err := NewSpecStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSpec("git", "complete -W add git"))
	require.NoError(t, s.Close())

	reopened, err := NewSpecStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	lines, err := reopened.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"complete -W add git"}, lines)
	assert.NotEqual(t, s.SessionID(), reopened.SessionID())
}
