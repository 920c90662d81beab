package local

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(root)
	require.NoError(t, err)
	return store, root
}

func TestNewStore_MissingRoot(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestOpen_ReturnsContentAndSize(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tracks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tracks", "night-drive.mp3"), []byte("audio-bytes"), 0o644))

	f, err := store.Open("tracks/night-drive.mp3")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(11), f.Size)
	assert.Equal(t, "night-drive.mp3", f.Name)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestOpen_Missing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Open("tracks/absent.mp3")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_DirectoryIsNotAFile(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tracks"), 0o755))
	_, err := store.Open("tracks")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_RejectsEscapingPaths(t *testing.T) {
	store, _ := newTestStore(t)
	for _, path := range []string{"../secrets.txt", "a/../../etc/passwd", ".."} {
		_, err := store.Open(path)
		assert.ErrorIs(t, err, ErrPathEscapes, path)
	}
}

func TestExists(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "one.mp3"), []byte("x"), 0o644))

	assert.True(t, store.Exists("one.mp3"))
	assert.False(t, store.Exists("two.mp3"))
	assert.False(t, store.Exists("../one.mp3"))
}
