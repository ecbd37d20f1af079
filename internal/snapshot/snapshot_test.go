package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPutWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocal(filepath.Join(dir, "snaps"))
	require.NoError(t, err)

	uri, err := store.Put(context.Background(), "golang/p1-empty.html", []byte("<html></html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(filepath.Join(dir, "snaps", "golang", "p1-empty.html"))
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(data))
}

func TestLocalRejectsTraversalAndBlankKeys(t *testing.T) {
	t.Parallel()

	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.html", []byte("x"))
	require.ErrorContains(t, err, "path traversal")
	_, err = store.Put(context.Background(), "  ", []byte("x"))
	require.Error(t, err)
}

func TestNewLocalValidation(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = NewLocal(file)
	require.ErrorContains(t, err, "not a directory")
}

func TestMemoryPutCopies(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	html := []byte("<html>a</html>")
	uri, err := store.Put(context.Background(), "k", html)
	require.NoError(t, err)
	require.Equal(t, "memory://k", uri)

	html[6] = 'b'
	got, ok := store.Get("k")
	require.True(t, ok)
	require.Equal(t, "<html>a</html>", string(got))
}

func TestNewGCSValidation(t *testing.T) {
	t.Parallel()

	_, err := NewGCS(nil, "bucket", "")
	require.Error(t, err)
	_, err = NewGCS(nil, "", "")
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "golang/a.html", objectName("", "/golang/a.html"))
	require.Equal(t, "snapshots/golang/a.html", objectName("snapshots", "golang/a.html"))
}
