package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	cases := map[string]bool{
		"materials/1_a.png":     true,
		"materials/nested/x":    true,
		"":                      false,
		"/etc/passwd":           false,
		"materials/../../etc":   false,
		"materials//a.png":      false,
		"./a.png":               false,
		"materials\\..\\secret": false,
	}
	for raw, ok := range cases {
		key, err := CleanKey(raw)
		if ok {
			assert.NoError(t, err, raw)
			assert.Equal(t, raw, key)
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidKey, raw)
	}
}

func TestLocalStoragePutStatGet(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte("hello archive")
	info, err := store.Put(ctx, "materials/1700000000000_note.txt", bytes.NewReader(payload), int64(len(payload)), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	stat, err := store.Stat(ctx, "materials/1700000000000_note.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), stat.Size)
	assert.Equal(t, "text/plain", stat.ContentType)

	rc, _, err := store.Get(ctx, "materials/1700000000000_note.txt")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, body)

	assert.Empty(t, store.URL("materials/1700000000000_note.txt"))
}

func TestLocalStorageMissingAndTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Stat(context.Background(), "materials/missing.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.Put(context.Background(), "../escape.txt", bytes.NewReader(nil), 0, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("b"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "exports", "old.csv"), old, old))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/old.csv"}, deleted)

	_, err = store.Open("exports/new.csv")
	assert.NoError(t, err)
}
