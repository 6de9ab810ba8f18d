package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	t.Run("SaveOpenDelete", func(t *testing.T) {
		size, err := store.Save(ctx, "users/1/abc.txt", strings.NewReader("hello world"))
		require.NoError(t, err)
		assert.Equal(t, int64(11), size)

		exists, err := store.Exists(ctx, "users/1/abc.txt")
		require.NoError(t, err)
		assert.True(t, exists)

		rc, err := store.Open(ctx, "users/1/abc.txt")
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(data))

		assert.Equal(t, filepath.Join(root, "users", "1", "abc.txt"), store.RealPath("users/1/abc.txt"))

		require.NoError(t, store.Delete(ctx, "users/1/abc.txt"))
		require.NoError(t, store.Delete(ctx, "users/1/abc.txt"), "deleting twice is not an error")

		exists, err = store.Exists(ctx, "users/1/abc.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("MissingBlob", func(t *testing.T) {
		_, err := store.Open(ctx, "nope")
		assert.ErrorIs(t, err, ErrBlobNotFound)
	})

	t.Run("DirectoryIsNotABlob", func(t *testing.T) {
		_, err := store.Save(ctx, "dir/inner.txt", strings.NewReader("x"))
		require.NoError(t, err)
		exists, err := store.Exists(ctx, "dir")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("RejectsEscapingKeys", func(t *testing.T) {
		_, err := store.Save(ctx, "../outside.txt", strings.NewReader("x"))
		assert.Error(t, err)
	})
}

func TestLocalStoreSaveReportsFailedClose(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	flushErr := errors.New("disk full")
	closeFile = func(f *os.File) error {
		f.Close()
		return flushErr
	}
	t.Cleanup(func() { closeFile = func(f *os.File) error { return f.Close() } })

	_, err := store.Save(ctx, "users/1/report.pdf", strings.NewReader("partial"))
	assert.ErrorIs(t, err, flushErr)

	exists, err := store.Exists(ctx, "users/1/report.pdf")
	require.NoError(t, err)
	assert.False(t, exists, "a blob that failed to flush is removed")
}
