package blobstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blobgate/pkg/blobstore"
)

func openLocal(t *testing.T, cfg blobstore.Config) (blobstore.Handle, string) {
	t.Helper()

	dir := t.TempDir()
	backend, err := blobstore.NewLocalBackend(dir)
	require.NoError(t, err)

	h, err := backend.Open(context.Background(), cfg)
	require.NoError(t, err)
	return h, dir
}

func TestNewLocalBackendValidation(t *testing.T) {
	t.Parallel()

	_, err := blobstore.NewLocalBackend("")
	assert.ErrorIs(t, err, blobstore.ErrInvalidConfig)
}

func TestNewLocalBackendCreatesBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "blobs")
	_, err := blobstore.NewLocalBackend(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalReadWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, dir := openLocal(t, blobstore.Config{Kind: blobstore.StoragePersistent})

	t.Run("read missing", func(t *testing.T) {
		_, err := h.Read(ctx, "missing.txt")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("overwrite then read", func(t *testing.T) {
		require.NoError(t, h.Write(ctx, "a.txt", []byte("hello"), blobstore.ModeOverwrite))
		content, err := h.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), content)

		// The blob lands as a plain file under the base dir.
		raw, err := os.ReadFile(filepath.Join(dir, "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), raw)
	})

	t.Run("append", func(t *testing.T) {
		require.NoError(t, h.Write(ctx, "d.txt", []byte("A"), blobstore.ModeOverwrite))
		require.NoError(t, h.Write(ctx, "d.txt", []byte("B"), blobstore.ModeAppend))
		content, err := h.Read(ctx, "d.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("AB"), content)
	})

	t.Run("nested names create directories", func(t *testing.T) {
		require.NoError(t, h.Write(ctx, "notes/2026/aug.txt", []byte("x"), blobstore.ModeOverwrite))
		content, err := h.Read(ctx, "notes/2026/aug.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), content)
	})

	t.Run("invalid mode", func(t *testing.T) {
		err := h.Write(ctx, "a.txt", []byte("x"), "truncate")
		assert.ErrorIs(t, err, blobstore.ErrInvalidMode)
	})
}

func TestLocalPathTraversalRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, _ := openLocal(t, blobstore.Config{Kind: blobstore.StoragePersistent})

	for _, name := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd", "..", ""} {
		_, err := h.Read(ctx, name)
		assert.ErrorIs(t, err, blobstore.ErrInvalidName, "read %q", name)

		err = h.Write(ctx, name, []byte("x"), blobstore.ModeOverwrite)
		assert.ErrorIs(t, err, blobstore.ErrInvalidName, "write %q", name)
	}
}

func TestLocalQuota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, _ := openLocal(t, blobstore.Config{Kind: blobstore.StoragePersistent, SizeBytes: 10})

	require.NoError(t, h.Write(ctx, "a.txt", []byte("12345"), blobstore.ModeOverwrite))
	require.NoError(t, h.Write(ctx, "b.txt", []byte("12345"), blobstore.ModeOverwrite))

	err := h.Write(ctx, "c.txt", []byte("x"), blobstore.ModeOverwrite)
	assert.ErrorIs(t, err, blobstore.ErrQuotaExceeded)

	err = h.Write(ctx, "a.txt", []byte("x"), blobstore.ModeAppend)
	assert.ErrorIs(t, err, blobstore.ErrQuotaExceeded)

	// Replacing an existing blob with one of equal size fits.
	require.NoError(t, h.Write(ctx, "a.txt", []byte("54321"), blobstore.ModeOverwrite))
}

func TestLocalContentSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	backend, err := blobstore.NewLocalBackend(dir)
	require.NoError(t, err)

	cfg := blobstore.Config{Kind: blobstore.StoragePersistent}
	h, err := backend.Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, h.Write(ctx, "a.txt", []byte("persisted"), blobstore.ModeOverwrite))

	// A second handle over the same directory sees the same content.
	reopened, err := blobstore.NewLocalBackend(dir)
	require.NoError(t, err)
	h2, err := reopened.Open(ctx, cfg)
	require.NoError(t, err)

	content, err := h2.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), content)
}
