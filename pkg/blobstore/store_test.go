package blobstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blobgate/pkg/blobstore"
	"github.com/dmitrymomot/blobgate/pkg/strand"
)

// gatedBackend delays Open until released, simulating slow backend
// initialization.
type gatedBackend struct {
	release chan struct{}
	inner   blobstore.Backend
}

func (b *gatedBackend) Open(ctx context.Context, cfg blobstore.Config) (blobstore.Handle, error) {
	select {
	case <-b.release:
		return b.inner.Open(ctx, cfg)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// brokenBackend always fails to open.
type brokenBackend struct{ err error }

func (b *brokenBackend) Open(context.Context, blobstore.Config) (blobstore.Handle, error) {
	return nil, b.err
}

func newStore(t *testing.T, cfg blobstore.Config) *blobstore.Store {
	t.Helper()

	store, err := blobstore.NewStore(blobstore.NewMemoryBackend(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Start(context.Background()))
	return store
}

func TestNewStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := blobstore.NewStore(nil, blobstore.Config{Kind: blobstore.StorageTemporary})
	assert.ErrorIs(t, err, blobstore.ErrBackendNil)

	_, err = blobstore.NewStore(blobstore.NewMemoryBackend(), blobstore.Config{Kind: "floppy"})
	assert.ErrorIs(t, err, blobstore.ErrInvalidConfig)
}

// Write then read: the write's callback fires before the read executes,
// and the read observes the written content.
func TestWriteThenRead(t *testing.T) {
	t.Parallel()

	store := newStore(t, blobstore.Config{Kind: blobstore.StorageTemporary})

	var sequence []string
	done := make(chan struct{})

	require.NoError(t, store.SubmitWrite("a.txt", []byte("hello"), blobstore.ModeOverwrite, func(err error) {
		assert.NoError(t, err)
		sequence = append(sequence, "write")
	}))
	require.NoError(t, store.SubmitRead("a.txt", func(content []byte, err error) {
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), content)
		sequence = append(sequence, "read")
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued operations did not complete")
	}
	assert.Equal(t, []string{"write", "read"}, sequence)
}

// Operations submitted before the backend finishes opening are queued, not
// dropped, and run in submission order once it is ready.
func TestOperationsQueueBeforeBackendReady(t *testing.T) {
	t.Parallel()

	backend := &gatedBackend{release: make(chan struct{}), inner: blobstore.NewMemoryBackend()}
	store, err := blobstore.NewStore(backend, blobstore.Config{Kind: blobstore.StorageTemporary})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Start(context.Background()))

	readResult := make(chan error, 1)
	require.NoError(t, store.SubmitRead("b.txt", func(_ []byte, err error) { readResult <- err }))
	require.NoError(t, store.SubmitWrite("b.txt", []byte("late"), blobstore.ModeOverwrite, nil))

	assert.Equal(t, 2, store.Len())
	assert.False(t, store.Ready())

	select {
	case <-readResult:
		t.Fatal("operation ran before backend initialization completed")
	case <-time.After(50 * time.Millisecond):
	}

	close(backend.release)

	// The read was submitted first, so it runs before the write and sees
	// an absent blob.
	assert.ErrorIs(t, <-readResult, blobstore.ErrNotFound)

	content, err := store.Read(context.Background(), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), content)
}

// A failed write fires its error callback, then the next write executes
// unaffected.
func TestFailedWriteDoesNotStallQueue(t *testing.T) {
	t.Parallel()

	// Quota of 5 bytes: the first write is too large and fails, the
	// second fits.
	store := newStore(t, blobstore.Config{Kind: blobstore.StorageTemporary, SizeBytes: 5})
	ctx := context.Background()

	firstErr := make(chan error, 1)
	require.NoError(t, store.SubmitWrite("c.txt", []byte("way too large"), blobstore.ModeOverwrite,
		func(err error) { firstErr <- err }))
	require.NoError(t, store.SubmitWrite("c.txt", []byte("Y"), blobstore.ModeOverwrite, nil))

	assert.ErrorIs(t, <-firstErr, blobstore.ErrQuotaExceeded)

	content, err := store.Read(ctx, "c.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("Y"), content)
}

func TestOverwriteThenAppend(t *testing.T) {
	t.Parallel()

	store := newStore(t, blobstore.Config{Kind: blobstore.StorageTemporary})
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "d.txt", []byte("A"), blobstore.ModeOverwrite))
	require.NoError(t, store.Write(ctx, "d.txt", []byte("B"), blobstore.ModeAppend))

	content, err := store.Read(ctx, "d.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("AB"), content)
}

// A backend that never opens must not strand queued callers: they receive
// the initialization error and later submissions are rejected outright.
func TestBackendOpenFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("bucket gone")
	store, err := blobstore.NewStore(&brokenBackend{err: cause}, blobstore.Config{Kind: blobstore.StoragePersistent})
	require.NoError(t, err)
	defer store.Close()

	queued := make(chan error, 1)
	require.NoError(t, store.SubmitRead("a.txt", func(_ []byte, err error) { queued <- err }))

	require.NoError(t, store.Start(context.Background()))

	err = <-queued
	assert.ErrorIs(t, err, strand.ErrUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = store.Read(context.Background(), "a.txt")
	assert.ErrorIs(t, err, strand.ErrUnavailable)
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	t.Parallel()

	store := newStore(t, blobstore.Config{Kind: blobstore.StorageTemporary})
	require.NoError(t, store.Close())

	err := store.Write(context.Background(), "a.txt", []byte("x"), blobstore.ModeOverwrite)
	assert.ErrorIs(t, err, strand.ErrClosed)
}
