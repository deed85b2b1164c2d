package blobstore

import (
	"context"
	"errors"

	"github.com/dmitrymomot/blobgate/pkg/strand"
)

// ErrBackendNil is returned by NewStore when no backend is provided.
var ErrBackendNil = errors.New("backend cannot be nil")

// Store is the caller-facing surface of a blob store: a strand serializing
// every read and write against a single lazily-opened backend handle.
// Operations may be submitted before the handle exists; they queue and run
// in submission order once Open completes. At most one operation is ever
// in flight against the handle, so Handle implementations need no locking.
type Store struct {
	strand *strand.Strand[Handle]
}

// NewStore binds a backend to a fresh strand. The backend is not opened
// until Start is called.
func NewStore(backend Backend, cfg Config, opts ...strand.Option) (*Store, error) {
	if backend == nil {
		return nil, ErrBackendNil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := strand.New(func(ctx context.Context) (Handle, error) {
		return backend.Open(ctx, cfg)
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{strand: s}, nil
}

// Start opens the backend in the background. Until the handle is ready,
// submitted operations queue; if opening fails, queued operations receive
// the error and the store becomes terminally unavailable.
func (s *Store) Start(ctx context.Context) error {
	return s.strand.Start(ctx)
}

// Close rejects future operations and fails queued ones with
// strand.ErrClosed. An operation already in flight runs to completion.
func (s *Store) Close() error {
	return s.strand.Close()
}

// Read returns the content of the named blob, waiting for its turn in the
// queue. If ctx is cancelled first, Read returns ctx.Err() but the
// operation still executes in order.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	var content []byte
	err := s.strand.Call(ctx, func(ctx context.Context, h Handle) error {
		var err error
		content, err = h.Read(ctx, name)
		return err
	})
	return content, err
}

// Write stores content under name, waiting for its turn in the queue.
func (s *Store) Write(ctx context.Context, name string, content []byte, mode WriteMode) error {
	return s.strand.Call(ctx, func(ctx context.Context, h Handle) error {
		return h.Write(ctx, name, content, mode)
	})
}

// SubmitRead enqueues a read and returns immediately; done receives the
// content or the error exactly once.
func (s *Store) SubmitRead(name string, done func([]byte, error)) error {
	var content []byte
	return s.strand.Submit(func(ctx context.Context, h Handle) error {
		var err error
		content, err = h.Read(ctx, name)
		return err
	}, func(err error) {
		if done != nil {
			done(content, err)
		}
	})
}

// SubmitWrite enqueues a write and returns immediately; done receives the
// result exactly once.
func (s *Store) SubmitWrite(name string, content []byte, mode WriteMode, done func(error)) error {
	return s.strand.Submit(func(ctx context.Context, h Handle) error {
		return h.Write(ctx, name, content, mode)
	}, done)
}

// Ready reports whether the store can start an operation right now.
func (s *Store) Ready() bool {
	return s.strand.Ready()
}

// Err returns a non-nil error only for terminal states: the backend failed
// to open, or the store was closed. A busy or still-initializing store
// returns nil.
func (s *Store) Err() error {
	return s.strand.Err()
}

// Len returns the number of queued, not yet started operations.
func (s *Store) Len() int {
	return s.strand.Len()
}
