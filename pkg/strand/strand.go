package strand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blobgate/pkg/gate"
)

// InitFunc asynchronously produces the resource handle a strand serializes
// access to. It is invoked once, in its own goroutine, after Start.
type InitFunc[H any] func(context.Context) (H, error)

// Op is a single unit of work executed against the resource handle. An Op
// may suspend on I/O but its body never runs concurrently with another Op
// on the same strand.
type Op[H any] func(context.Context, H) error

type state int

const (
	stateIdle state = iota // constructed, Start not called yet
	stateInitializing
	stateReady
	stateFailed // initialization failed, terminal
	stateClosed // terminal
)

type task[H any] struct {
	id   uuid.UUID
	op   Op[H]
	done func(error)
}

// Strand serializes operations against a single, lazily-initialized resource
// handle of type H. At most one operation is ever in flight; pending
// operations execute in strict submission order. Operations may be submitted
// before the handle exists and are queued until initialization completes.
//
// All methods are safe for concurrent use.
type Strand[H any] struct {
	init   InitFunc[H]
	ready  *gate.Gate
	logger *slog.Logger

	mu          sync.Mutex
	queue       []*task[H]
	draining    bool
	state       state
	handle      H
	runCtx      context.Context
	initErr     error
	unsubscribe func()
}

// New creates a strand for a resource produced by init. The strand starts
// with an empty queue and a readiness gate reading false; call Start to
// kick off initialization.
func New[H any](init InitFunc[H], opts ...Option) (*Strand[H], error) {
	if init == nil {
		return nil, ErrInitFuncNil
	}

	cfg := &config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if cfg.name != "" {
		logger = logger.With(slog.String("strand", cfg.name))
	}

	s := &Strand[H]{
		init:   init,
		ready:  gate.New(false),
		logger: logger,
	}

	// The strand drives its own queue by observing its readiness gate:
	// every false->true transition is a drain opportunity. The initial
	// replay delivers false and is ignored.
	s.unsubscribe = s.ready.Subscribe(func(ready bool) {
		if ready {
			s.drain()
		}
	})

	return s, nil
}

// Start launches resource initialization in the background. When the
// initializer returns a handle, the readiness gate flips to true, which
// releases any tasks queued in the meantime. If the initializer fails, the
// strand enters a terminal unavailable state: queued tasks receive the
// initialization error and future submissions are rejected.
//
// The context is handed to the initializer and to every task body; cancel
// it only when the strand's resource should be torn down.
func (s *Strand[H]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = stateInitializing
	s.runCtx = ctx
	s.mu.Unlock()

	go func() {
		handle, err := s.init(ctx)
		if err != nil {
			s.failInit(err)
			return
		}

		s.mu.Lock()
		if s.state != stateInitializing {
			// Closed while initializing; drop the handle on the floor.
			s.mu.Unlock()
			return
		}
		s.handle = handle
		s.state = stateReady
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "resource initialized, strand ready")
		s.ready.Set(true)
	}()

	return nil
}

// Submit appends op to the queue and returns immediately; it never blocks
// waiting for execution. The done callback, if non-nil, is invoked exactly
// once with the operation's result, before the next task starts.
//
// Submissions are rejected only in terminal states: ErrUnavailable after a
// failed initialization (wrapped around the cause) and ErrClosed after
// Close.
func (s *Strand[H]) Submit(op Op[H], done func(error)) error {
	if op == nil {
		return ErrOperationNil
	}

	t := &task[H]{id: uuid.New(), op: op, done: done}

	s.mu.Lock()
	switch s.state {
	case stateFailed:
		err := errors.Join(ErrUnavailable, s.initErr)
		s.mu.Unlock()
		return err
	case stateClosed:
		s.mu.Unlock()
		return ErrClosed
	}
	s.queue = append(s.queue, t)
	// Fast path: the queue was empty and the strand is idle. The gate is
	// already true, so no transition will fire to wake the drain loop.
	fastPath := len(s.queue) == 1 && s.ready.Value()
	s.mu.Unlock()

	s.logger.Debug("task submitted", slog.String("task_id", t.id.String()))

	if fastPath {
		s.drain()
	}
	return nil
}

// Call submits op and waits for its completion. If ctx is cancelled first,
// Call returns ctx.Err() but the operation itself still runs to completion
// in submission order; queued work is never cancelled implicitly.
func (s *Strand[H]) Call(ctx context.Context, op Op[H]) error {
	result := make(chan error, 1)
	if err := s.Submit(op, func(err error) { result <- err }); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain is the single guarded dequeue point. Both trigger paths, the
// submission fast path and the gate subscription, land here; the draining
// flag guarantees that a task is never dequeued twice and that a call with
// an empty queue or a drain already in progress is a no-op.
func (s *Strand[H]) drain() {
	s.mu.Lock()
	if s.draining || s.state != stateReady || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.draining = true
	t := s.queue[0]
	s.queue = s.queue[1:]
	handle := s.handle
	ctx := s.runCtx
	s.mu.Unlock()

	// Busy for the whole span of the task, from dequeue to completion.
	s.ready.Set(false)

	s.logger.Debug("task drained", slog.String("task_id", t.id.String()))

	go s.run(ctx, t, handle)
}

// run executes one task and releases the strand. The gate flips back to
// true exactly once per task, on success and error alike, after the task's
// continuation has fired; the resulting transition triggers the next drain.
func (s *Strand[H]) run(ctx context.Context, t *task[H], handle H) {
	err := s.invoke(ctx, t, handle)
	if err != nil {
		s.logger.Debug("task failed", slog.String("task_id", t.id.String()), slog.String("error", err.Error()))
	}

	if t.done != nil {
		t.done(err)
	}

	s.mu.Lock()
	s.draining = false
	s.mu.Unlock()

	s.ready.Set(true)
}

func (s *Strand[H]) invoke(ctx context.Context, t *task[H], handle H) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in task %s: %v", t.id, r)
			s.logger.Error("task panicked", slog.String("task_id", t.id.String()), slog.Any("panic", r))
		}
	}()

	return t.op(ctx, handle)
}

// failInit moves the strand into its terminal unavailable state and fails
// every queued task. Leaving the queue to hang on a dead resource would
// strand callers forever, so the error is fanned out instead.
func (s *Strand[H]) failInit(cause error) {
	s.mu.Lock()
	s.state = stateFailed
	s.initErr = cause
	queued := s.queue
	s.queue = nil
	s.mu.Unlock()

	s.logger.Error("resource initialization failed",
		slog.Int("queued_tasks", len(queued)),
		slog.String("error", cause.Error()))

	err := errors.Join(ErrUnavailable, cause)
	for _, t := range queued {
		if t.done != nil {
			t.done(err)
		}
	}
}

// Close rejects all future submissions and fails tasks still waiting in the
// queue with ErrClosed. A task already in flight runs to completion. Close
// is idempotent.
func (s *Strand[H]) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	queued := s.queue
	s.queue = nil
	s.mu.Unlock()

	s.unsubscribe()

	for _, t := range queued {
		if t.done != nil {
			t.done(ErrClosed)
		}
	}

	s.logger.Info("strand closed", slog.Int("dropped_tasks", len(queued)))
	return nil
}

// Ready reports whether the strand can start a task right now: the resource
// is initialized and no task is in flight.
func (s *Strand[H]) Ready() bool {
	return s.ready.Value()
}

// Err distinguishes the terminal states from plain busyness: it returns the
// initialization error for an unavailable strand, ErrClosed after Close,
// and nil otherwise, including while a task is in flight.
func (s *Strand[H]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateFailed:
		return errors.Join(ErrUnavailable, s.initErr)
	case stateClosed:
		return ErrClosed
	default:
		return nil
	}
}

// Len returns the number of queued, not yet started tasks.
func (s *Strand[H]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
