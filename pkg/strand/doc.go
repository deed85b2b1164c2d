// Package strand serializes asynchronous operations against a single,
// lazily-initialized resource so that at most one operation is ever in
// flight, while callers may submit operations before the resource exists.
//
// A Strand owns a FIFO queue of tasks and a readiness gate (pkg/gate). The
// gate reads false while the resource is initializing and for the entire
// span of a running task; it reads true only when the strand is idle and
// able to admit work. The strand subscribes to its own gate, so every
// false->true transition pulls the next queued task. A submission that
// arrives while the strand is already idle drains immediately, because no
// transition would fire in that case.
//
// # Usage
//
//	s, err := strand.New(func(ctx context.Context) (*sql.DB, error) {
//	    return sql.Open("postgres", dsn)
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//
//	// Fire and forget with a completion callback:
//	_ = s.Submit(func(ctx context.Context, db *sql.DB) error {
//	    _, err := db.ExecContext(ctx, "...")
//	    return err
//	}, func(err error) { log.Println("done:", err) })
//
//	// Or synchronously:
//	err = s.Call(ctx, func(ctx context.Context, db *sql.DB) error {
//	    return db.PingContext(ctx)
//	})
//
// # Guarantees
//
//   - Single flight: task bodies never run concurrently; the handle needs
//     no locking of its own.
//   - Strict FIFO: execution order equals submission order, including for
//     tasks submitted before initialization completed.
//   - No drops, no duplicates: every accepted task runs exactly once and
//     its completion callback fires exactly once.
//   - Errors are local: a failed task does not stall the queue.
//
// # Error Handling
//
// If initialization fails the strand becomes terminally unavailable:
// queued tasks receive the initialization error through their callbacks and
// later submissions return ErrUnavailable. Close likewise fails queued
// tasks with ErrClosed; a task already in flight runs to completion. The
// strand performs no retries; resubmission is the caller's policy.
package strand
