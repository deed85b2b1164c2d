// Package blobstore provides named blob storage over pluggable backends,
// fronted by a single-flight FIFO queue (pkg/strand) so that backends never
// see concurrent operations.
//
// A Backend lazily produces a Handle exposing two operations: Read and
// Write, where Write either overwrites or appends. Store binds a Backend to
// a strand and is the surface applications use; operations may be submitted
// before the backend has finished opening and run in submission order once
// it has.
//
// # Backends
//
//   - MemoryBackend   — map-backed, quota-enforcing; tests and temporary storage
//   - LocalBackend    — one file per blob under a base directory, quota-enforcing
//   - RedisBackend    — one string value per blob, append via APPEND
//   - S3Backend       — one object per blob, append via read-modify-write
//   - PostgresBackend — one row per blob, append pushed into the upsert
//
// # Usage
//
//	backend, err := blobstore.NewLocalBackend("/var/lib/blobgate")
//	if err != nil {
//	    return err
//	}
//
//	store, err := blobstore.NewStore(backend, blobstore.Config{
//	    Kind:      blobstore.StoragePersistent,
//	    SizeBytes: 100 << 20,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.Start(ctx); err != nil {
//	    return err
//	}
//
//	if err := store.Write(ctx, "a.txt", []byte("hello"), blobstore.ModeOverwrite); err != nil {
//	    return err
//	}
//	content, err := store.Read(ctx, "a.txt")
//
// # Error Handling
//
// Reads of missing blobs return ErrNotFound; writes past the quota return
// ErrQuotaExceeded (on backends that can measure usage). Operation errors
// are local to the operation that produced them: the queue continues. If
// the backend fails to open, queued operations receive the error and the
// store rejects further submissions with strand.ErrUnavailable.
package blobstore
