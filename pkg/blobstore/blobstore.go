package blobstore

import (
	"context"
	"fmt"
	"strings"
)

// StorageKind selects the durability class requested from a backend.
type StorageKind string

const (
	// StorageTemporary requests best-effort storage that may be evicted.
	StorageTemporary StorageKind = "temporary"
	// StoragePersistent requests storage that survives restarts.
	StoragePersistent StorageKind = "persistent"
)

// Valid checks whether the kind is one of the defined values.
func (k StorageKind) Valid() bool {
	return k == StorageTemporary || k == StoragePersistent
}

// WriteMode controls how Write treats existing content.
type WriteMode string

const (
	ModeOverwrite WriteMode = "overwrite"
	ModeAppend    WriteMode = "append"
)

// Valid checks whether the mode is one of the defined values.
func (m WriteMode) Valid() bool {
	return m == ModeOverwrite || m == ModeAppend
}

// Config describes what a caller asks of a backend when opening a handle.
type Config struct {
	// Kind is the requested durability class. Backends that cannot
	// distinguish the two (a remote bucket is always persistent) treat it
	// as advisory.
	Kind StorageKind `env:"BLOBSTORE_KIND" envDefault:"persistent"`

	// SizeBytes is the storage quota. Backends that can measure their
	// usage reject writes that would exceed it with ErrQuotaExceeded;
	// zero means unlimited.
	SizeBytes int64 `env:"BLOBSTORE_SIZE_BYTES" envDefault:"0"`
}

// Validate checks the config before a backend is opened with it.
func (c Config) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown storage kind %q", ErrInvalidConfig, c.Kind)
	}
	if c.SizeBytes < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidConfig, c.SizeBytes)
	}
	return nil
}

// Handle is an opened blob store. Implementations complete every call
// exactly once and never drop an invocation silently. Handles returned by
// the backends in this package are not safe for concurrent use on their
// own; Store serializes access to them.
type Handle interface {
	// Read returns the full content of the named blob, or ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write stores content under name, either replacing or extending
	// existing content depending on mode.
	Write(ctx context.Context, name string, content []byte, mode WriteMode) error
}

// Backend lazily produces a Handle. Open completes exactly once per call,
// with a handle or an error.
type Backend interface {
	Open(ctx context.Context, cfg Config) (Handle, error)
}

// validateName rejects names that are empty or smuggle path components.
// Backend-specific checks (filesystem traversal guards) come on top.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, "\x00") || strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
