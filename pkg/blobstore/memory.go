package blobstore

import (
	"context"
	"fmt"
	"slices"
)

// MemoryBackend keeps blobs in a map. It is the natural match for
// StorageTemporary and the backend of choice in tests.
type MemoryBackend struct{}

// NewMemoryBackend creates an in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Open validates cfg and returns a fresh, empty handle. Each Open produces
// an independent namespace.
func (b *MemoryBackend) Open(ctx context.Context, cfg Config) (Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &memoryHandle{
		blobs: make(map[string][]byte),
		quota: cfg.SizeBytes,
	}, nil
}

type memoryHandle struct {
	blobs map[string][]byte
	quota int64
	used  int64
}

func (h *memoryHandle) Read(ctx context.Context, name string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validateName(name); err != nil {
		return nil, err
	}

	content, ok := h.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	// Clone so callers cannot mutate stored content.
	return slices.Clone(content), nil
}

func (h *memoryHandle) Write(ctx context.Context, name string, content []byte, mode WriteMode) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := validateName(name); err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	existing := int64(len(h.blobs[name]))
	var grown int64
	switch mode {
	case ModeOverwrite:
		grown = h.used - existing + int64(len(content))
	case ModeAppend:
		grown = h.used + int64(len(content))
	}
	if h.quota > 0 && grown > h.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, grown, h.quota)
	}

	switch mode {
	case ModeOverwrite:
		h.blobs[name] = slices.Clone(content)
	case ModeAppend:
		h.blobs[name] = append(h.blobs[name], content...)
	}
	h.used = grown
	return nil
}
