package blobstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores each blob as a file under a base directory. All
// operations are confined to the base directory to prevent path traversal.
type LocalBackend struct {
	baseDir string
}

// NewLocalBackend creates a filesystem backend rooted at baseDir. The
// directory is resolved to an absolute path and created if missing.
func NewLocalBackend(baseDir string) (*LocalBackend, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrInvalidConfig)
	}

	// Must resolve to absolute path for security - prevents relative path confusion
	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetAbsolutePath, err)
	}

	// Create directory with restrictive permissions (755 = rwxr-xr-x)
	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	return &LocalBackend{baseDir: absBaseDir}, nil
}

// Open validates cfg and returns a handle over the base directory. The
// quota applies to the combined size of all blobs under it.
func (b *LocalBackend) Open(ctx context.Context, cfg Config) (Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &localHandle{baseDir: b.baseDir, quota: cfg.SizeBytes}, nil
}

type localHandle struct {
	baseDir string
	quota   int64
}

func (h *localHandle) Read(ctx context.Context, name string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	absPath, err := h.resolvePath(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}
	return content, nil
}

func (h *localHandle) Write(ctx context.Context, name string, content []byte, mode WriteMode) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := h.resolvePath(name)
	if err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if err := h.checkQuota(absPath, int64(len(content)), mode); err != nil {
		return err
	}

	if dir := filepath.Dir(absPath); dir != h.baseDir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if mode == ModeAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	// Create with restrictive permissions (644 = rw-r--r--)
	f, err := os.OpenFile(absPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	return nil
}

// checkQuota walks current usage and rejects writes that would exceed the
// configured quota. Overwrites count the replacement size, appends the
// grown size.
func (h *localHandle) checkQuota(absPath string, incoming int64, mode WriteMode) error {
	if h.quota <= 0 {
		return nil
	}

	var used int64
	err := filepath.WalkDir(h.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil // entry vanished mid-walk, ignore
		}
		used += info.Size()
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}

	grown := used + incoming
	if mode == ModeOverwrite {
		if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
			grown -= info.Size()
		}
	}
	if grown > h.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, grown, h.quota)
	}
	return nil
}

// resolvePath validates a blob name and resolves it within the base
// directory, ensuring the result cannot escape it.
func (h *localHandle) resolvePath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(filepath.Join(h.baseDir, filepath.Clean(name)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToGetAbsolutePath, err)
	}

	// Security check: ensure path stays within baseDir (prevents ../ attacks)
	if !strings.HasPrefix(absPath, h.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return absPath, nil
}
