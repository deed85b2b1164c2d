package blobstore

import "errors"

var (
	// ErrNotFound is returned by Read when the named blob does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for empty names or names that attempt to
	// escape the store's namespace.
	ErrInvalidName = errors.New("invalid blob name")

	// ErrInvalidMode is returned for write modes other than overwrite and append.
	ErrInvalidMode = errors.New("invalid write mode")

	// ErrInvalidConfig signals a bad storage kind, quota, or backend setting.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrQuotaExceeded is returned when a write would push usage past the
	// configured storage quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrBackendNotReady is returned when a backend's service did not
	// become reachable within the configured retry budget.
	ErrBackendNotReady = errors.New("backend did not become ready")

	// Filesystem backend errors.
	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToReadFile        = errors.New("failed to read file")
	ErrFailedToWriteFile       = errors.New("failed to write file")
	ErrFailedToGetAbsolutePath = errors.New("failed to get absolute path")

	// Remote backend errors.
	ErrFailedToParseConnString = errors.New("failed to parse connection string")
	ErrFailedToLoadAWSConfig   = errors.New("failed to load AWS config")
)
