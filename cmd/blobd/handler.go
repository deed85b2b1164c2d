package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/blobgate/pkg/blobstore"
	"github.com/dmitrymomot/blobgate/pkg/strand"
)

func newRouter(store *blobstore.Store, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		// Busy and still-initializing both count as healthy; only the
		// terminal states (failed backend, closed store) do not.
		if store.Err() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Wildcard instead of a single URL param so blob names may contain
	// slashes ("notes/2026/aug.txt").
	r.Get("/v1/blobs/*", handleRead(store, logger))
	r.Put("/v1/blobs/*", handleWrite(store, logger))

	return r
}

func handleRead(store *blobstore.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "*")

		content, err := store.Read(req.Context(), name)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(content)
	}
}

func handleWrite(store *blobstore.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "*")

		mode := blobstore.WriteMode(req.URL.Query().Get("mode"))
		if mode == "" {
			mode = blobstore.ModeOverwrite
		}

		content, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		if err := store.Write(req.Context(), name, content, mode); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, blobstore.ErrInvalidName), errors.Is(err, blobstore.ErrInvalidMode):
		status = http.StatusBadRequest
	case errors.Is(err, blobstore.ErrQuotaExceeded):
		status = http.StatusInsufficientStorage
	case errors.Is(err, strand.ErrUnavailable), errors.Is(err, strand.ErrClosed):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
