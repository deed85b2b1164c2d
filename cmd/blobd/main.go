package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/blobgate/pkg/blobstore"
	"github.com/dmitrymomot/blobgate/pkg/strand"
)

func main() {
	// The .env file might not exist and that's ok.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[appConfig]()
	if err != nil {
		slog.Error("failed to parse configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("blobd exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg appConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	store, err := blobstore.NewStore(backend, cfg.Storage,
		strand.WithName("blobd"),
		strand.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Initialization runs in the background; requests arriving before the
	// backend is ready queue up and execute in order once it is.
	if err := store.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newRouter(store, logger),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("blobd started",
		slog.String("addr", cfg.Addr),
		slog.String("backend", cfg.Backend),
		slog.String("storage_kind", string(cfg.Storage.Kind)))

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return runErr
	}

	logger.Info("blobd stopped")
	return nil
}
