package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/blobgate/pkg/blobstore"
)

type appConfig struct {
	Addr            string        `env:"BLOBD_ADDR" envDefault:":8080"`
	Backend         string        `env:"BLOBD_BACKEND" envDefault:"memory"` // memory|local|redis|s3|postgres
	LocalDir        string        `env:"BLOBD_LOCAL_DIR" envDefault:"./data"`
	LogFormat       string        `env:"BLOBD_LOG_FORMAT" envDefault:"json"` // json|text
	LogLevel        slog.Level    `env:"BLOBD_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"BLOBD_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	Storage  blobstore.Config
	Redis    blobstore.RedisConfig
	S3       blobstore.S3Config
	Postgres blobstore.PostgresConfig
}

func newLogger(cfg appConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newBackend(cfg appConfig) (blobstore.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return blobstore.NewMemoryBackend(), nil
	case "local":
		return blobstore.NewLocalBackend(cfg.LocalDir)
	case "redis":
		return blobstore.NewRedisBackend(cfg.Redis), nil
	case "s3":
		return blobstore.NewS3Backend(cfg.S3), nil
	case "postgres":
		return blobstore.NewPostgresBackend(cfg.Postgres), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", blobstore.ErrInvalidConfig, cfg.Backend)
	}
}
