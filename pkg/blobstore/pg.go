package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig describes how to reach the database backing a PostgresBackend.
type PostgresConfig struct {
	ConnectionURL string        `env:"PG_CONN_URL"`
	TableName     string        `env:"PG_BLOBS_TABLE" envDefault:"blobs"`
	MaxOpenConns  int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
}

// PostgresBackend stores blobs in a single two-column table. Append mode is
// pushed into the database as a bytea concatenation in the upsert, so one
// statement covers both create-new and extend-existing.
type PostgresBackend struct {
	cfg  PostgresConfig
	pool *pgxpool.Pool
}

// PostgresOption configures a PostgresBackend.
type PostgresOption func(*PostgresBackend)

// WithPostgresPool sets a pre-connected pool, skipping the connect/retry
// loop in Open.
func WithPostgresPool(pool *pgxpool.Pool) PostgresOption {
	return func(b *PostgresBackend) {
		b.pool = pool
	}
}

// NewPostgresBackend creates a PostgreSQL-backed blob backend.
func NewPostgresBackend(cfg PostgresConfig, opts ...PostgresOption) *PostgresBackend {
	if cfg.TableName == "" {
		cfg.TableName = "blobs"
	}
	b := &PostgresBackend{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open connects to the database with retries, ensures the blobs table
// exists, and returns a handle. The storage kind in cfg is advisory; the
// quota is left to the database's own limits.
func (b *PostgresBackend) Open(ctx context.Context, cfg Config) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool := b.pool
	if pool == nil {
		var err error
		pool, err = b.connect(ctx)
		if err != nil {
			return nil, err
		}
	}

	// The schema is one table; migrations machinery would be overkill.
	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (name text PRIMARY KEY, content bytea NOT NULL)`,
		pgx.Identifier{b.cfg.TableName}.Sanitize(),
	)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendNotReady, err)
	}

	return &pgHandle{pool: pool, table: pgx.Identifier{b.cfg.TableName}.Sanitize()}, nil
}

func (b *PostgresBackend) connect(ctx context.Context) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(b.cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}
	connConfig.MaxConns = b.cfg.MaxOpenConns

	// Linear backoff between attempts, same discipline as the Redis
	// backend: transient startup races resolve within a few intervals.
	for i := range max(b.cfg.RetryAttempts, 1) {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrBackendNotReady, ctx.Err())
		case <-time.After(time.Duration(i+1) * b.cfg.RetryInterval):
		}
	}

	return nil, ErrBackendNotReady
}

type pgHandle struct {
	pool  *pgxpool.Pool
	table string
}

func (h *pgHandle) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var content []byte
	query := fmt.Sprintf(`SELECT content FROM %s WHERE name = $1`, h.table)
	if err := h.pool.QueryRow(ctx, query, name).Scan(&content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return content, nil
}

func (h *pgHandle) Write(ctx context.Context, name string, content []byte, mode WriteMode) error {
	if err := validateName(name); err != nil {
		return err
	}

	var query string
	switch mode {
	case ModeOverwrite:
		query = fmt.Sprintf(
			`INSERT INTO %s (name, content) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content`, h.table)
	case ModeAppend:
		query = fmt.Sprintf(
			`INSERT INTO %s (name, content) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET content = %s.content || EXCLUDED.content`, h.table, h.table)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	_, err := h.pool.Exec(ctx, query, name, content)
	return err
}
