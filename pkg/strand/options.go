package strand

import "log/slog"

type config struct {
	name   string
	logger *slog.Logger
}

// Option configures a Strand.
type Option func(*config)

// WithName sets a name attached to every log record, useful when an
// application runs several strands.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the structured logger. Nil loggers are ignored; without
// this option the strand logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
