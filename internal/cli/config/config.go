// Package config provides configuration management for the polystore CLI.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/syssam/polystore/dialect"
)

// Default configuration values.
const (
	DefaultDialect       = dialect.SQLServer
	DefaultSchema        = "schema.yaml"
	DefaultLogLevel      = "info"
	DefaultJournal       = "statements.journal"
	DefaultSlowThreshold = 100 * time.Millisecond
)

// Config holds all CLI configuration options.
type Config struct {
	Dialect       string        `koanf:"dialect"`
	Driver        string        `koanf:"driver"` // database/sql driver; defaults to the dialect's.
	DSN           string        `koanf:"dsn"`
	Schema        string        `koanf:"schema"`
	LogLevel      string        `koanf:"log_level"`
	Journal       string        `koanf:"journal"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Dialect:       DefaultDialect,
		Schema:        DefaultSchema,
		LogLevel:      DefaultLogLevel,
		Journal:       DefaultJournal,
		SlowThreshold: DefaultSlowThreshold,
	}
}

// Validate resolves the dialect to its canonical name and checks the log
// level.
func (c *Config) Validate(reg *dialect.Registry) error {
	name, err := reg.Canonical(c.Dialect)
	if err != nil {
		return err
	}
	c.Dialect = name
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.SlowThreshold < 0 {
		return fmt.Errorf("config: negative slow_threshold %s", c.SlowThreshold)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// RequireDSN reports an error when no data source is configured.
func (c *Config) RequireDSN() error {
	if c.DSN == "" {
		return fmt.Errorf("config: no dsn configured (set --dsn, POLYSTORE_DSN or dsn in the config file)")
	}
	return nil
}

type (
	configKey struct{}
	loggerKey struct{}
)

// NewContext returns a context carrying the configuration and the logger.
func NewContext(ctx context.Context, cfg *Config, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey{}, cfg)
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the configuration from the command context.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}

// Logger retrieves the logger from the command context.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
