package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
)

func registry() *dialect.Registry {
	return dialect.NewRegistry(dialect.Builtin()...)
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.StringP("dialect", "d", "", "")
	fs.String("dsn", "", "")
	fs.String("log-level", "", "")
	fs.Duration("slow-threshold", 0, "")
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polystore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
dialect: mysql
dsn: file-dsn
log_level: warn
slow_threshold: 250ms
schema: entities.yaml
`)
	t.Setenv("POLYSTORE_DSN", "env-dsn")
	t.Setenv("POLYSTORE_LOG_LEVEL", "debug")

	fs := flagSet()
	require.NoError(t, fs.Parse([]string{"--log-level", "error", "--slow-threshold", "2s"}))
	cfg, used, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "mysql", cfg.Dialect)
	assert.Equal(t, "env-dsn", cfg.DSN)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.SlowThreshold)
	assert.Equal(t, "entities.yaml", cfg.Schema)
	assert.Equal(t, DefaultJournal, cfg.Journal)
}

func TestLoadConfigFileLookup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polystore.yml"), []byte("dialect: oracle\n"), 0o600))
	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "polystore.yml", used)
	assert.Equal(t, "oracle", cfg.Dialect)
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfig(t, "dialect: [unterminated\n")
	_, _, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		dialect string
		check   func(error) bool
	}{
		{name: "alias", cfg: Config{Dialect: "postgresql", LogLevel: "info"}, dialect: dialect.Postgres},
		{name: "mssql", cfg: Config{Dialect: "mssql", LogLevel: "DEBUG"}, dialect: dialect.SQLServer},
		{name: "unknown dialect", cfg: Config{Dialect: "db2", LogLevel: "info"}, check: polystore.IsUnsupportedDialectError},
		{name: "bad level", cfg: Config{Dialect: "mysql", LogLevel: "loud"}, check: func(err error) bool { return err != nil }},
		{name: "negative threshold", cfg: Config{Dialect: "mysql", LogLevel: "info", SlowThreshold: -time.Second}, check: func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(registry())
			if tt.check != nil {
				require.Error(t, err)
				assert.True(t, tt.check(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, tt.cfg.Dialect)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn"}
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "object", "Notes")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN msg=shown object=Notes")
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Default(), FromContext(ctx))
	assert.NotNil(t, Logger(ctx))

	cfg := &Config{Dialect: dialect.MySQL}
	logger := slog.New(slog.DiscardHandler)
	ctx = NewContext(ctx, cfg, logger)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Same(t, logger, Logger(ctx))
}

func TestRequireDSN(t *testing.T) {
	assert.Error(t, (&Config{}).RequireDSN())
	assert.NoError(t, (&Config{DSN: "x"}).RequireDSN())
}
