package cli

import (
	"bytes"
	"context"
	stdsql "database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/polystore"
)

const notesYAML = `
entities:
  - name: Note
    key: Id
    fields:
      - {name: Id, type: string, max_len: 32}
      - {name: Name, type: string, max_len: 100, sortable: Name}
`

const notesDDL = `-- Note (mysql)
CREATE TABLE Notes (Id CHAR(32) NOT NULL, Name VARCHAR(100) NOT NULL, CONSTRAINT PK_Notes PRIMARY KEY (Id));
CREATE INDEX IX_Notes_Name ON Notes (Name);

`

// syncBuffer is a bytes.Buffer safe for a writer and a reader running
// concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// workspace changes to a temporary directory holding the notes schema and
// returns its path.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(notesYAML), 0o600))
	return dir
}

func run(ctx context.Context, out io.Writer, args ...string) error {
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), &out, args...)
	return out.String(), err
}

func TestDialectsCommand(t *testing.T) {
	workspace(t)
	out, err := execute(t, "dialects")
	require.NoError(t, err)
	for _, want := range []string{"sqlserver", "mysql", "postgres", "oracle", "row-number", "limit/offset", "pgx", "mssql"} {
		assert.Contains(t, out, want)
	}
}

func TestDDLCommand(t *testing.T) {
	workspace(t)
	out, err := execute(t, "ddl", "--dialect", "mariadb")
	require.NoError(t, err)
	assert.Equal(t, notesDDL, out)

	_, err = execute(t, "ddl", "-d", "mysql", "Person")
	require.Error(t, err)
	assert.True(t, polystore.IsConfigurationError(err))

	_, err = execute(t, "ddl", "-d", "db2")
	require.Error(t, err)
	assert.True(t, polystore.IsUnsupportedDialectError(err))
}

func TestDDLCommandWatch(t *testing.T) {
	dir := workspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- run(ctx, &out, "ddl", "-d", "mysql", "--watch") }()

	require.Eventually(t, func() bool {
		return strings.HasPrefix(out.String(), notesDDL)
	}, 10*time.Second, 20*time.Millisecond)
	assert.NotContains(t, out.String(), "Code")

	changed := notesYAML + "      - {name: Code, type: string, max_len: 10, nillable: true}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(changed), 0o600))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Code VARCHAR(10)")
	}, 10*time.Second, 20*time.Millisecond)
	rest := strings.TrimPrefix(out.String(), notesDDL)
	assert.True(t, strings.HasPrefix(rest, "-- changes\n-- no issues\n\n-- Note (mysql)\n"), rest)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestCompileCommand(t *testing.T) {
	workspace(t)
	out, err := execute(t, "compile", "Note", "-d", "postgres", "--op", "insert", "--set", "Id=n1", "--set", "Name=first")
	require.NoError(t, err)
	assert.Contains(t, out, "-- Note insert\nINSERT INTO Notes (Id,Name) VALUES ($1,$2);\n")
	assert.Contains(t, out, "first")

	out, err = execute(t, "compile", "Note", "-d", "mysql", "--op", "update", "--id", "n1")
	require.NoError(t, err)
	assert.Equal(t, "-- nothing to execute\n", out)

	out, err = execute(t, "compile", "Note", "-d", "mysql", "--op", "exists", "--id", "n1")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT 1 FROM Notes")

	_, err = execute(t, "compile", "Note", "-d", "mysql", "--op", "delete")
	require.Error(t, err)
	assert.True(t, polystore.IsConfigurationError(err))

	_, err = execute(t, "compile", "Note", "--op", "insert", "--set", "Missing=1")
	require.Error(t, err)
	assert.True(t, polystore.IsConfigurationError(err))

	_, err = execute(t, "compile", "Note", "--op", "merge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operation "merge"`)
}

func TestCompileRecordReplay(t *testing.T) {
	dir := workspace(t)
	dsn := filepath.Join(dir, "notes.db")
	db, err := stdsql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("CREATE TABLE Notes (Id CHAR(32) NOT NULL PRIMARY KEY, Name VARCHAR(100) NOT NULL)")
	require.NoError(t, err)

	for _, args := range [][]string{
		{"--set", "Id=n1", "--set", "Name=first"},
		{"--set", "Id=n2", "--set", "Name=second"},
	} {
		_, err := execute(t, append([]string{"compile", "Note", "-d", "mysql", "--op", "insert", "--record"}, args...)...)
		require.NoError(t, err)
	}
	_, err = execute(t, "compile", "Note", "-d", "postgres", "--op", "delete", "--id", "n1", "--record")
	require.Error(t, err, "journal of another dialect")

	_, err = execute(t, "replay")
	require.Error(t, err, "no dsn")

	out, err := execute(t, "replay", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "replayed 2 of 2 statements")

	var names []string
	rows, err := db.Query("SELECT Name FROM Notes ORDER BY Id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"first", "second"}, names)

	// A second replay stops at the duplicate key.
	out, err = execute(t, "replay", "--driver", "sqlite", "--dsn", dsn)
	require.Error(t, err)
	assert.Contains(t, out, "replayed 0 of 2 statements")
}

func TestEnsureCommandRequiresDSN(t *testing.T) {
	workspace(t)
	_, err := execute(t, "ensure", "-d", "mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dsn configured")
}

func TestConfigFile(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polystore.yaml"), []byte("dialect: mysql\nschema: other.yaml\n"), 0o600))
	require.NoError(t, os.Rename(filepath.Join(dir, "schema.yaml"), filepath.Join(dir, "other.yaml")))
	out, err := execute(t, "ddl")
	require.NoError(t, err)
	assert.Equal(t, notesDDL, out)
}
