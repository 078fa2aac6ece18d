package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
)

type (
	// Result is an alias to sql.Result.
	Result = sql.Result

	// Rows holds the cursor of a query. Conn.Query fills it in place.
	Rows struct{ ColumnScanner }

	// ColumnScanner is the subset of *sql.Rows that result scanning uses.
	ColumnScanner interface {
		Close() error
		ColumnTypes() ([]*sql.ColumnType, error)
		Columns() ([]string, error)
		Err() error
		Next() bool
		NextResultSet() bool
		Scan(dest ...any) error
	}

	// ExecQuerier is implemented by *sql.DB, *sql.Tx and *sql.Conn.
	ExecQuerier interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	}
)

// Conn adapts an ExecQuerier to dialect.ExecQuerier. Arguments are passed
// as []any, as returned by Statement.Args.
type Conn struct {
	ExecQuerier
}

func argList(args any) ([]any, error) {
	switch args := args.(type) {
	case []any:
		return args, nil
	case nil:
		return nil, errors.New("dialect/sql: missing args, expect []any")
	default:
		return nil, fmt.Errorf("dialect/sql: args of type %T, expect []any", args)
	}
}

// Exec runs a statement. v is nil or a *Result that receives the result.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, err := argList(args)
	if err != nil {
		return err
	}
	dst, ok := v.(*Result)
	if v != nil && !ok {
		return fmt.Errorf("dialect/sql: exec into %T, expect *sql.Result", v)
	}
	res, err := c.ExecContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	if dst != nil {
		*dst = res
	}
	return nil
}

// Query runs a statement and stores its cursor in v, which must be a *Rows.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	dst, ok := v.(*Rows)
	if !ok || dst == nil {
		return fmt.Errorf("dialect/sql: query into %T, expect *sql.Rows", v)
	}
	argv, err := argList(args)
	if err != nil {
		return err
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	dst.ColumnScanner = rows
	return nil
}

// Driver is a dialect.Driver over a *sql.DB.
type Driver struct {
	Conn
	db      *sql.DB
	dialect string
}

var _ dialect.Driver = (*Driver)(nil)

// Open resolves name in the registry and opens a database for it. The
// database/sql driver defaults to the one of the dialect capability.
func Open(reg *dialect.Registry, name, driverName, source string) (*Driver, error) {
	c, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	if driverName == "" {
		driverName = c.DriverName
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", driverName, err)
	}
	return OpenDB(c.Name, db), nil
}

// OpenDB returns a Driver of the canonical dialect name over db.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{db}, db: db, dialect: dialect}
}

// DB returns the underlying database.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the canonical dialect name.
func (d *Driver) Dialect() string { return d.dialect }

// Tx begins a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{tx}, tx: tx}, nil
}

// Close closes the database.
func (d *Driver) Close() error { return d.db.Close() }

// Tx is a dialect.Tx over a *sql.Tx.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// Exec runs a compiled statement that returns no rows.
func Exec(ctx context.Context, ex dialect.ExecQuerier, st *Statement) (Result, error) {
	var res Result
	if err := ex.Exec(ctx, st.Text, st.Args(), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// QueryStatement runs a compiled statement that returns rows. The caller
// closes the rows.
func QueryStatement(ctx context.Context, ex dialect.ExecQuerier, st *Statement) (*Rows, error) {
	rows := &Rows{}
	if err := ex.Query(ctx, st.Text, st.Args(), rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecAll runs the statements in order and stops at the first failure.
// Nil statements, as returned by compilers with nothing to do, are
// skipped.
func ExecAll(ctx context.Context, ex dialect.ExecQuerier, stmts ...*Statement) error {
	for i, st := range stmts {
		if st == nil {
			continue
		}
		if _, err := Exec(ctx, ex, st); err != nil {
			return fmt.Errorf("dialect/sql: statement %d: %w", i, err)
		}
	}
	return nil
}

// QueryValues runs a compiled select and scans every row with ScanValues.
func QueryValues(ctx context.Context, ex dialect.ExecQuerier, st *Statement, e *schema.Entity, v *extension.Variant) (_ []Values, rerr error) {
	rows, err := QueryStatement(ctx, ex, st)
	if err != nil {
		return nil, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	return ScanValues(rows, e, v)
}
