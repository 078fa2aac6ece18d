// Package dialect holds the dialect capability table and the driver
// interfaces shared by the statement compilers and the execution layer.
//
// # Supported Dialects
//
// The set of dialects is closed:
//
//   - SQLServer: SQL Server family (aliases "sqlserver-family", "mssql")
//   - MySQL: MySQL/MariaDB
//   - Postgres: PostgreSQL (aliases "postgresql", "pgx")
//   - Oracle: Oracle family (alias "oracle-family")
//
// # Capability Table
//
// Every dialect-specific decision is read from a Capability row: pagination
// strategy, full-text family, placeholder syntax, identifier limits and the
// default database/sql driver name.
//
//	reg := dialect.NewRegistry(dialect.Builtin()...)
//	caps, err := reg.Lookup("mssql")
//	if err != nil {
//	    // *polystore.UnsupportedDialectError
//	}
//	caps.Pagination() // dialect.PaginateRowNumber
//
// The Registry is constructed explicitly and passed to the components that
// need it. There is no package-level registry.
//
// # Driver Interface
//
// The package defines the Driver interface for statement execution:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The ExecQuerier interface is implemented by both Driver and Tx and is what
// the schema provisioner consumes.
//
// # Sub-packages
//
//   - dialect/sql: statement compilers, type catalog and driver implementation
//   - dialect/sql/schema: DDL generation and schema provisioning
//   - dialect/sql/sqlgraph: driver error classification
package dialect
