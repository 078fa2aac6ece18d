// Package sql compiles entity operations into parameterized statements for
// one dialect and executes them through database/sql.
//
// The compilers are pure: they read entity metadata and the dialect
// capability row, perform no I/O and keep no state, so one Compiler can be
// shared by any number of goroutines.
//
// # Compiler
//
//	reg := dialect.NewRegistry(dialect.Builtin()...)
//	c, err := sql.NewCompiler(reg, dialect.SQLServer)
//
//	st, err := c.CompileInsert(doc, sql.Values{
//	    "Id":        "a1b2c3",
//	    "Name":      "Q3 report",
//	    "CreatedOn": time.Now(),
//	})
//	// INSERT INTO Documents (Id,Name,CreatedOn) VALUES (@Id,@Name,@CreatedOn)
//
// Every value is bound through a parameter. Parameters carry a ParamKind
// chosen by MapParameterKind, and Statement.Args converts them to the types
// the dialect's driver expects.
//
// # Mutations
//
//   - CompileInsert, CompileUpdate, CompileReplace, CompileDelete: origin table
//   - CompileInsertExtension, CompileUpdateExtension, CompileDeleteExtension: extension table
//   - CompileAssociationSync, CompileAssociationRead: association tables
//
// CompileUpdate returns a nil statement when nothing is left to update.
// ExecAll skips nil statements.
//
// # Queries
//
//	st, err := c.CompileSelect(doc, sql.Query{
//	    Where:    querylanguage.FieldEQ("Status", "Draft"),
//	    Order:    []querylanguage.Order{querylanguage.Desc("CreatedOn")},
//	    PageSize: 20,
//	    Page:     3,
//	})
//
// Pagination follows the capability table: dialects with LIMIT/OFFSET get
// "LIMIT 20 OFFSET 40", the others a ROW_NUMBER() sub-select filtered on
// "BETWEEN 41 AND 60". The primary key always ends the sort so pages are
// stable. CompileCount shares the FROM and WHERE text of CompileSelect.
//
// # Full-Text Search
//
// CompileSearch parses "+alpha beta gamma -delta" into required,
// alternative and excluded terms and renders them per full-text family:
//
//	SQL Server  "alpha*" AND ("beta*" OR "gamma*") AND NOT "delta*"
//	MySQL       +alpha beta gamma -delta
//	PostgreSQL  alpha:* & (beta:* | gamma:*) & !delta:*
//	Oracle      {alpha}% AND ({beta}% OR {gamma}%) NOT {delta}%
//
// A query without required or alternative terms selects nothing.
//
// # Execution
//
// Exec and QueryStatement run a Statement on any dialect.ExecQuerier;
// ExecAsync and QueryAsync wrap the same calls in a Future. StatsDriver and DebugDriver
// decorate a Driver with statistics and logging, and a Journal records
// statements for later replay.
package sql
