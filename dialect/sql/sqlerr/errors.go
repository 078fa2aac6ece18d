// Package sqlerr classifies driver errors of the supported databases.
//
// Errors are matched on the native codes of the drivers first (SQLSTATE
// for pgx and lib/pq, error numbers for MySQL, SQL Server and Oracle),
// then on message text for drivers that expose no codes, such as SQLite.
package sqlerr

import (
	"errors"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/sijms/go-ora/v2/network"
)

// Class is the kind of failure an error reports.
type Class uint8

// Error classes.
const (
	Unknown Class = iota
	UniqueViolation
	ForeignKeyViolation
	CheckViolation
	DuplicateObject
)

func (c Class) String() string {
	switch c {
	case UniqueViolation:
		return "unique violation"
	case ForeignKeyViolation:
		return "foreign key violation"
	case CheckViolation:
		return "check violation"
	case DuplicateObject:
		return "duplicate object"
	default:
		return "unknown"
	}
}

// codes lists how each database reports one class.
type codes struct {
	state  []string // SQLSTATE
	mysql  []uint16
	mssql  []int32
	oracle []int // ORA-nnnnn
	// mssqlShared is a SQL Server number shared between classes, told apart
	// by mssqlText in the message.
	mssqlShared int32
	mssqlText   string
	text        []string
}

var classes = []struct {
	class Class
	codes codes
}{
	{UniqueViolation, codes{
		state:  []string{"23505"},
		mysql:  []uint16{1062},
		mssql:  []int32{2601, 2627},
		oracle: []int{1},
		text:   []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed", "ORA-00001"},
	}},
	{ForeignKeyViolation, codes{
		state:       []string{"23503"},
		mysql:       []uint16{1451, 1452},
		oracle:      []int{2291, 2292},
		mssqlShared: 547,
		mssqlText:   "FOREIGN KEY",
		text:        []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}},
	{CheckViolation, codes{
		state:       []string{"23514"},
		mysql:       []uint16{3819},
		oracle:      []int{2290},
		mssqlShared: 547,
		mssqlText:   "CHECK",
		text:        []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}},
	// Tables, indexes, full-text indexes and catalogs. Postgres raises
	// 42P07 for existing indexes too; SQL Server 7652 and 7689 are the
	// full-text index and catalog.
	{DuplicateObject, codes{
		state:  []string{"42P07", "42710"},
		mysql:  []uint16{1050, 1061},
		mssql:  []int32{2714, 1913, 7652, 7689},
		oracle: []int{955, 1408},
		text:   []string{"Error 1050", "Error 1061", "ORA-00955", "already exists"},
	}},
}

// native holds the codes found in an error chain.
type native struct {
	state     string
	mysql     *mysql.MySQLError
	mssql     *mssql.Error
	oracle    *network.OracleError
	hasNative bool
}

func inspect(err error) native {
	var n native
	var (
		pgErr *pgconn.PgError
		pqErr *pq.Error
		state interface{ SQLState() string }
	)
	switch {
	case errors.As(err, &state):
		n.state = state.SQLState()
	case errors.As(err, &pgErr):
		n.state = pgErr.Code
	case errors.As(err, &pqErr):
		n.state = string(pqErr.Code)
	}
	errors.As(err, &n.mysql)
	var ms mssql.Error
	if errors.As(err, &ms) {
		n.mssql = &ms
	} else {
		errors.As(err, &n.mssql)
	}
	errors.As(err, &n.oracle)
	n.hasNative = n.state != "" || n.mysql != nil || n.mssql != nil || n.oracle != nil
	return n
}

func (c codes) matchNative(n native) bool {
	switch {
	case n.state != "":
		return slices.Contains(c.state, n.state)
	case n.mysql != nil:
		return slices.Contains(c.mysql, n.mysql.Number)
	case n.mssql != nil:
		if c.mssqlShared != 0 && n.mssql.Number == c.mssqlShared {
			return strings.Contains(n.mssql.Message, c.mssqlText)
		}
		return slices.Contains(c.mssql, n.mssql.Number)
	case n.oracle != nil:
		return slices.Contains(c.oracle, n.oracle.ErrCode)
	}
	return false
}

func (c codes) matchText(msg string) bool {
	return slices.ContainsFunc(c.text, func(s string) bool { return strings.Contains(msg, s) })
}

// Classify returns the class of err, or Unknown.
func Classify(err error) Class {
	if err == nil {
		return Unknown
	}
	if n := inspect(err); n.hasNative {
		for _, c := range classes {
			if c.codes.matchNative(n) {
				return c.class
			}
		}
	}
	msg := err.Error()
	for _, c := range classes {
		if c.codes.matchText(msg) {
			return c.class
		}
	}
	return Unknown
}

// IsConstraintError reports whether err is a unique, foreign key or check
// violation.
func IsConstraintError(err error) bool {
	switch Classify(err) {
	case UniqueViolation, ForeignKeyViolation, CheckViolation:
		return true
	}
	return false
}

// IsUniqueConstraintError reports whether err is a duplicate value in a
// primary key or unique index.
func IsUniqueConstraintError(err error) bool { return Classify(err) == UniqueViolation }

// IsForeignKeyConstraintError reports whether err is a foreign key violation.
func IsForeignKeyConstraintError(err error) bool { return Classify(err) == ForeignKeyViolation }

// IsCheckConstraintError reports whether err is a check constraint violation.
func IsCheckConstraintError(err error) bool { return Classify(err) == CheckViolation }

// IsDuplicateObjectError reports whether a DDL statement failed because the
// table, index, full-text index or catalog it creates already exists.
func IsDuplicateObjectError(err error) bool { return Classify(err) == DuplicateObject }
