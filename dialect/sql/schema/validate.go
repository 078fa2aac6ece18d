package schema

import (
	"errors"
	"fmt"
	"strings"

	atlas "ariga.io/atlas/sql/schema"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
)

// Severity ranks an Issue.
type Severity uint8

// Issue severities.
const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue is a problem found in planned tables, or between two generations
// of planned tables.
type Issue struct {
	Severity Severity
	Table    string
	Column   string
	Message  string
	// Breaking marks changes that lose data or that existing rows can reject.
	Breaking bool
}

func (i *Issue) Error() string {
	if i.Column == "" {
		return i.Table + ": " + i.Message
	}
	return i.Table + "." + i.Column + ": " + i.Message
}

// Is reports whether the target error matches polystore.ErrConfiguration.
func (i *Issue) Is(err error) bool {
	return err == polystore.ErrConfiguration
}

// Issues is the outcome of a check, in detection order.
type Issues []*Issue

func (is Issues) filter(s Severity) Issues {
	var out Issues
	for _, i := range is {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Errors returns the issues that fail the check.
func (is Issues) Errors() Issues { return is.filter(Error) }

// Warnings returns the issues that do not fail the check.
func (is Issues) Warnings() Issues { return is.filter(Warning) }

// HasErrors reports whether the check failed.
func (is Issues) HasErrors() bool { return len(is.Errors()) > 0 }

// HasBreakingChanges reports whether any issue, allowed or not, is breaking.
func (is Issues) HasBreakingChanges() bool {
	for _, i := range is {
		if i.Breaking {
			return true
		}
	}
	return false
}

// Err joins the errors, or returns nil if there are none.
func (is Issues) Err() error {
	var errs []error
	for _, i := range is.Errors() {
		errs = append(errs, i)
	}
	return errors.Join(errs...)
}

// String lists one issue per line, prefixed with its severity.
func (is Issues) String() string {
	if len(is) == 0 {
		return "no issues"
	}
	lines := make([]string, len(is))
	for n, i := range is {
		lines[n] = i.Severity.String() + ": " + i.Error()
		if i.Breaking {
			lines[n] += " (breaking)"
		}
	}
	return strings.Join(lines, "\n")
}

// allowance is a set of breaking changes downgraded to warnings.
type allowance uint8

const (
	allowDropTable allowance = 1 << iota
	allowDropColumn
	allowDropIndex
	allowNullToNotNull
)

// DiffOption relaxes ValidateDiff.
type DiffOption func(*allowance)

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() DiffOption { return func(a *allowance) { *a |= allowDropTable } }

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() DiffOption { return func(a *allowance) { *a |= allowDropColumn } }

// AllowDropIndex reports dropped indexes as warnings.
func AllowDropIndex() DiffOption { return func(a *allowance) { *a |= allowDropIndex } }

// AllowNullToNotNull reports columns that become NOT NULL as warnings.
func AllowNullToNotNull() DiffOption { return func(a *allowance) { *a |= allowNullToNotNull } }

// checker accumulates issues for one table at a time.
type checker struct {
	allow  allowance
	table  string
	issues Issues
}

func (c *checker) add(s Severity, breaking bool, column, format string, args ...any) {
	c.issues = append(c.issues, &Issue{
		Severity: s,
		Table:    c.table,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
		Breaking: breaking,
	})
}

// unless returns Error, or Warning if the allowance a was granted.
func (c *checker) unless(a allowance) Severity {
	if c.allow&a != 0 {
		return Warning
	}
	return Error
}

// ValidateDiff compares two generations of planned tables, e.g. before and
// after a schema file edit. Provisioning only creates missing objects, so
// every reported change needs a manual migration on existing databases.
//
//	issues := schema.ValidateDiff(previous.Tables, plan.Tables, schema.AllowDropIndex())
//	if issues.HasErrors() {
//	    return issues.Err()
//	}
func ValidateDiff(current, desired []*atlas.Table, opts ...DiffOption) Issues {
	c := &checker{}
	for _, opt := range opts {
		opt(&c.allow)
	}
	want := make(map[string]*atlas.Table, len(desired))
	for _, t := range desired {
		want[t.Name] = t
	}
	for _, have := range current {
		c.table = have.Name
		next, ok := want[have.Name]
		if !ok {
			c.add(c.unless(allowDropTable), true, "", "table dropped")
			continue
		}
		c.diffKey(have, next)
		c.diffColumns(have, next)
		c.diffIndexes(have, next)
	}
	return c.issues
}

func (c *checker) diffKey(have, want *atlas.Table) {
	if from, to := keyColumns(have), keyColumns(want); from != to {
		c.add(Error, true, "", "primary key changes from (%s) to (%s)", from, to)
	}
}

func (c *checker) diffColumns(have, want *atlas.Table) {
	for _, col := range have.Columns {
		if _, ok := want.Column(col.Name); !ok {
			c.add(c.unless(allowDropColumn), true, col.Name, "column dropped")
		}
	}
	for _, to := range want.Columns {
		from, ok := have.Column(to.Name)
		switch {
		case !ok:
			if !to.Type.Null && to.Default == nil {
				c.add(Warning, false, to.Name, "new NOT NULL column has no default, existing rows reject it")
			}
			continue
		case from.Type.Raw != to.Type.Raw:
			c.add(Warning, false, to.Name, "type changes from %s to %s", from.Type.Raw, to.Type.Raw)
		}
		if from.Type.Null && !to.Type.Null {
			c.add(c.unless(allowNullToNotNull), true, to.Name, "becomes NOT NULL, existing NULL values reject it")
		}
		if a, b := textSize(from), textSize(to); b > 0 && b < a {
			c.add(Warning, false, to.Name, "shrinks from %d to %d characters, longer values are truncated", a, b)
		}
	}
}

func (c *checker) diffIndexes(have, want *atlas.Table) {
	for _, idx := range have.Indexes {
		if _, ok := want.Index(idx.Name); !ok {
			c.add(c.unless(allowDropIndex), false, "", "index %s dropped", idx.Name)
		}
	}
	for _, idx := range want.Indexes {
		if _, ok := have.Index(idx.Name); !ok && idx.Unique {
			c.add(Warning, false, "", "new unique index %s, duplicate values reject it", idx.Name)
		}
	}
}

func keyColumns(t *atlas.Table) string {
	if t.PrimaryKey == nil {
		return ""
	}
	names := make([]string, 0, len(t.PrimaryKey.Parts))
	for _, p := range t.PrimaryKey.Parts {
		if p.C != nil {
			names = append(names, p.C.Name)
		}
	}
	return strings.Join(names, ",")
}

// textSize returns the declared size of a text column, zero for other
// columns and unbounded text.
func textSize(c *atlas.Column) int {
	if s, ok := c.Type.Type.(*atlas.StringType); ok {
		return s.Size
	}
	return 0
}

// ValidateTable checks a single planned table: unique column and index
// names, index parts that resolve, and identifiers within the dialect limit.
func ValidateTable(caps *dialect.Capability, t *atlas.Table) Issues {
	c := &checker{table: t.Name}
	c.checkTable(caps, t)
	return c.issues
}

func (c *checker) checkTable(caps *dialect.Capability, t *atlas.Table) {
	tooLong := func(column, kind, name string) {
		if caps.MaxIdentifierLength > 0 && len(name) > caps.MaxIdentifierLength {
			c.add(Error, false, column, "%s name %s exceeds the %s limit of %d characters",
				kind, name, caps.Name, caps.MaxIdentifierLength)
		}
	}
	tooLong("", "table", t.Name)
	if keyColumns(t) == "" {
		c.add(Warning, false, "", "no primary key")
	} else {
		tooLong("", "primary key", t.PrimaryKey.Name)
	}

	columns := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if columns[col.Name] {
			c.add(Error, false, col.Name, "column declared twice")
		}
		columns[col.Name] = true
		tooLong(col.Name, "column", col.Name)
	}

	indexes := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if indexes[idx.Name] {
			c.add(Error, false, "", "index %s declared twice", idx.Name)
		}
		indexes[idx.Name] = true
		tooLong("", "index", idx.Name)
		for _, p := range idx.Parts {
			if p.C == nil {
				continue
			}
			col, ok := t.Column(p.C.Name)
			switch {
			case !ok:
				c.add(Error, false, "", "index %s covers unknown column %s", idx.Name, p.C.Name)
			case fullText(idx) == nil && isUnbounded(col):
				if caps.IndexUnboundedText {
					c.add(Warning, false, col.Name, "index %s covers unbounded text", idx.Name)
				} else {
					c.add(Error, false, col.Name, "index %s covers unbounded text, which %s cannot index; set a max length",
						idx.Name, caps.Name)
				}
			}
		}
	}
}

func isUnbounded(c *atlas.Column) bool {
	switch t := c.Type.Type.(type) {
	case *atlas.StringType:
		return t.Size == 0
	case *atlas.JSONType:
		return true
	}
	return false
}

// ValidateTables checks every table of a plan. A table name may repeat
// only with identical columns, as the shared extension table does across
// entities; the repeat is not checked again.
func ValidateTables(caps *dialect.Capability, tables []*atlas.Table) Issues {
	c := &checker{}
	seen := make(map[string]*atlas.Table, len(tables))
	for _, t := range tables {
		c.table = t.Name
		if prev, ok := seen[t.Name]; ok {
			if !sameColumns(prev, t) {
				c.add(Error, false, "", "table planned twice with different columns")
			}
			continue
		}
		seen[t.Name] = t
		c.checkTable(caps, t)
	}
	return c.issues
}

func sameColumns(a, b *atlas.Table) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i, col := range a.Columns {
		if col.Name != b.Columns[i].Name || col.Type.Raw != b.Columns[i].Type.Raw {
			return false
		}
	}
	return true
}
