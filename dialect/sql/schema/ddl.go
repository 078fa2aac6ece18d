package schema

import (
	"context"
	"fmt"
	"strings"

	atlas "ariga.io/atlas/sql/schema"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
)

// ObjectKind is the kind of a provisioned schema object.
type ObjectKind uint8

// Object kinds, in provisioning order.
const (
	KindTable ObjectKind = iota
	KindIndex
	KindUniqueIndex
	KindFullTextCatalog
	KindFullTextIndex
	KindExtensionTable
	KindAssociationTable
)

var objectKindNames = [...]string{
	KindTable:            "table",
	KindIndex:            "index",
	KindUniqueIndex:      "unique index",
	KindFullTextCatalog:  "full-text catalog",
	KindFullTextIndex:    "full-text index",
	KindExtensionTable:   "extension table",
	KindAssociationTable: "association table",
}

func (k ObjectKind) String() string {
	if int(k) < len(objectKindNames) {
		return objectKindNames[k]
	}
	return fmt.Sprintf("ObjectKind(%d)", k)
}

// Object is one schema object: the statement probing its existence and
// the DDL statement creating it.
type Object struct {
	Kind      ObjectKind
	Name      string
	Table     string // owning table; empty for catalogs.
	Probe     *sql.Statement
	Statement string
}

// Describe returns a human-readable description of the object.
func (o *Object) Describe() string {
	if o.Table == "" || o.Table == o.Name {
		return o.Kind.String() + " " + o.Name
	}
	return o.Kind.String() + " " + o.Name + " on " + o.Table
}

// Plan is the DDL of one entity in one dialect.
type Plan struct {
	Entity  string
	Dialect string
	// Tables are the modelled tables: the origin table, the extension
	// table and the association tables.
	Tables  []*atlas.Table
	Objects []*Object
}

// Statements returns the DDL statements of every object in order.
func (p *Plan) Statements() []string {
	stmts := make([]string, len(p.Objects))
	for i, o := range p.Objects {
		stmts[i] = o.Statement
	}
	return stmts
}

// Generator renders the DDL of entities in one dialect. It holds no state
// beyond its configuration and is safe for concurrent use.
type Generator struct {
	caps   *dialect.Capability
	layout extension.Layout
}

// NewGenerator returns a generator for the named dialect.
func NewGenerator(reg *dialect.Registry, name string, opts ...Option) (*Generator, error) {
	return newGenerator(reg, name, newConfig(opts))
}

func newGenerator(reg *dialect.Registry, name string, cfg *config) (*Generator, error) {
	caps, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	switch caps.Name {
	case dialect.SQLServer, dialect.MySQL, dialect.Postgres, dialect.Oracle:
	default:
		return nil, &polystore.UnsupportedDialectError{Name: caps.Name, Available: []string{dialect.MySQL, dialect.Oracle, dialect.Postgres, dialect.SQLServer}}
	}
	return &Generator{caps: caps, layout: cfg.layout}, nil
}

// Dialect returns the capability row of the generator.
func (g *Generator) Dialect() *dialect.Capability {
	return g.caps
}

// Plan models the tables of an entity, validates them and renders one
// object per table, index and catalog. Validation errors are reported
// before any statement exists.
func (g *Generator) Plan(e *schema.Entity) (*Plan, error) {
	p := &Plan{Entity: e.Name(), Dialect: g.caps.Name}
	origin, err := g.OriginTable(e)
	if err != nil {
		return nil, fmt.Errorf("schema: plan %s: %w", e.Name(), err)
	}
	p.Tables = append(p.Tables, origin)
	var ext *atlas.Table
	if e.Extendable() {
		if ext, err = g.ExtensionTable(e.ExtensionTable()); err != nil {
			return nil, fmt.Errorf("schema: plan %s: %w", e.Name(), err)
		}
		p.Tables = append(p.Tables, ext)
	}
	var assoc []*atlas.Table
	for _, a := range e.Mappings() {
		t, err := g.AssociationTable(e, a)
		if err != nil {
			return nil, fmt.Errorf("schema: plan %s: %w", e.Name(), err)
		}
		assoc = append(assoc, t)
	}
	p.Tables = append(p.Tables, assoc...)
	if res := ValidateTables(g.caps, p.Tables); res.HasErrors() {
		return nil, fmt.Errorf("schema: plan %s: %w", e.Name(), res.Err())
	}

	g.tableObjects(p, origin, KindTable)
	if ext != nil {
		g.tableObjects(p, ext, KindExtensionTable)
	}
	for _, t := range assoc {
		g.tableObjects(p, t, KindAssociationTable)
	}
	return p, nil
}

// PlanAll plans the entities concurrently. Plans are returned in entity
// order; the first failure cancels the remaining work.
func (g *Generator) PlanAll(ctx context.Context, entities ...*schema.Entity) ([]*Plan, error) {
	plans := make([]*Plan, len(entities))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, e := range entities {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			p, err := g.Plan(e)
			if err != nil {
				return err
			}
			plans[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// tableObjects appends the objects of a table: the table itself, then its
// indexes. The default full-text catalog precedes the first full-text
// index when the dialect needs one.
func (g *Generator) tableObjects(p *Plan, t *atlas.Table, kind ObjectKind) {
	p.Objects = append(p.Objects, &Object{
		Kind:      kind,
		Name:      t.Name,
		Table:     t.Name,
		Probe:     g.tableProbe(t.Name),
		Statement: g.createTable(t),
	})
	catalog := false
	for _, idx := range t.Indexes {
		ft := fullText(idx)
		switch {
		case ft == nil:
			ik := KindIndex
			if idx.Unique {
				ik = KindUniqueIndex
			}
			p.Objects = append(p.Objects, &Object{
				Kind:      ik,
				Name:      idx.Name,
				Table:     t.Name,
				Probe:     g.indexProbe(t.Name, idx.Name),
				Statement: g.createIndex(t, idx),
			})
		default:
			if ft.Catalog != "" && !catalog {
				catalog = true
				p.Objects = append(p.Objects, &Object{
					Kind:      KindFullTextCatalog,
					Name:      ft.Catalog,
					Probe:     g.catalogProbe(),
					Statement: "CREATE FULLTEXT CATALOG " + ft.Catalog + " AS DEFAULT",
				})
			}
			p.Objects = append(p.Objects, &Object{
				Kind:      KindFullTextIndex,
				Name:      idx.Name,
				Table:     t.Name,
				Probe:     g.fullTextProbe(t.Name, idx.Name),
				Statement: g.createFullText(t, idx),
			})
		}
	}
}

func (g *Generator) createTable(t *atlas.Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE " + t.Name + " (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name + " " + c.Type.Raw)
		if !c.Type.Null {
			b.WriteString(" NOT NULL")
		}
	}
	if pk := t.PrimaryKey; pk != nil && len(pk.Parts) > 0 {
		b.WriteString(", CONSTRAINT " + pk.Name + " PRIMARY KEY (" + strings.Join(partNames(pk), ", ") + ")")
	}
	b.WriteByte(')')
	return b.String()
}

func (g *Generator) createIndex(t *atlas.Table, idx *atlas.Index) string {
	create := "CREATE INDEX "
	if idx.Unique {
		create = "CREATE UNIQUE INDEX "
	}
	return create + idx.Name + " ON " + t.Name + " (" + strings.Join(partNames(idx), ", ") + ")"
}

func (g *Generator) createFullText(t *atlas.Table, idx *atlas.Index) string {
	parts := strings.Join(partNames(idx), ", ")
	switch g.caps.FullText {
	case dialect.FullTextContainsTable:
		return "CREATE FULLTEXT INDEX ON " + t.Name + " (" + parts + ") KEY INDEX " + t.PrimaryKey.Name
	case dialect.FullTextBooleanMode:
		return "CREATE FULLTEXT INDEX " + idx.Name + " ON " + t.Name + " (" + parts + ")"
	case dialect.FullTextTSQuery:
		return "CREATE INDEX " + idx.Name + " ON " + t.Name + " USING GIN (" + parts + ")"
	default:
		return "CREATE INDEX " + idx.Name + " ON " + t.Name + " (" + parts + ") INDEXTYPE IS CTXSYS.CONTEXT"
	}
}

// partNames returns the column names or expressions of an index.
func partNames(idx *atlas.Index) []string {
	names := make([]string, 0, len(idx.Parts))
	for _, p := range idx.Parts {
		switch {
		case p.C != nil:
			names = append(names, p.C.Name)
		case p.X != nil:
			if x, ok := p.X.(*atlas.RawExpr); ok {
				names = append(names, x.X)
			}
		}
	}
	return names
}

// Existence probes return a single count; a positive count means the
// object exists. Unquoted identifiers fold to lower case in PostgreSQL and
// to upper case in Oracle.

func (g *Generator) tableProbe(table string) *sql.Statement {
	b := sql.NewBuilder(g.caps)
	switch g.caps.Name {
	case dialect.SQLServer:
		b.WriteString("SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA=SCHEMA_NAME() AND TABLE_NAME=")
		b.Arg("TableName", table, sql.KindVariableString, 0)
	case dialect.MySQL:
		b.WriteString("SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA=DATABASE() AND TABLE_NAME=")
		b.Arg("TableName", table, sql.KindVariableString, 0)
	case dialect.Postgres:
		b.WriteString("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema=current_schema() AND table_name=lower(")
		b.Arg("TableName", table, sql.KindVariableString, 0)
		b.Byte(')')
	case dialect.Oracle:
		b.WriteString("SELECT COUNT(*) FROM USER_TABLES WHERE TABLE_NAME=UPPER(")
		b.Arg("TableName", table, sql.KindVariableString, 0)
		b.Byte(')')
	}
	return b.Statement()
}

func (g *Generator) indexProbe(table, index string) *sql.Statement {
	b := sql.NewBuilder(g.caps)
	switch g.caps.Name {
	case dialect.SQLServer:
		b.WriteString("SELECT COUNT(*) FROM sys.indexes WHERE object_id=OBJECT_ID(")
		b.Arg("TableName", table, sql.KindVariableString, 0)
		b.WriteString(") AND name=")
		b.Arg("IndexName", index, sql.KindVariableString, 0)
	case dialect.MySQL:
		b.WriteString("SELECT COUNT(*) FROM INFORMATION_SCHEMA.STATISTICS WHERE TABLE_SCHEMA=DATABASE() AND TABLE_NAME=")
		b.Arg("TableName", table, sql.KindVariableString, 0)
		b.WriteString(" AND INDEX_NAME=")
		b.Arg("IndexName", index, sql.KindVariableString, 0)
	case dialect.Postgres:
		b.WriteString("SELECT COUNT(*) FROM pg_indexes WHERE schemaname=current_schema() AND tablename=lower(")
		b.Arg("TableName", table, sql.KindVariableString, 0)
		b.WriteString(") AND indexname=lower(")
		b.Arg("IndexName", index, sql.KindVariableString, 0)
		b.Byte(')')
	case dialect.Oracle:
		b.WriteString("SELECT COUNT(*) FROM USER_INDEXES WHERE TABLE_NAME=UPPER(")
		b.Arg("TableName", table, sql.KindVariableString, 0)
		b.WriteString(") AND INDEX_NAME=UPPER(")
		b.Arg("IndexName", index, sql.KindVariableString, 0)
		b.Byte(')')
	}
	return b.Statement()
}

// fullTextProbe checks for a full-text index. SQL Server allows one
// unnamed full-text index per table.
func (g *Generator) fullTextProbe(table, index string) *sql.Statement {
	if g.caps.FullText != dialect.FullTextContainsTable {
		return g.indexProbe(table, index)
	}
	b := sql.NewBuilder(g.caps)
	b.WriteString("SELECT COUNT(*) FROM sys.fulltext_indexes WHERE object_id=OBJECT_ID(")
	b.Arg("TableName", table, sql.KindVariableString, 0)
	b.Byte(')')
	return b.Statement()
}

func (g *Generator) catalogProbe() *sql.Statement {
	return sql.NewBuilder(g.caps).
		WriteString("SELECT COUNT(*) FROM sys.fulltext_catalogs WHERE is_default=1").
		Statement()
}
