package schema

import (
	"strconv"
	"strings"

	atlas "ariga.io/atlas/sql/schema"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

// DefaultFullTextCatalog is the catalog created for dialects that need a
// default full-text catalog before any full-text index.
const DefaultFullTextCatalog = "DefaultCatalog"

// LinkageIndex is the group name of the composite linkage index of the
// extension table.
const LinkageIndex = "Linkage"

// PrimaryKeyName returns the primary key constraint name of a table.
func PrimaryKeyName(table string) string {
	return "PK_" + table
}

// FullTextIndexName returns the full-text index name of a table. Dialects
// that index one column per full-text index pass the column.
func FullTextIndexName(table, column string) string {
	if column != "" {
		return "FT_" + table + "_" + column
	}
	return "FT_" + table
}

// FullText marks an atlas index as a full-text index.
type FullText struct {
	atlas.Attr
	// Catalog is the full-text catalog the index lives in, if the dialect
	// has catalogs.
	Catalog string
}

// fullText returns the full-text attribute of the index, or nil.
func fullText(idx *atlas.Index) *FullText {
	for _, a := range idx.Attrs {
		if ft, ok := a.(*FullText); ok {
			return ft
		}
	}
	return nil
}

// column converts an attribute descriptor to an atlas column typed with
// the dialect catalog.
func (g *Generator) column(a *field.Descriptor, null bool) (*atlas.Column, error) {
	raw, err := sql.MapColumnTypeString(a, g.caps.Name)
	if err != nil {
		return nil, err
	}
	return &atlas.Column{
		Name: a.StorageColumn(),
		Type: &atlas.ColumnType{Type: columnType(a, raw), Raw: raw, Null: null},
	}, nil
}

// declaredSize returns n of a raw type written as T(n), or zero for types
// without a numeric length such as TEXT or NVARCHAR(MAX).
func declaredSize(raw string) int {
	i := strings.LastIndexByte(raw, '(')
	if i < 0 || !strings.HasSuffix(raw, ")") {
		return 0
	}
	n, err := strconv.Atoi(raw[i+1 : len(raw)-1])
	if err != nil {
		return 0
	}
	return n
}

// columnType returns the atlas type of a column; the raw dialect type is
// kept as the type name.
func columnType(a *field.Descriptor, raw string) atlas.Type {
	switch {
	case a.StoredAsJSON:
		return &atlas.JSONType{T: raw}
	case a.StoredAsString:
		return &atlas.StringType{T: raw, Size: len(sql.DateLayout)}
	case a.IdentifierShaped():
		size := a.MaxLength
		if size == 0 {
			size = field.DefaultIdentifierLength
		}
		return &atlas.StringType{T: raw, Size: size}
	case a.CLOB:
		return &atlas.StringType{T: raw}
	}
	switch a.Type {
	case field.TypeString:
		size := a.MaxLength
		if size == 0 {
			size = declaredSize(raw)
		}
		return &atlas.StringType{T: raw, Size: size}
	case field.TypeEnum:
		if a.EnumString {
			size := a.MaxLength
			if size == 0 {
				size = sql.DefaultEnumLength
			}
			return &atlas.StringType{T: raw, Size: size}
		}
		return &atlas.IntegerType{T: raw}
	case field.TypeInt32, field.TypeInt64:
		return &atlas.IntegerType{T: raw}
	case field.TypeFloat64:
		return &atlas.FloatType{T: raw}
	case field.TypeDecimal:
		return &atlas.DecimalType{T: raw, Precision: 19, Scale: 5}
	case field.TypeBool:
		return &atlas.BoolType{T: raw}
	case field.TypeTime:
		return &atlas.TimeType{T: raw}
	case field.TypeUUID:
		return &atlas.UUIDType{T: raw}
	case field.TypeBytes:
		return &atlas.BinaryType{T: raw}
	default:
		return &atlas.UnsupportedType{T: raw}
	}
}

// newTable returns a table with the given columns and a primary key over
// the named columns.
func newTable(name string, cols []*atlas.Column, pk ...string) *atlas.Table {
	t := atlas.NewTable(name).AddColumns(cols...)
	key := atlas.NewPrimaryKey().SetName(PrimaryKeyName(name))
	for _, c := range pk {
		if col, ok := t.Column(c); ok {
			key.AddColumns(col)
		}
	}
	t.SetPrimaryKey(key)
	return t
}

// addIndex appends an index over the named columns of t.
func addIndex(t *atlas.Table, name string, unique bool, cols ...string) *atlas.Index {
	idx := atlas.NewIndex(name).SetUnique(unique)
	for _, c := range cols {
		if col, ok := t.Column(c); ok {
			idx.AddColumns(col)
		} else {
			idx.AddParts(&atlas.IndexPart{C: &atlas.Column{Name: c}})
		}
	}
	t.AddIndexes(idx)
	return idx
}

// OriginTable returns the origin table of an entity: one column per
// persisted attribute, the primary key, the attribute index groups and the
// full-text index when the entity is searchable.
func (g *Generator) OriginTable(e *schema.Entity) (*atlas.Table, error) {
	pk := e.PrimaryKey()
	var cols []*atlas.Column
	for _, a := range e.Columns() {
		c, err := g.column(a, a.Nullable && a != pk)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	t := newTable(e.Table(), cols, pk.StorageColumn())
	for _, d := range e.Indexes() {
		names := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			if a, ok := e.Attribute(f); ok {
				names[i] = a.StorageColumn()
			} else {
				names[i] = f
			}
		}
		addIndex(t, d.Name(e.Table()), d.Unique, names...)
	}
	if e.Searchable() {
		g.addFullText(t, e.SearchableAttributes())
	}
	return t, nil
}

// addFullText adds the full-text indexes of the searchable columns. Oracle
// Text indexes a single column per index; the other dialects index all
// columns together.
func (g *Generator) addFullText(t *atlas.Table, attrs []*field.Descriptor) {
	cols := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = a.StorageColumn()
	}
	attr := &FullText{}
	if g.caps.FullTextCatalog {
		attr.Catalog = DefaultFullTextCatalog
	}
	switch g.caps.FullText {
	case dialect.FullTextOracleText:
		for _, c := range cols {
			addIndex(t, FullTextIndexName(t.Name, c), false, c).AddAttrs(attr)
		}
	case dialect.FullTextTSQuery:
		idx := atlas.NewIndex(FullTextIndexName(t.Name, "")).AddAttrs(attr)
		idx.AddExprs(&atlas.RawExpr{X: sql.TSVector(g.caps.TextSearchConfig, cols...)})
		t.AddIndexes(idx)
	default:
		addIndex(t, FullTextIndexName(t.Name, ""), false, cols...).AddAttrs(attr)
	}
}

// ExtensionTable returns the shared extension table: the linkage columns,
// one nullable column per slot of the layout, a primary key over the
// object and variant, the composite linkage index and one index per
// indexable slot.
func (g *Generator) ExtensionTable(name string) (*atlas.Table, error) {
	var cols []*atlas.Column
	for _, c := range extension.LinkageColumns() {
		col, err := g.column(&field.Descriptor{Name: c, Type: field.TypeString, MaxLength: extension.VariantIDLength}, false)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	slots := g.layout.Slots()
	for _, s := range slots {
		col, err := g.column(s.Descriptor(), true)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	t := newTable(name, cols, extension.ObjectColumn, extension.VariantColumn)
	addIndex(t, "IX_"+name+"_"+LinkageIndex, false, extension.LinkageColumns()...)
	for _, s := range slots {
		if s.Kind.Indexable() {
			addIndex(t, "IX_"+name+"_"+s.Column, false, s.Column)
		}
	}
	return t, nil
}

// AssociationTable returns the association table of a Mappings attribute,
// keyed by the owner id and the mapped id.
func (g *Generator) AssociationTable(e *schema.Entity, a *field.Descriptor) (*atlas.Table, error) {
	link, err := g.column(edge.LinkDescriptor(e.PrimaryKey()), false)
	if err != nil {
		return nil, err
	}
	mapped, err := g.column(edge.MappedDescriptor(a), false)
	if err != nil {
		return nil, err
	}
	return newTable(e.AssociationTable(a), []*atlas.Column{link, mapped}, edge.LinkColumn, edge.MappedColumn), nil
}
