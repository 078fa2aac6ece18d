package sql

import (
	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/querylanguage"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

// Table aliases used by compiled queries.
const (
	originAlias      = "o"
	extensionAlias   = "x"
	associationAlias = "a"
	fullTextAlias    = "ft"
	pagedAlias       = "paged"
)

// Computed column names of compiled queries.
const (
	RowNumColumn    = "RowNum"
	RelevanceColumn = "Relevance"
)

// Compiler compiles entity operations into statements of one dialect.
// A Compiler holds no mutable state and is safe for concurrent use.
type Compiler struct {
	caps *dialect.Capability
}

// NewCompiler returns a compiler for the named dialect resolved through reg.
func NewCompiler(reg *dialect.Registry, name string) (*Compiler, error) {
	c, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &Compiler{caps: c}, nil
}

// Dialect returns the capabilities of the compiler's dialect.
func (c *Compiler) Dialect() *dialect.Capability {
	return c.caps
}

func (c *Compiler) builder() *Builder {
	return NewBuilder(c.caps)
}

// Query describes a select or count over one entity.
type Query struct {
	// Variant selects the extended properties joined from the extension
	// table. It may be nil.
	Variant *extension.Variant
	// Fields lists the projected attributes and properties by logical name.
	// Empty projects every column.
	Fields []string
	Where  querylanguage.P
	Order  []querylanguage.Order
	// PageSize enables pagination when positive. Page is 1-based.
	PageSize int
	Page     int
	// ParentJoin allows filters on the parent association by joining its
	// association table.
	ParentJoin bool
}

// SearchQuery is a Query with full-text search text.
type SearchQuery struct {
	Query
	// Text holds the search terms: +word must match, -word must not match,
	// bare words are alternatives, and "quoted phrases" match as a whole.
	Text string
	// Columns restricts the searched attributes. Empty searches every
	// Searchable attribute.
	Columns []string
}

// column is a resolved attribute or extended property.
type column struct {
	name string // logical name.
	expr string // qualified physical column.
	desc *field.Descriptor
}

// alias returns the projection of the column, renamed to its logical name
// when the physical name differs.
func (c column) projection() string {
	if c.desc.StorageColumn() == c.name {
		return c.expr
	}
	return c.expr + " AS " + c.name
}

// resolve looks up a logical name among the entity attributes and the
// variant's extended properties.
func resolve(e *schema.Entity, v *extension.Variant, name string) (column, error) {
	if a, ok := e.Attribute(name); ok {
		switch {
		case a.Alias:
			return column{}, polystore.NewConfigurationError(e.Name(), name, "alias attribute has no column")
		case a.Mappings:
			return column{}, polystore.NewConfigurationError(e.Name(), name, "mappings attribute has no column")
		}
		return column{name: name, expr: originAlias + "." + a.StorageColumn(), desc: a}, nil
	}
	if v != nil {
		if p, ok := v.Property(name); ok {
			return column{name: name, expr: extensionAlias + "." + p.Slot.Column, desc: p.Descriptor()}, nil
		}
	}
	return column{}, polystore.NewConfigurationError(e.Name(), name, "unknown attribute")
}

// bind appends an encoded, typed parameter for the attribute.
func (b *Builder) bind(name string, a *field.Descriptor, v any) error {
	enc, err := EncodeValue(a, v)
	if err != nil {
		return err
	}
	kind, err := MapParameterKind(a)
	if err != nil {
		return err
	}
	b.Arg(name, enc, kind, paramSize(a, kind))
	return nil
}

// hasProperties reports whether v owns at least one extended property.
func hasProperties(v *extension.Variant) bool {
	return v != nil && len(v.Properties()) > 0
}
