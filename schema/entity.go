package schema

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/schema/index"
)

// DefaultExtensionTable is the shared extension table used by extendable
// entities that do not name their own.
const DefaultExtensionTable = "ExtendedProperties"

// MaxIdentifierLength bounds every table, column and index name.
const MaxIdentifierLength = 128

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be emitted unquoted as a table,
// column or index name.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= MaxIdentifierLength && identRe.MatchString(s)
}

// Entity is the declarative description of a persisted type. It is built
// once by a Builder and is read-only afterwards.
type Entity struct {
	name           string
	table          string
	pk             *field.Descriptor
	attrs          []*field.Descriptor
	byName         map[string]*field.Descriptor
	extendable     bool
	extensionTable string
	searchable     bool
	parent         *edge.Descriptor
	indexes        []*index.Descriptor
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// Table returns the origin table name.
func (e *Entity) Table() string { return e.table }

// PrimaryKey returns the primary key attribute.
func (e *Entity) PrimaryKey() *field.Descriptor { return e.pk }

// Attributes returns the attributes in declaration order.
func (e *Entity) Attributes() []*field.Descriptor {
	return append([]*field.Descriptor(nil), e.attrs...)
}

// Attribute returns the attribute with the given logical name.
func (e *Entity) Attribute(name string) (*field.Descriptor, bool) {
	a, ok := e.byName[name]
	return a, ok
}

// Columns returns the persisted attributes in declaration order.
func (e *Entity) Columns() []*field.Descriptor {
	cols := make([]*field.Descriptor, 0, len(e.attrs))
	for _, a := range e.attrs {
		if a.Persisted() {
			cols = append(cols, a)
		}
	}
	return cols
}

// Mappings returns the Mappings attributes in declaration order.
func (e *Entity) Mappings() []*field.Descriptor {
	var m []*field.Descriptor
	for _, a := range e.attrs {
		if a.Mappings {
			m = append(m, a)
		}
	}
	return m
}

// Extendable reports whether the entity carries extended properties.
func (e *Entity) Extendable() bool { return e.extendable }

// ExtensionTable returns the extension table name, or "" if the entity is
// not extendable.
func (e *Entity) ExtensionTable() string { return e.extensionTable }

// Searchable reports whether the entity has a full-text index.
func (e *Entity) Searchable() bool { return e.searchable }

// SearchableAttributes returns the attributes in the full-text index.
func (e *Entity) SearchableAttributes() []*field.Descriptor {
	var s []*field.Descriptor
	for _, a := range e.attrs {
		if a.Searchable && a.Persisted() {
			s = append(s, a)
		}
	}
	return s
}

// Parent returns the parent association, or nil.
func (e *Entity) Parent() *edge.Descriptor { return e.parent }

// Indexes returns the secondary indexes: attribute groups first, then the
// explicit descriptors.
func (e *Entity) Indexes() []*index.Descriptor {
	return append([]*index.Descriptor(nil), e.indexes...)
}

// AssociationTable returns the association table of a Mappings attribute.
func (e *Entity) AssociationTable(a *field.Descriptor) string {
	if a.AssociationTable != "" {
		return a.AssociationTable
	}
	return e.table + "_" + a.StorageColumn()
}

// Builder declares an entity.
type Builder struct {
	name           string
	table          string
	key            string
	fields         []*field.Descriptor
	indexes        []*index.Descriptor
	extendable     bool
	extensionTable string
	searchable     bool
	parent         *edge.Descriptor
}

// Define starts the declaration of the named entity. The table defaults to
// the entity name.
func Define(name string) *Builder {
	return &Builder{name: name, table: name}
}

// Table sets the origin table name.
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// Key names the primary key attribute.
func (b *Builder) Key(name string) *Builder {
	b.key = name
	return b
}

// Fields appends attributes.
func (b *Builder) Fields(fields ...*field.Builder) *Builder {
	for _, f := range fields {
		b.fields = append(b.fields, f.Descriptor())
	}
	return b
}

// Descriptors appends already built attribute descriptors.
func (b *Builder) Descriptors(descs ...*field.Descriptor) *Builder {
	b.fields = append(b.fields, descs...)
	return b
}

// Indexes appends explicit secondary indexes.
func (b *Builder) Indexes(idx ...*index.Builder) *Builder {
	for _, i := range idx {
		b.indexes = append(b.indexes, i.Descriptor())
	}
	return b
}

// Mixin is a reusable set of attributes and indexes shared by entities.
type Mixin interface {
	Fields() []*field.Builder
	Indexes() []*index.Builder
}

// Mixin appends the attributes and indexes of each mixin, in order, after
// those declared so far.
func (b *Builder) Mixin(ms ...Mixin) *Builder {
	for _, m := range ms {
		b.Fields(m.Fields()...)
		b.Indexes(m.Indexes()...)
	}
	return b
}

// Extendable enables extended properties stored in the given extension
// table, or in DefaultExtensionTable when table is empty.
func (b *Builder) Extendable(table string) *Builder {
	b.extendable = true
	if table == "" {
		table = DefaultExtensionTable
	}
	b.extensionTable = table
	return b
}

// Searchable enables the full-text index over the Searchable attributes.
func (b *Builder) Searchable() *Builder {
	b.searchable = true
	return b
}

// Parent sets the parent association.
func (b *Builder) Parent(p *edge.Builder) *Builder {
	b.parent = p.Descriptor()
	return b
}

// Build validates the declaration and returns the entity. All problems are
// reported together in a *polystore.ConfigurationError chain.
func (b *Builder) Build() (*Entity, error) {
	var errs []error
	fail := func(name, format string, args ...any) {
		errs = append(errs, polystore.NewConfigurationError(b.name, name, format, args...))
	}
	if b.name == "" {
		fail("", "entity name is required")
	}
	if !ValidIdentifier(b.table) {
		fail(b.table, "invalid table name")
	}
	e := &Entity{
		name:           b.name,
		table:          b.table,
		attrs:          b.fields,
		byName:         make(map[string]*field.Descriptor, len(b.fields)),
		extendable:     b.extendable,
		extensionTable: b.extensionTable,
		searchable:     b.searchable,
		parent:         b.parent,
	}
	columns := make(map[string]bool, len(b.fields))
	for _, a := range b.fields {
		if err := a.Validate(); err != nil {
			fail(a.Name, "%v", err)
		}
		if a.Name == "" {
			fail("", "attribute without a name")
			continue
		}
		if _, ok := e.byName[a.Name]; ok {
			fail(a.Name, "duplicate attribute")
		}
		e.byName[a.Name] = a
		if !a.Persisted() {
			continue
		}
		col := a.StorageColumn()
		if !ValidIdentifier(col) {
			fail(a.Name, "invalid column name %q", col)
		}
		if columns[col] {
			fail(a.Name, "duplicate column %q", col)
		}
		columns[col] = true
	}
	switch pk, ok := e.byName[b.key]; {
	case b.key == "":
		fail("", "primary key is required")
	case !ok:
		fail(b.key, "primary key is not an attribute")
	case !pk.Persisted() || pk.Nullable:
		fail(b.key, "primary key must be a non-null column")
	default:
		e.pk = pk
	}
	if e.extendable {
		if !ValidIdentifier(e.extensionTable) {
			fail(e.extensionTable, "invalid extension table name")
		}
		// Extension rows link to the owner through a fixed-width text column.
		if pk := e.pk; pk != nil && (!pk.IdentifierShaped() || pk.MaxLength > field.DefaultIdentifierLength) {
			fail(pk.Name, "extendable entity needs an identifier-shaped string primary key of at most %d characters", field.DefaultIdentifierLength)
		}
	}
	if e.searchable && len(e.SearchableAttributes()) == 0 {
		fail("", "searchable entity without searchable attributes")
	}
	if p := e.parent; p != nil {
		if a, ok := e.byName[p.Attribute]; !ok || !a.Mappings {
			fail(p.Attribute, "parent association must name a Mappings attribute")
		}
	}
	for _, a := range e.Mappings() {
		if t := e.AssociationTable(a); !ValidIdentifier(t) {
			fail(a.Name, "invalid association table name %q", t)
		}
	}
	e.indexes = append(index.Groups(b.fields), b.indexes...)
	for _, idx := range e.indexes {
		if len(idx.Fields) == 0 {
			fail(idx.Group, "index without fields")
		}
		for _, f := range idx.Fields {
			if a, ok := e.byName[f]; !ok || !a.Persisted() {
				fail(f, "index references an unknown column")
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("schema: build %s: %w", b.name, errors.Join(errs...))
	}
	return e, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Entity {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}
