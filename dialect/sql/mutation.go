package sql

import (
	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

// linkageDescriptor describes the fixed-width linkage columns of the
// extension table.
func linkageDescriptor(name string) *field.Descriptor {
	return &field.Descriptor{Name: name, Type: field.TypeString, MaxLength: extension.VariantIDLength}
}

// assignment is one column and its bound value.
type assignment struct {
	column string
	param  string
	desc   *field.Descriptor
	value  any
}

// CompileInsert compiles the origin-table INSERT of an entity. Every
// persisted attribute is written except null values of IgnoredIfNull
// attributes. Values of Mappings and Alias attributes are ignored.
func (c *Compiler) CompileInsert(e *schema.Entity, values Values) (*Statement, error) {
	if err := checkKeys(e, nil, values); err != nil {
		return nil, err
	}
	var cols []assignment
	for _, a := range e.Columns() {
		v := values[a.Name]
		if a.IgnoredIfNull && isNull(v) {
			continue
		}
		cols = append(cols, assignment{column: a.StorageColumn(), param: a.Name, desc: a, value: v})
	}
	if len(cols) == 0 {
		return nil, polystore.NewConfigurationError(e.Name(), "", "insert without columns")
	}
	return c.insert(e.Table(), cols)
}

// CompileInsertExtension compiles the extension-table INSERT of an
// entity's variant properties. The row links to the entity through its
// primary key value and to the variant's owners; unset properties take
// their default. It returns nil when the variant has no properties.
func (c *Compiler) CompileInsertExtension(e *schema.Entity, v *extension.Variant, values Values) (*Statement, error) {
	if err := checkVariant(e, v); err != nil {
		return nil, err
	}
	if err := checkKeys(e, v, values); err != nil {
		return nil, err
	}
	props := v.Properties()
	if len(props) == 0 {
		return nil, nil
	}
	pk := e.PrimaryKey()
	id, ok := values[pk.Name]
	if !ok || isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	cols := []assignment{
		{column: extension.ObjectColumn, param: extension.ObjectColumn, desc: linkageDescriptor(extension.ObjectColumn), value: id},
		{column: extension.SystemColumn, param: extension.SystemColumn, desc: linkageDescriptor(extension.SystemColumn), value: v.SystemID},
		{column: extension.RepositoryColumn, param: extension.RepositoryColumn, desc: linkageDescriptor(extension.RepositoryColumn), value: v.RepositoryID},
		{column: extension.VariantColumn, param: extension.VariantColumn, desc: linkageDescriptor(extension.VariantColumn), value: v.ID},
	}
	for _, p := range props {
		val, ok := values[p.Name]
		if !ok {
			val = p.Default
		}
		cols = append(cols, assignment{column: p.Slot.Column, param: p.Name, desc: p.Descriptor(), value: val})
	}
	return c.insert(e.ExtensionTable(), cols)
}

func (c *Compiler) insert(table string, cols []assignment) (*Statement, error) {
	b := c.builder()
	b.WriteString("INSERT INTO " + table + " (")
	for i, col := range cols {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(col.column)
	}
	b.WriteString(") VALUES (")
	for i, col := range cols {
		if i > 0 {
			b.Byte(',')
		}
		if err := b.bind(col.param, col.desc, col.value); err != nil {
			return nil, err
		}
	}
	b.Byte(')')
	return b.Statement(), nil
}

// CompileUpdate compiles an UPDATE of the named attributes pinned to the
// primary key in values. The primary key, Mappings and Alias attributes
// and null values of IgnoredIfNull attributes are skipped. It returns nil
// when no column remains; callers must not execute anything in that case.
func (c *Compiler) CompileUpdate(e *schema.Entity, changed []string, values Values) (*Statement, error) {
	if err := checkKeys(e, nil, values); err != nil {
		return nil, err
	}
	pk := e.PrimaryKey()
	var cols []assignment
	for _, name := range changed {
		a, ok := e.Attribute(name)
		if !ok {
			return nil, polystore.NewConfigurationError(e.Name(), name, "unknown attribute")
		}
		if a == pk || !a.Persisted() {
			continue
		}
		v := values[name]
		if a.IgnoredIfNull && isNull(v) {
			continue
		}
		cols = append(cols, assignment{column: a.StorageColumn(), param: a.Name, desc: a, value: v})
	}
	if len(cols) == 0 {
		return nil, nil
	}
	return c.update(e, e.Table(), cols, values)
}

// CompileReplace compiles an UPDATE of every persisted attribute but the
// primary key. It returns nil when the entity has no other column.
func (c *Compiler) CompileReplace(e *schema.Entity, values Values) (*Statement, error) {
	names := make([]string, 0, len(e.Columns()))
	for _, a := range e.Columns() {
		names = append(names, a.Name)
	}
	return c.CompileUpdate(e, names, values)
}

func (c *Compiler) update(e *schema.Entity, table string, cols []assignment, values Values) (*Statement, error) {
	pk := e.PrimaryKey()
	id, ok := values[pk.Name]
	if !ok || isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	b := c.builder()
	b.WriteString("UPDATE " + table + " SET ")
	for i, col := range cols {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(col.column + "=")
		if err := b.bind(col.param, col.desc, col.value); err != nil {
			return nil, err
		}
	}
	b.WriteString(" WHERE " + pk.StorageColumn() + "=")
	if err := b.bind(pk.Name, pk, id); err != nil {
		return nil, err
	}
	return b.Statement(), nil
}

// CompileUpdateExtension compiles an UPDATE of the named variant
// properties of one object. It returns nil when nothing changes.
func (c *Compiler) CompileUpdateExtension(e *schema.Entity, v *extension.Variant, changed []string, values Values) (*Statement, error) {
	if err := checkVariant(e, v); err != nil {
		return nil, err
	}
	if err := checkKeys(e, v, values); err != nil {
		return nil, err
	}
	var cols []assignment
	for _, name := range changed {
		p, ok := v.Property(name)
		if !ok {
			if _, ok := e.Attribute(name); ok {
				continue
			}
			return nil, polystore.NewConfigurationError(e.Name(), name, "unknown property of variant %s", v.ID)
		}
		cols = append(cols, assignment{column: p.Slot.Column, param: p.Name, desc: p.Descriptor(), value: values[name]})
	}
	if len(cols) == 0 {
		return nil, nil
	}
	pk := e.PrimaryKey()
	id, ok := values[pk.Name]
	if !ok || isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	b := c.builder()
	b.WriteString("UPDATE " + e.ExtensionTable() + " SET ")
	for i, col := range cols {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(col.column + "=")
		if err := b.bind(col.param, col.desc, col.value); err != nil {
			return nil, err
		}
	}
	b.WriteString(" WHERE " + extension.ObjectColumn + "=")
	if err := b.bind(extension.ObjectColumn, linkageDescriptor(extension.ObjectColumn), id); err != nil {
		return nil, err
	}
	b.WriteString(" AND " + extension.VariantColumn + "=")
	if err := b.bind(extension.VariantColumn, linkageDescriptor(extension.VariantColumn), v.ID); err != nil {
		return nil, err
	}
	return b.Statement(), nil
}

// CompileDelete compiles the DELETE of one entity by primary key.
func (c *Compiler) CompileDelete(e *schema.Entity, id any) (*Statement, error) {
	pk := e.PrimaryKey()
	if isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	b := c.builder()
	b.WriteString("DELETE FROM " + e.Table() + " WHERE " + pk.StorageColumn() + "=")
	if err := b.bind(pk.Name, pk, id); err != nil {
		return nil, err
	}
	return b.Statement(), nil
}

// CompileDeleteExtension compiles the DELETE of the extension rows of one
// object.
func (c *Compiler) CompileDeleteExtension(e *schema.Entity, id any) (*Statement, error) {
	if !e.Extendable() {
		return nil, polystore.NewConfigurationError(e.Name(), "", "entity is not extendable")
	}
	if isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), e.PrimaryKey().Name, "primary key value is required")
	}
	b := c.builder()
	b.WriteString("DELETE FROM " + e.ExtensionTable() + " WHERE " + extension.ObjectColumn + "=")
	if err := b.bind(extension.ObjectColumn, linkageDescriptor(extension.ObjectColumn), id); err != nil {
		return nil, err
	}
	return b.Statement(), nil
}

// CompileAssociationSync compiles the replacement of the mapped ids of one
// Mappings attribute: a DELETE of every link of the object followed by one
// INSERT per target. The statements must run in order; running them
// atomically is up to the caller.
func (c *Compiler) CompileAssociationSync(e *schema.Entity, attr string, id any, targets []any) ([]*Statement, error) {
	a, err := mappingsAttribute(e, attr)
	if err != nil {
		return nil, err
	}
	if isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), e.PrimaryKey().Name, "primary key value is required")
	}
	var (
		table  = e.AssociationTable(a)
		link   = edge.LinkDescriptor(e.PrimaryKey())
		mapped = edge.MappedDescriptor(a)
	)
	b := c.builder()
	b.WriteString("DELETE FROM " + table + " WHERE " + edge.LinkColumn + "=")
	if err := b.bind(edge.LinkColumn, link, id); err != nil {
		return nil, err
	}
	stmts := []*Statement{b.Statement()}
	for _, t := range targets {
		if isNull(t) {
			return nil, polystore.NewConfigurationError(e.Name(), attr, "null mapped id")
		}
		st, err := c.insert(table, []assignment{
			{column: edge.LinkColumn, param: edge.LinkColumn, desc: link, value: id},
			{column: edge.MappedColumn, param: edge.MappedColumn, desc: mapped, value: t},
		})
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

// CompileAssociationRead compiles the SELECT of the mapped ids of one
// Mappings attribute.
func (c *Compiler) CompileAssociationRead(e *schema.Entity, attr string, id any) (*Statement, error) {
	a, err := mappingsAttribute(e, attr)
	if err != nil {
		return nil, err
	}
	if isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), e.PrimaryKey().Name, "primary key value is required")
	}
	b := c.builder()
	b.WriteString("SELECT " + edge.MappedColumn + " FROM " + e.AssociationTable(a) + " WHERE " + edge.LinkColumn + "=")
	if err := b.bind(edge.LinkColumn, edge.LinkDescriptor(e.PrimaryKey()), id); err != nil {
		return nil, err
	}
	b.WriteString(" ORDER BY " + edge.MappedColumn)
	return b.Statement(), nil
}

func mappingsAttribute(e *schema.Entity, name string) (*field.Descriptor, error) {
	a, ok := e.Attribute(name)
	switch {
	case !ok:
		return nil, polystore.NewConfigurationError(e.Name(), name, "unknown attribute")
	case !a.Mappings:
		return nil, polystore.NewConfigurationError(e.Name(), name, "not a mappings attribute")
	}
	return a, nil
}

// checkKeys rejects value keys that name neither an attribute of e nor a
// property of v.
func checkKeys(e *schema.Entity, v *extension.Variant, values Values) error {
	for k := range values {
		if _, ok := e.Attribute(k); ok {
			continue
		}
		if v != nil {
			if _, ok := v.Property(k); ok {
				continue
			}
		}
		return polystore.NewConfigurationError(e.Name(), k, "unknown attribute")
	}
	return nil
}

func checkVariant(e *schema.Entity, v *extension.Variant) error {
	switch {
	case !e.Extendable():
		return polystore.NewConfigurationError(e.Name(), "", "entity is not extendable")
	case v == nil:
		return polystore.NewConfigurationError(e.Name(), "", "variant is required")
	case v.Entity != "" && v.Entity != e.Name():
		return polystore.NewConfigurationError(e.Name(), v.ID, "variant belongs to entity %s", v.Entity)
	}
	return nil
}
