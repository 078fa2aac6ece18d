// Package index describes the secondary indexes of an entity table.
//
// Indexes come from two places: Sortable and Unique groups declared on
// attributes, and explicit descriptors added to the entity builder.
//
//	field.String("Title").Sortable("Title")
//	field.String("Code").Unique("Code")
//	index.Fields("LastName", "FirstName").StorageKey("IX_People_Name")
package index

import "github.com/syssam/polystore/schema/field"

// A Descriptor for index configuration.
type Descriptor struct {
	Group      string   // group name; used to derive the index name.
	Unique     bool     // unique index.
	Fields     []string // logical attribute names, in index order.
	StorageKey string   // explicit index name.
}

// Builder for indexes on attributes.
type Builder struct {
	desc *Descriptor
}

// Fields creates an index on the given attributes.
func Fields(fields ...string) *Builder {
	return &Builder{desc: &Descriptor{Fields: fields}}
}

// Unique sets the index to be a unique index.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// Group sets the group name the index name is derived from.
func (b *Builder) Group(name string) *Builder {
	b.desc.Group = name
	return b
}

// StorageKey sets the storage key of the index.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Descriptor returns the index descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// Name returns the physical index name for the given table.
func (d *Descriptor) Name(table string) string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	group := d.Group
	if group == "" && len(d.Fields) > 0 {
		group = d.Fields[0]
		for _, f := range d.Fields[1:] {
			group += "_" + f
		}
	}
	if d.Unique {
		return "UX_" + table + "_" + group
	}
	return "IX_" + table + "_" + group
}

// Groups derives one descriptor per Sortable group and one unique
// descriptor per Unique group. Groups appear in order of first use, and the
// attributes of a group keep their declaration order.
func Groups(attrs []*field.Descriptor) []*Descriptor {
	var (
		idx     []*Descriptor
		byGroup = make(map[string]*Descriptor)
	)
	add := func(group string, unique bool, name string) {
		key := group
		if unique {
			key = "\x00" + group
		}
		d, ok := byGroup[key]
		if !ok {
			d = &Descriptor{Group: group, Unique: unique}
			byGroup[key] = d
			idx = append(idx, d)
		}
		d.Fields = append(d.Fields, name)
	}
	for _, a := range attrs {
		if !a.Persisted() {
			continue
		}
		if a.IndexGroup != "" {
			add(a.IndexGroup, false, a.Name)
		}
		if a.UniqueGroup != "" {
			add(a.UniqueGroup, true, a.Name)
		}
	}
	return idx
}
