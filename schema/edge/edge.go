package edge

import "github.com/syssam/polystore/schema/field"

// Association table columns.
const (
	LinkColumn   = "LinkId"
	MappedColumn = "MappedId"
)

// A Descriptor for the parent association of an entity.
type Descriptor struct {
	Attribute string // logical name of the Mappings attribute.
	Multiple  bool   // an entity may have more than one parent.
}

// Builder for parent associations.
type Builder struct {
	desc *Descriptor
}

// Parent returns a builder for a parent association stored under the given
// Mappings attribute.
func Parent(attribute string) *Builder {
	return &Builder{desc: &Descriptor{Attribute: attribute}}
}

// Multiple allows more than one parent per entity.
func (b *Builder) Multiple() *Builder {
	b.desc.Multiple = true
	return b
}

// Descriptor returns the association descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// LinkDescriptor returns the descriptor of the association column holding
// the owner's primary key.
func LinkDescriptor(pk *field.Descriptor) *field.Descriptor {
	return &field.Descriptor{Name: LinkColumn, Type: pk.Type, MaxLength: pk.MaxLength}
}

// MappedDescriptor returns the descriptor of the association column holding
// the mapped ids of a Mappings attribute.
func MappedDescriptor(attr *field.Descriptor) *field.Descriptor {
	return &field.Descriptor{Name: MappedColumn, Type: attr.Type, MaxLength: attr.MaxLength}
}
