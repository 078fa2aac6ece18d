package extension

import (
	"slices"

	"github.com/syssam/polystore/schema/field"
)

// VariantIDLength is the fixed width of variant, system and repository ids.
const VariantIDLength = field.DefaultIdentifierLength

// Property is an extended property bound to a slot column.
type Property struct {
	Name      string
	Type      field.Type
	MaxLength int
	Enums     []string
	Default   any
	Slot      Slot
}

// Descriptor returns an attribute descriptor for the property, with the
// slot column as its storage column. It lets properties share the value
// encoding and predicate lowering of ordinary attributes.
func (p *Property) Descriptor() *field.Descriptor {
	return &field.Descriptor{
		Name:         p.Name,
		Column:       p.Slot.Column,
		Type:         p.Type,
		MaxLength:    p.MaxLength,
		Enums:        p.Enums,
		Nullable:     true,
		EnumString:   p.Type == field.TypeEnum,
		StoredAsJSON: p.Type == field.TypeOther,
	}
}

// Variant is a named set of extended properties with fixed slot bindings.
// Variants are immutable after registration.
type Variant struct {
	ID           string
	Name         string
	Entity       string
	SystemID     string
	RepositoryID string

	props  []*Property
	byName map[string]*Property
}

// Properties returns the properties in registration order.
func (v *Variant) Properties() []*Property {
	return slices.Clone(v.props)
}

// Property returns the property with the given name.
func (v *Variant) Property(name string) (*Property, bool) {
	p, ok := v.byName[name]
	return p, ok
}

// PropertyDef declares an extended property.
type PropertyDef struct {
	Name      string
	Type      field.Type
	MaxLength int
	Enums     []string
	Default   any
}

// Definition declares a variant.
type Definition struct {
	ID           string
	Name         string
	Entity       string
	SystemID     string
	RepositoryID string
	Properties   []PropertyDef
}
