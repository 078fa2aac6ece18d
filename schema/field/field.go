package field

import (
	"errors"
	"fmt"
	"strings"
)

// IdentitySuffix marks attribute names that hold identifiers.
const IdentitySuffix = "Id"

// DefaultIdentifierLength is the fixed width of identifier-shaped strings
// whose max length is not declared.
const DefaultIdentifierLength = 32

// A Type represents a domain type of an attribute.
type Type uint8

// List of domain types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeString
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeUUID
	TypeBytes
	TypeEnum
	TypeOther
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeString:  "string",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeDecimal: "decimal",
	TypeUUID:    "uuid",
	TypeBytes:   "bytes",
	TypeEnum:    "enum",
	TypeOther:   "other",
}

// typeAliases are accepted by ParseType in addition to the canonical names.
var typeAliases = map[string]Type{
	"boolean":  TypeBool,
	"datetime": TypeTime,
	"date":     TypeTime,
	"text":     TypeString,
	"int":      TypeInt32,
	"integer":  TypeInt32,
	"long":     TypeInt64,
	"float":    TypeFloat64,
	"double":   TypeFloat64,
	"guid":     TypeUUID,
	"binary":   TypeBytes,
	"json":     TypeOther,
}

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type if known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt32 && t <= TypeDecimal
}

// ParseType returns the Type for the given name or alias.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t := TypeBool; t < endTypes; t++ {
		if typeNames[t] == s {
			return t, nil
		}
	}
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", s)
}

// A Descriptor is the attribute metadata consumed by the compilers and the
// DDL generator. Descriptors are immutable once the owning entity is built.
type Descriptor struct {
	Name      string // logical name.
	Column    string // physical column; defaults to Name.
	Type      Type
	Nullable  bool
	MaxLength int
	Enums     []string // ordered enum value names.

	IgnoredIfNull  bool // omit from INSERT/UPDATE when the value is null.
	StoredAsJSON   bool // persist as JSON text.
	StoredAsString bool // persist a date as fixed-width ISO-like text.
	CLOB           bool // persist as unbounded text.
	EnumString     bool // persist enum values by name instead of ordinal.
	Mappings       bool // many-to-many relationship kept in an association table.
	Searchable     bool // member of the full-text index.
	Alias          bool // computed elsewhere; never persisted.

	IndexGroup       string // non-unique index group.
	UniqueGroup      string // unique index group.
	AssociationTable string // association table override for Mappings attributes.

	Err error
}

// StorageColumn returns the physical column name.
func (d *Descriptor) StorageColumn() string {
	if d.Column != "" {
		return d.Column
	}
	return d.Name
}

// IdentifierShaped reports whether the attribute is a string holding an
// identifier: its name ends in the identity suffix, or its max length is the
// identifier width.
func (d *Descriptor) IdentifierShaped() bool {
	if d.Type != TypeString || d.CLOB || d.StoredAsJSON {
		return false
	}
	return strings.HasSuffix(d.Name, IdentitySuffix) || d.MaxLength == DefaultIdentifierLength
}

// Persisted reports whether the attribute is stored as a column of the
// origin table.
func (d *Descriptor) Persisted() bool {
	return !d.Alias && !d.Mappings
}

// EnumIndex returns the ordinal of the named enum value.
func (d *Descriptor) EnumIndex(name string) (int, bool) {
	for i, v := range d.Enums {
		if v == name {
			return i, true
		}
	}
	return 0, false
}

// Builder is the builder for attribute descriptors.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: t}}
}

// String returns a new string attribute builder.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Text returns a new unbounded text attribute builder.
func Text(name string) *Builder { return newBuilder(name, TypeString).CLOB() }

// Int32 returns a new 32-bit integer attribute builder.
func Int32(name string) *Builder { return newBuilder(name, TypeInt32) }

// Int64 returns a new 64-bit integer attribute builder.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Float64 returns a new float attribute builder.
func Float64(name string) *Builder { return newBuilder(name, TypeFloat64) }

// Decimal returns a new fixed-precision decimal attribute builder.
func Decimal(name string) *Builder { return newBuilder(name, TypeDecimal) }

// Bool returns a new boolean attribute builder.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Time returns a new date-time attribute builder.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// UUID returns a new guid attribute builder.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// Bytes returns a new binary attribute builder.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// Enum returns a new enum attribute builder. Values must be declared with
// the Values method.
func Enum(name string) *Builder { return newBuilder(name, TypeEnum) }

// JSON returns a new attribute builder for a structured value persisted as
// JSON text.
func JSON(name string) *Builder { return newBuilder(name, TypeOther).StoredAsJSON() }

// Other returns a new attribute builder for a custom type. Such attributes
// must be stored as JSON to be mapped.
func Other(name string) *Builder { return newBuilder(name, TypeOther) }

// Column sets the physical column name.
func (b *Builder) Column(name string) *Builder {
	b.desc.Column = name
	return b
}

// MaxLen sets the maximum length.
func (b *Builder) MaxLen(n int) *Builder {
	if n < 0 {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("field %q: negative max length %d", b.desc.Name, n))
	}
	b.desc.MaxLength = n
	return b
}

// Nillable marks the column as nullable.
func (b *Builder) Nillable() *Builder {
	b.desc.Nullable = true
	return b
}

// IgnoreIfNull omits the attribute from mutations when its value is null.
// It implies Nillable.
func (b *Builder) IgnoreIfNull() *Builder {
	b.desc.IgnoredIfNull = true
	b.desc.Nullable = true
	return b
}

// StoredAsJSON persists the value as JSON text.
func (b *Builder) StoredAsJSON() *Builder {
	b.desc.StoredAsJSON = true
	return b
}

// StoredAsString persists a date as fixed-width text.
func (b *Builder) StoredAsString() *Builder {
	if b.desc.Type != TypeTime {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("field %q: StoredAsString requires a time attribute", b.desc.Name))
	}
	b.desc.StoredAsString = true
	return b
}

// CLOB persists the value as unbounded text.
func (b *Builder) CLOB() *Builder {
	b.desc.CLOB = true
	return b
}

// Values sets the ordered enum value names.
func (b *Builder) Values(names ...string) *Builder {
	b.desc.Enums = append(b.desc.Enums, names...)
	return b
}

// EnumString persists enum values by name.
func (b *Builder) EnumString() *Builder {
	b.desc.EnumString = true
	return b
}

// Mappings marks the attribute as a many-to-many relationship kept in an
// association table.
func (b *Builder) Mappings() *Builder {
	b.desc.Mappings = true
	return b
}

// AssociationTable overrides the association table name.
func (b *Builder) AssociationTable(name string) *Builder {
	b.desc.AssociationTable = name
	return b
}

// Sortable adds the attribute to the named non-unique index group.
func (b *Builder) Sortable(group string) *Builder {
	b.desc.IndexGroup = group
	return b
}

// Unique adds the attribute to the named unique index group.
func (b *Builder) Unique(group string) *Builder {
	b.desc.UniqueGroup = group
	return b
}

// Searchable adds the attribute to the full-text index.
func (b *Builder) Searchable() *Builder {
	b.desc.Searchable = true
	return b
}

// Alias marks the attribute as computed and never persisted.
func (b *Builder) Alias() *Builder {
	b.desc.Alias = true
	return b
}

// Descriptor returns the attribute descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// Validate reports builder errors and inconsistent flag combinations.
func (d *Descriptor) Validate() error {
	err := d.Err
	if d.Type == TypeEnum && len(d.Enums) == 0 {
		err = errors.Join(err, fmt.Errorf("field %q: enum without values", d.Name))
	}
	if d.Searchable && d.Type != TypeString {
		err = errors.Join(err, fmt.Errorf("field %q: only string attributes can be searchable", d.Name))
	}
	if d.Mappings && (d.IndexGroup != "" || d.UniqueGroup != "" || d.Searchable) {
		err = errors.Join(err, fmt.Errorf("field %q: mappings attributes cannot be indexed", d.Name))
	}
	return err
}
