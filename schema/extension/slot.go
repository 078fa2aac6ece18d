package extension

import (
	"fmt"
	"strings"

	"github.com/syssam/polystore/schema/field"
)

// Linkage columns present in every extension table row.
const (
	ObjectColumn     = "ObjectId"
	SystemColumn     = "SystemId"
	RepositoryColumn = "RepositoryId"
	VariantColumn    = "VariantId"
)

// LinkageColumns returns the linkage columns in table order.
func LinkageColumns() []string {
	return []string{ObjectColumn, SystemColumn, RepositoryColumn, VariantColumn}
}

// Slot widths of the bounded text kinds.
const (
	SmallTextLength  = 64
	MediumTextLength = 256
)

// Kind is the storage kind of a generic slot column.
type Kind uint8

// Slot kinds.
const (
	SmallText Kind = iota
	MediumText
	LargeText
	Integer
	Decimal
	Boolean
	DateTime
)

var kindNames = [...]string{
	SmallText:  "SmallText",
	MediumText: "MediumText",
	LargeText:  "LargeText",
	Integer:    "Integer",
	Decimal:    "Decimal",
	Boolean:    "Boolean",
	DateTime:   "DateTime",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind returns the kind with the given name, e.g. "SmallText".
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("extension: unknown slot kind %q", s)
}

// Indexable reports whether slot columns of this kind get an index.
func (k Kind) Indexable() bool {
	return k != LargeText
}

// KindOf returns the slot kind that stores values of the given domain type.
func KindOf(t field.Type, maxLength int) (Kind, error) {
	switch t {
	case field.TypeString:
		switch {
		case maxLength > 0 && maxLength <= SmallTextLength:
			return SmallText, nil
		case maxLength <= MediumTextLength:
			return MediumText, nil
		default:
			return LargeText, nil
		}
	case field.TypeUUID, field.TypeEnum:
		return SmallText, nil
	case field.TypeInt32, field.TypeInt64:
		return Integer, nil
	case field.TypeDecimal, field.TypeFloat64:
		return Decimal, nil
	case field.TypeBool:
		return Boolean, nil
	case field.TypeTime:
		return DateTime, nil
	case field.TypeOther:
		return LargeText, nil
	default:
		return 0, fmt.Errorf("extension: no slot kind for %s", t)
	}
}

// Slot is one generic column of the extension table.
type Slot struct {
	Kind   Kind
	Column string
}

// Descriptor returns the column descriptor of the slot.
func (s Slot) Descriptor() *field.Descriptor {
	d := &field.Descriptor{Name: s.Column, Nullable: true}
	switch s.Kind {
	case SmallText:
		d.Type, d.MaxLength = field.TypeString, SmallTextLength
	case MediumText:
		d.Type, d.MaxLength = field.TypeString, MediumTextLength
	case LargeText:
		d.Type, d.CLOB = field.TypeString, true
	case Integer:
		d.Type = field.TypeInt64
	case Decimal:
		d.Type = field.TypeDecimal
	case Boolean:
		d.Type = field.TypeBool
	case DateTime:
		d.Type = field.TypeTime
	}
	return d
}

// SlotSpec is one row of the slot layout: how many columns of a kind the
// extension table carries.
type SlotSpec struct {
	Kind     Kind
	Capacity int
}

// Layout is the fixed shape of the extension table.
type Layout []SlotSpec

// DefaultLayout returns the standard slot layout.
func DefaultLayout() Layout {
	return Layout{
		{Kind: SmallText, Capacity: 20},
		{Kind: MediumText, Capacity: 10},
		{Kind: LargeText, Capacity: 5},
		{Kind: Integer, Capacity: 10},
		{Kind: Decimal, Capacity: 10},
		{Kind: Boolean, Capacity: 10},
		{Kind: DateTime, Capacity: 10},
	}
}

// Capacity returns the number of columns of the given kind.
func (l Layout) Capacity(k Kind) int {
	n := 0
	for _, s := range l {
		if s.Kind == k {
			n += s.Capacity
		}
	}
	return n
}

// Slots returns every slot column in table order. Columns are named after
// their kind and a 1-based ordinal, e.g. SmallText1.
func (l Layout) Slots() []Slot {
	var (
		slots []Slot
		seen  = make(map[Kind]int)
	)
	for _, s := range l {
		for range s.Capacity {
			seen[s.Kind]++
			slots = append(slots, Slot{Kind: s.Kind, Column: fmt.Sprintf("%s%d", s.Kind, seen[s.Kind])})
		}
	}
	return slots
}
