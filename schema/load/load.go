// Package load reads declarative schema descriptions: the entities of an
// application and the variants of their extended properties, written as
// YAML or JSON.
//
//	layout:
//	  - {kind: SmallText, capacity: 4}
//	  - {kind: LargeText, capacity: 1}
//	entities:
//	  - name: Document
//	    key: Id
//	    extendable: true
//	    searchable: true
//	    fields:
//	      - {name: Id, type: string, max_len: 32}
//	      - {name: Title, type: string, max_len: 200, sortable: Title, searchable: true}
//	    mixins: [time]
//	variants:
//	  - name: Invoice
//	    entity: Document
//	    properties:
//	      - {name: Amount, type: decimal}
package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/schema/index"
	"github.com/syssam/polystore/schema/mixin"
)

// DefaultSystem is the system and repository id of variants that declare
// none.
const DefaultSystem = "default"

// Namespace derives the ids of variants declared without one. The id of a
// variant is the SHA-1 UUID of "<entity>/<name>" in this namespace, written
// as 32 hex digits.
var Namespace = uuid.MustParse("6f1c6b0e-58a4-4bd4-9a47-3f0d5d0e2a7c")

// File is the decoded form of a schema description.
type File struct {
	Layout   []*Slot    `yaml:"layout,omitempty"`
	Entities []*Entity  `yaml:"entities"`
	Variants []*Variant `yaml:"variants,omitempty"`
}

// Slot is one row of the extension slot layout.
type Slot struct {
	Kind     string `yaml:"kind"`
	Capacity int    `yaml:"capacity"`
}

// Entity describes an entity.
type Entity struct {
	Name           string   `yaml:"name"`
	Table          string   `yaml:"table,omitempty"`
	Key            string   `yaml:"key"`
	Extendable     bool     `yaml:"extendable,omitempty"`
	ExtensionTable string   `yaml:"extension_table,omitempty"`
	Searchable     bool     `yaml:"searchable,omitempty"`
	Parent         *Parent  `yaml:"parent,omitempty"`
	Fields         []*Field `yaml:"fields"`
	// Mixins name built-in mixins whose attributes follow Fields.
	Mixins  []string `yaml:"mixins,omitempty"`
	Indexes []*Index `yaml:"indexes,omitempty"`
}

// Parent describes the parent association of an entity.
type Parent struct {
	Attribute string `yaml:"attribute"`
	Multiple  bool   `yaml:"multiple,omitempty"`
}

// Field describes an attribute.
type Field struct {
	Name             string   `yaml:"name"`
	Column           string   `yaml:"column,omitempty"`
	Type             string   `yaml:"type"`
	MaxLen           int      `yaml:"max_len,omitempty"`
	Values           []string `yaml:"values,omitempty"`
	Nillable         bool     `yaml:"nillable,omitempty"`
	IgnoreIfNull     bool     `yaml:"ignore_if_null,omitempty"`
	JSON             bool     `yaml:"json,omitempty"`
	StoredAsString   bool     `yaml:"stored_as_string,omitempty"`
	CLOB             bool     `yaml:"clob,omitempty"`
	EnumString       bool     `yaml:"enum_string,omitempty"`
	Mappings         bool     `yaml:"mappings,omitempty"`
	AssociationTable string   `yaml:"association_table,omitempty"`
	Sortable         string   `yaml:"sortable,omitempty"`
	Unique           string   `yaml:"unique,omitempty"`
	Searchable       bool     `yaml:"searchable,omitempty"`
	Alias            bool     `yaml:"alias,omitempty"`
}

// Index describes an explicit secondary index.
type Index struct {
	Fields     []string `yaml:"fields"`
	Unique     bool     `yaml:"unique,omitempty"`
	Group      string   `yaml:"group,omitempty"`
	StorageKey string   `yaml:"storage_key,omitempty"`
}

// Variant describes a variant of extended properties.
type Variant struct {
	ID         string      `yaml:"id,omitempty"`
	Name       string      `yaml:"name"`
	Entity     string      `yaml:"entity"`
	System     string      `yaml:"system,omitempty"`
	Repository string      `yaml:"repository,omitempty"`
	Properties []*Property `yaml:"properties"`
}

// Property describes an extended property.
type Property struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	MaxLen  int      `yaml:"max_len,omitempty"`
	Values  []string `yaml:"values,omitempty"`
	Default any      `yaml:"default,omitempty"`
}

// Schema is a loaded schema description.
type Schema struct {
	Entities []*schema.Entity
	Pool     *extension.Pool
	Variants []*extension.Variant
}

// Entity returns the entity with the given name.
func (s *Schema) Entity(name string) (*schema.Entity, bool) {
	for _, e := range s.Entities {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Variant returns the variant of an entity with the given name or id.
func (s *Schema) Variant(entity, name string) (*extension.Variant, bool) {
	for _, v := range s.Variants {
		if v.Entity == entity && (v.Name == name || v.ID == name) {
			return v, true
		}
	}
	return nil, false
}

// ReadFile loads the schema description stored at path.
func ReadFile(path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	s, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// Parse loads a schema description. JSON documents are accepted as the
// YAML subset they are.
func Parse(data []byte) (*Schema, error) {
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Decode decodes a schema description without building it. Unknown keys
// are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	f := &File{}
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("load: empty schema description")
		}
		return nil, fmt.Errorf("load: decode: %w", err)
	}
	return f, nil
}

// Build validates the description and returns the entities, and the pool
// the variants are registered in.
func (f *File) Build() (*Schema, error) {
	layout, err := f.layout()
	if err != nil {
		return nil, err
	}
	s := &Schema{Pool: extension.NewPool(layout)}
	var errs []error
	for _, e := range f.Entities {
		ent, err := e.build()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := s.Entity(ent.Name()); ok {
			errs = append(errs, polystore.NewConfigurationError(ent.Name(), "", "entity declared twice"))
			continue
		}
		s.Entities = append(s.Entities, ent)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, v := range f.Variants {
		ent, ok := s.Entity(v.Entity)
		switch {
		case !ok:
			errs = append(errs, polystore.NewConfigurationError(v.Entity, v.Name, "variant of an unknown entity"))
			continue
		case !ent.Extendable():
			errs = append(errs, polystore.NewConfigurationError(v.Entity, v.Name, "variant of an entity that is not extendable"))
			continue
		}
		def, err := v.definition()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		variant, err := s.Pool.Register(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.Variants = append(s.Variants, variant)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func (f *File) layout() (extension.Layout, error) {
	if len(f.Layout) == 0 {
		return extension.DefaultLayout(), nil
	}
	layout := make(extension.Layout, 0, len(f.Layout))
	for _, s := range f.Layout {
		kind, err := extension.ParseKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("load: layout: %w", err)
		}
		if s.Capacity < 0 {
			return nil, fmt.Errorf("load: layout: negative capacity for %s", kind)
		}
		layout = append(layout, extension.SlotSpec{Kind: kind, Capacity: s.Capacity})
	}
	return layout, nil
}

var rules = inflect.NewDefaultRuleset()

// TableName returns the default table of an entity: the plural of its name.
func TableName(entity string) string {
	return rules.Pluralize(entity)
}

func (e *Entity) build() (*schema.Entity, error) {
	table := e.Table
	if table == "" {
		table = TableName(e.Name)
	}
	b := schema.Define(e.Name).Table(table).Key(e.Key)
	var errs []error
	for _, f := range e.Fields {
		d, err := f.descriptor()
		if err != nil {
			errs = append(errs, polystore.NewConfigurationError(e.Name, f.Name, "%v", err))
			continue
		}
		b.Descriptors(d)
	}
	for _, name := range e.Mixins {
		m, err := mixin.Named(name)
		if err != nil {
			errs = append(errs, polystore.NewConfigurationError(e.Name, name, "%v", err))
			continue
		}
		b.Mixin(m)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("load: entity %s: %w", e.Name, errors.Join(errs...))
	}
	for _, idx := range e.Indexes {
		ib := index.Fields(idx.Fields...).Group(idx.Group).StorageKey(idx.StorageKey)
		if idx.Unique {
			ib.Unique()
		}
		b.Indexes(ib)
	}
	if e.Extendable {
		b.Extendable(e.ExtensionTable)
	}
	if e.Searchable {
		b.Searchable()
	}
	if p := e.Parent; p != nil {
		pb := edge.Parent(p.Attribute)
		if p.Multiple {
			pb.Multiple()
		}
		b.Parent(pb)
	}
	return b.Build()
}

func (f *Field) descriptor() (*field.Descriptor, error) {
	var b *field.Builder
	switch strings.ToLower(f.Type) {
	case "text", "clob":
		b = field.Text(f.Name)
	case "json":
		b = field.JSON(f.Name)
	default:
		t, err := field.ParseType(f.Type)
		if err != nil {
			return nil, err
		}
		b = builder(t, f.Name)
	}
	b.Column(f.Column).MaxLen(f.MaxLen).Values(f.Values...).
		Sortable(f.Sortable).Unique(f.Unique).AssociationTable(f.AssociationTable)
	for _, opt := range []struct {
		set   bool
		apply func() *field.Builder
	}{
		{f.Nillable, b.Nillable},
		{f.IgnoreIfNull, b.IgnoreIfNull},
		{f.JSON, b.StoredAsJSON},
		{f.StoredAsString, b.StoredAsString},
		{f.CLOB, b.CLOB},
		{f.EnumString, b.EnumString},
		{f.Mappings, b.Mappings},
		{f.Searchable, b.Searchable},
		{f.Alias, b.Alias},
	} {
		if opt.set {
			opt.apply()
		}
	}
	return b.Descriptor(), nil
}

func builder(t field.Type, name string) *field.Builder {
	switch t {
	case field.TypeBool:
		return field.Bool(name)
	case field.TypeTime:
		return field.Time(name)
	case field.TypeInt32:
		return field.Int32(name)
	case field.TypeInt64:
		return field.Int64(name)
	case field.TypeFloat64:
		return field.Float64(name)
	case field.TypeDecimal:
		return field.Decimal(name)
	case field.TypeUUID:
		return field.UUID(name)
	case field.TypeBytes:
		return field.Bytes(name)
	case field.TypeEnum:
		return field.Enum(name)
	case field.TypeOther:
		return field.Other(name)
	default:
		return field.String(name)
	}
}

func (v *Variant) definition() (extension.Definition, error) {
	def := extension.Definition{
		ID:           v.ID,
		Name:         v.Name,
		Entity:       v.Entity,
		SystemID:     v.System,
		RepositoryID: v.Repository,
	}
	if def.ID == "" {
		def.ID = VariantID(v.Entity, v.Name)
	}
	if def.SystemID == "" {
		def.SystemID = DefaultSystem
	}
	if def.RepositoryID == "" {
		def.RepositoryID = DefaultSystem
	}
	for _, p := range v.Properties {
		t, err := field.ParseType(p.Type)
		if err != nil {
			return def, polystore.NewConfigurationError(v.Entity, p.Name, "%v", err)
		}
		def.Properties = append(def.Properties, extension.PropertyDef{
			Name:      p.Name,
			Type:      t,
			MaxLength: p.MaxLen,
			Enums:     p.Values,
			Default:   p.Default,
		})
	}
	return def, nil
}

// VariantID returns the deterministic id of a variant declared without one.
func VariantID(entity, name string) string {
	id := uuid.NewSHA1(Namespace, []byte(entity+"/"+name))
	return strings.ReplaceAll(id.String(), "-", "")
}
