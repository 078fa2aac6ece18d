package extension

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/syssam/polystore"
)

// Assignment is one row of the allocation table: a property of a variant
// bound to a slot column.
type Assignment struct {
	VariantID string
	Property  string
	Slot      Slot
}

// Pool allocates slot columns to variant properties. Within a variant the
// assignment is a bijection between properties and the columns they use:
// a column serves at most one property and a property owns exactly one
// column. Different variants reuse the same columns, since extension rows
// are keyed by variant.
//
// Registration is serialized by a mutex; registered variants are read-only.
type Pool struct {
	mu       sync.RWMutex
	layout   Layout
	slots    []Slot
	variants map[string]*Variant
	used     map[string]map[string]string // variant id -> column -> property
}

// NewPool returns an empty pool over the given layout.
func NewPool(layout Layout) *Pool {
	return &Pool{
		layout:   layout,
		slots:    layout.Slots(),
		variants: make(map[string]*Variant),
		used:     make(map[string]map[string]string),
	}
}

// Layout returns the slot layout of the pool.
func (p *Pool) Layout() Layout {
	return p.layout
}

// Register validates the definition, binds each property to the first free
// slot of its kind and returns the immutable variant.
func (p *Pool) Register(def Definition) (*Variant, error) {
	var errs []error
	fail := func(name, format string, args ...any) {
		errs = append(errs, polystore.NewConfigurationError(def.Entity, name, format, args...))
	}
	for _, id := range []struct{ name, v string }{
		{"ID", def.ID}, {"SystemID", def.SystemID}, {"RepositoryID", def.RepositoryID},
	} {
		if id.v == "" || len(id.v) > VariantIDLength {
			fail(def.Name, "variant %s must have 1 to %d characters", id.name, VariantIDLength)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.variants[def.ID]; ok {
		return nil, polystore.NewConfigurationError(def.Entity, def.Name, "variant %s already registered", def.ID)
	}
	v := &Variant{
		ID:           def.ID,
		Name:         def.Name,
		Entity:       def.Entity,
		SystemID:     def.SystemID,
		RepositoryID: def.RepositoryID,
		byName:       make(map[string]*Property, len(def.Properties)),
	}
	used := make(map[string]string, len(def.Properties))
	for _, pd := range def.Properties {
		if pd.Name == "" {
			fail(def.Name, "property without a name")
			continue
		}
		if _, ok := v.byName[pd.Name]; ok {
			fail(pd.Name, "duplicate property in variant %s", def.Name)
			continue
		}
		kind, err := KindOf(pd.Type, pd.MaxLength)
		if err != nil {
			errs = append(errs, &polystore.TypeMappingError{Attribute: pd.Name, Type: pd.Type.String()})
			continue
		}
		slot, ok := p.free(kind, used)
		if !ok {
			fail(pd.Name, "no free %s slot (capacity %d)", kind, p.layout.Capacity(kind))
			continue
		}
		used[slot.Column] = pd.Name
		prop := &Property{
			Name:      pd.Name,
			Type:      pd.Type,
			MaxLength: pd.MaxLength,
			Enums:     pd.Enums,
			Default:   pd.Default,
			Slot:      slot,
		}
		v.props = append(v.props, prop)
		v.byName[pd.Name] = prop
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("extension: register %s: %w", def.Name, errors.Join(errs...))
	}
	p.variants[v.ID] = v
	p.used[v.ID] = used
	return v, nil
}

// free returns the first slot of kind not present in used.
func (p *Pool) free(kind Kind, used map[string]string) (Slot, bool) {
	for _, s := range p.slots {
		if s.Kind != kind {
			continue
		}
		if _, taken := used[s.Column]; !taken {
			return s, true
		}
	}
	return Slot{}, false
}

// Variant returns the registered variant with the given id.
func (p *Pool) Variant(id string) (*Variant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.variants[id]
	return v, ok
}

// Variants returns the registered variants ordered by id.
func (p *Pool) Variants() []*Variant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	vs := make([]*Variant, 0, len(p.variants))
	for _, v := range p.variants {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
	return vs
}

// Assignments returns the allocation table ordered by variant id, then by
// property registration order.
func (p *Pool) Assignments() []Assignment {
	var rows []Assignment
	for _, v := range p.Variants() {
		for _, prop := range v.props {
			rows = append(rows, Assignment{VariantID: v.ID, Property: prop.Name, Slot: prop.Slot})
		}
	}
	return rows
}
