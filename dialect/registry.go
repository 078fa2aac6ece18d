package dialect

import (
	"sort"
	"strings"

	"github.com/syssam/polystore"
)

// Registry resolves dialect identifiers to capability rows. It is built once
// and is read-only afterwards, so concurrent lookups need no locking.
type Registry struct {
	caps  map[string]*Capability
	names map[string]string // identifier or alias -> canonical name
}

// NewRegistry returns a registry holding the given capability rows.
// Identifiers are matched case-insensitively. A later row replaces an
// earlier row with the same canonical name.
func NewRegistry(caps ...*Capability) *Registry {
	r := &Registry{
		caps:  make(map[string]*Capability, len(caps)),
		names: make(map[string]string, len(caps)*3),
	}
	for _, c := range caps {
		name := strings.ToLower(c.Name)
		r.caps[name] = c
		r.names[name] = name
		for _, a := range c.Aliases {
			r.names[strings.ToLower(a)] = name
		}
	}
	return r
}

// Lookup returns the capability row for the given identifier or alias.
// Unknown identifiers fail with *polystore.UnsupportedDialectError; there
// is no fallback dialect.
func (r *Registry) Lookup(name string) (*Capability, error) {
	canonical, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &polystore.UnsupportedDialectError{Name: name, Available: r.Names()}
	}
	return r.caps[canonical], nil
}

// Canonical resolves an identifier or alias to its canonical dialect name.
func (r *Registry) Canonical(name string) (string, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// Names returns the sorted canonical names of the registered dialects.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.caps))
	for _, c := range r.caps {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the registered rows ordered by canonical name.
func (r *Registry) Capabilities() []*Capability {
	names := r.Names()
	caps := make([]*Capability, len(names))
	for i, n := range names {
		caps[i] = r.caps[strings.ToLower(n)]
	}
	return caps
}
