package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

// ScanValues reads the remaining rows into maps keyed by logical name,
// decoding each column with its attribute or variant property. Column
// names match case-insensitively. The RowNum column of paginated selects
// is dropped, and columns matching no attribute are kept undecoded.
// ScanValues does not close rows.
func ScanValues(rows ColumnScanner, e *schema.Entity, v *extension.Variant) ([]Values, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: scan columns: %w", err)
	}
	type target struct {
		name string
		desc *field.Descriptor
		skip bool
	}
	targets := make([]target, len(names))
	for i, n := range names {
		targets[i] = target{name: n}
		switch {
		case strings.EqualFold(n, RowNumColumn):
			targets[i].skip = true
		case strings.EqualFold(n, RelevanceColumn):
			targets[i].name = RelevanceColumn
		default:
			if name, d, ok := lookupColumn(e, v, n); ok {
				targets[i].name, targets[i].desc = name, d
			}
		}
	}
	var out []Values
	for rows.Next() {
		raw := make([]any, len(names))
		dest := make([]any, len(names))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan row: %w", err)
		}
		row := make(Values, len(names))
		for i, t := range targets {
			if t.skip {
				continue
			}
			if t.desc == nil {
				row[t.name] = raw[i]
				continue
			}
			val, err := DecodeValue(t.desc, raw[i])
			if err != nil {
				return nil, err
			}
			row[t.name] = val
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/sql: scan rows: %w", err)
	}
	return out, nil
}

// lookupColumn matches a result column to an attribute, by logical name or
// physical column, or to a variant property.
func lookupColumn(e *schema.Entity, v *extension.Variant, col string) (string, *field.Descriptor, bool) {
	for _, a := range e.Columns() {
		if strings.EqualFold(a.Name, col) || strings.EqualFold(a.StorageColumn(), col) {
			return a.Name, a, true
		}
	}
	if v != nil {
		for _, p := range v.Properties() {
			if strings.EqualFold(p.Name, col) || strings.EqualFold(p.Slot.Column, col) {
				return p.Name, p.Descriptor(), true
			}
		}
	}
	return "", nil, false
}
