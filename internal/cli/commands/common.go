// Package commands implements the polystore subcommands.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/internal/cli/config"
	"github.com/syssam/polystore/querylanguage"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/schema/load"
)

// loadSchema reads the configured schema description.
func loadSchema(cfg *config.Config) (*load.Schema, error) {
	if cfg.Schema == "" {
		return nil, fmt.Errorf("no schema file configured")
	}
	return load.ReadFile(cfg.Schema)
}

// selectEntities returns the named entities, or every entity when names is
// empty.
func selectEntities(s *load.Schema, names []string) ([]*schema.Entity, error) {
	if len(names) == 0 {
		return s.Entities, nil
	}
	entities := make([]*schema.Entity, 0, len(names))
	for _, name := range names {
		e, ok := s.Entity(name)
		if !ok {
			return nil, polystore.NewConfigurationError(name, "", "unknown entity")
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// openDriver opens the configured database with statement statistics and
// slow statement logging.
func openDriver(ctx context.Context, reg *dialect.Registry, name string) (*sql.StatsDriver, error) {
	cfg := config.FromContext(ctx)
	if err := cfg.RequireDSN(); err != nil {
		return nil, err
	}
	drv, _, err := sql.OpenWithStats(reg, name, cfg.Driver, cfg.DSN,
		sql.WithSlowThreshold(cfg.SlowThreshold),
		sql.WithSlowLog(config.Logger(ctx)),
	)
	if err != nil {
		return nil, err
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	return drv, nil
}

// parseAssignments parses NAME=VALUE pairs into typed values of the
// entity's attributes and of the properties of v, which may be nil. The
// literal null assigns a null value.
func parseAssignments(e *schema.Entity, v *extension.Variant, pairs []string) (sql.Values, error) {
	values := make(sql.Values, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q, expect NAME=VALUE", pair)
		}
		a, ok := e.Attribute(name)
		if !ok && v != nil {
			if p, found := v.Property(name); found {
				a, ok = p.Descriptor(), true
			}
		}
		if !ok {
			return nil, polystore.NewConfigurationError(e.Name(), name, "unknown attribute")
		}
		val, err := parseValue(a, raw)
		if err != nil {
			return nil, err
		}
		values[name] = val
	}
	return values, nil
}

// parseFilter folds NAME=VALUE pairs into an equality filter.
func parseFilter(e *schema.Entity, v *extension.Variant, pairs []string) (querylanguage.P, error) {
	values, err := parseAssignments(e, v, pairs)
	if err != nil {
		return nil, err
	}
	ps := make([]querylanguage.P, 0, len(pairs))
	for _, pair := range pairs {
		name, _, _ := strings.Cut(pair, "=")
		if v := values[name]; v == nil {
			ps = append(ps, querylanguage.FieldNil(name))
		} else {
			ps = append(ps, querylanguage.FieldEQ(name, v))
		}
	}
	return querylanguage.All(ps...), nil
}

// parseOrder parses sort keys; a leading '-' sorts descending.
func parseOrder(keys []string) []querylanguage.Order {
	order := make([]querylanguage.Order, 0, len(keys))
	for _, k := range keys {
		if name, ok := strings.CutPrefix(k, "-"); ok {
			order = append(order, querylanguage.Desc(name))
			continue
		}
		order = append(order, querylanguage.Asc(strings.TrimPrefix(k, "+")))
	}
	return order
}

func parseValue(a *field.Descriptor, raw string) (any, error) {
	if raw == "null" {
		return nil, nil
	}
	var (
		v   any
		err error
	)
	switch a.Type {
	case field.TypeInt32, field.TypeInt64:
		v, err = strconv.ParseInt(raw, 10, 64)
	case field.TypeFloat64, field.TypeDecimal:
		v, err = strconv.ParseFloat(raw, 64)
	case field.TypeBool:
		v, err = strconv.ParseBool(raw)
	case field.TypeTime:
		v, err = time.Parse(time.RFC3339, raw)
	default:
		v = raw
	}
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
	}
	return v, nil
}
