// Package mixin provides reusable attribute sets for entity declarations.
//
// A mixin is embedded in a declaration with schema.Builder.Mixin; its
// attributes and indexes are appended after the ones declared before it:
//
//	schema.Define("Document").
//	    Key("Id").
//	    Fields(field.String("Id").MaxLen(32)).
//	    Mixin(mixin.Time{}, mixin.SoftDelete{})
//
// To create a custom mixin, embed Schema and override the methods you need:
//
//	type Owner struct {
//	    mixin.Schema
//	}
//
//	func (Owner) Fields() []*field.Builder {
//	    return []*field.Builder{field.String("OwnerId").MaxLen(32).Sortable("Owner")}
//	}
package mixin

import (
	"fmt"
	"sort"

	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/schema/index"
)

// Attribute names of the built-in mixins.
const (
	CreatedOn  = "CreatedOn"
	ModifiedOn = "ModifiedOn"
	DeletedOn  = "DeletedOn"
)

// Schema is the default implementation of schema.Mixin. It should be
// embedded in all custom mixins.
type Schema struct{}

// Fields returns the attributes of the mixin.
func (Schema) Fields() []*field.Builder { return nil }

// Indexes returns the indexes of the mixin.
func (Schema) Indexes() []*index.Builder { return nil }

var _ schema.Mixin = (*Schema)(nil)

// Time adds the CreatedOn and ModifiedOn timestamps. CreatedOn is indexed;
// ModifiedOn is null until the first update and is not written while null.
type Time struct {
	Schema
}

// Fields returns the timestamp attributes.
func (Time) Fields() []*field.Builder {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// Indexes returns the CreatedOn index.
func (Time) Indexes() []*index.Builder {
	return CreateTime{}.Indexes()
}

// CreateTime adds only the CreatedOn timestamp.
type CreateTime struct {
	Schema
}

// Fields returns the CreatedOn attribute.
func (CreateTime) Fields() []*field.Builder {
	return []*field.Builder{field.Time(CreatedOn)}
}

// Indexes returns the CreatedOn index.
func (CreateTime) Indexes() []*index.Builder {
	return []*index.Builder{index.Fields(CreatedOn)}
}

// UpdateTime adds only the ModifiedOn timestamp.
type UpdateTime struct {
	Schema
}

// Fields returns the ModifiedOn attribute.
func (UpdateTime) Fields() []*field.Builder {
	return []*field.Builder{field.Time(ModifiedOn).Nillable().IgnoreIfNull()}
}

// SoftDelete adds DeletedOn. A row with a DeletedOn value is considered
// deleted but remains in the table.
type SoftDelete struct {
	Schema
}

// Fields returns the DeletedOn attribute.
func (SoftDelete) Fields() []*field.Builder {
	return []*field.Builder{field.Time(DeletedOn).Nillable().IgnoreIfNull()}
}

// TimeSoftDelete combines Time and SoftDelete.
type TimeSoftDelete struct {
	Schema
}

// Fields returns the timestamp and soft delete attributes.
func (TimeSoftDelete) Fields() []*field.Builder {
	return append(Time{}.Fields(), SoftDelete{}.Fields()...)
}

// Indexes returns the CreatedOn index.
func (TimeSoftDelete) Indexes() []*index.Builder {
	return Time{}.Indexes()
}

var builtin = map[string]schema.Mixin{
	"time":             Time{},
	"create_time":      CreateTime{},
	"update_time":      UpdateTime{},
	"soft_delete":      SoftDelete{},
	"time_soft_delete": TimeSoftDelete{},
}

// Named returns the built-in mixin registered under name.
func Named(name string) (schema.Mixin, error) {
	m, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("mixin: unknown mixin %q", name)
	}
	return m, nil
}

// Names returns the names of the built-in mixins, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
