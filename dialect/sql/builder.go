package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	goora "github.com/sijms/go-ora/v2"

	"github.com/syssam/polystore/dialect"
)

// ParamKind is the database type a parameter is bound as.
type ParamKind uint8

// Parameter kinds.
const (
	KindInvalid ParamKind = iota
	KindFixedAnsiString
	KindVariableString
	KindCLOB
	KindInt32
	KindInt64
	KindDecimal
	KindBoolean
	KindDateTime
	KindGUID
	KindBinary
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindFixedAnsiString: "fixed-ansi-string",
	KindVariableString:  "variable-string",
	KindCLOB:            "clob",
	KindInt32:           "int32",
	KindInt64:           "int64",
	KindDecimal:         "decimal",
	KindBoolean:         "boolean",
	KindDateTime:        "datetime",
	KindGUID:            "guid",
	KindBinary:          "binary",
}

func (k ParamKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Param is one bound parameter of a compiled statement.
type Param struct {
	Name  string    `msgpack:"name"`
	Value any       `msgpack:"value"`
	Kind  ParamKind `msgpack:"kind"`
	Size  int       `msgpack:"size,omitempty"`
}

// Statement is a compiled, parameterized statement for one dialect.
// Statements are produced fresh per compilation and never mutated.
type Statement struct {
	Dialect string  `msgpack:"dialect"`
	Text    string  `msgpack:"text"`
	Params  []Param `msgpack:"params"`
	Named   bool    `msgpack:"named"` // parameters are bound by name.
}

// String returns the statement text.
func (s *Statement) String() string {
	return s.Text
}

// Values returns the raw parameter values in order.
func (s *Statement) Values() []any {
	vs := make([]any, len(s.Params))
	for i, p := range s.Params {
		vs[i] = p.Value
	}
	return vs
}

// NamedValues returns the raw parameter values wrapped in sql.Named.
func (s *Statement) NamedValues() []any {
	vs := make([]any, len(s.Params))
	for i, p := range s.Params {
		vs[i] = sql.Named(p.Name, p.Value)
	}
	return vs
}

// Args returns the driver arguments of the statement: values converted to
// the binding types of the dialect's driver, wrapped in sql.Named when the
// dialect binds by name.
func (s *Statement) Args() []any {
	args := make([]any, len(s.Params))
	for i, p := range s.Params {
		v := bindValue(s.Dialect, p)
		if s.Named {
			v = sql.Named(p.Name, v)
		}
		args[i] = v
	}
	return args
}

// bindValue converts a parameter value to the driver type that carries its
// kind. SQL Server needs explicit VARCHAR and NVARCHAR(MAX) types; Oracle
// needs CLOB locators for unbounded text and has no boolean type.
func bindValue(name string, p Param) any {
	if p.Value == nil {
		return nil
	}
	switch name {
	case dialect.SQLServer:
		s, ok := p.Value.(string)
		if !ok {
			return p.Value
		}
		switch p.Kind {
		case KindFixedAnsiString:
			return mssql.VarChar(s)
		case KindCLOB:
			return mssql.NVarCharMax(s)
		}
	case dialect.Oracle:
		switch v := p.Value.(type) {
		case string:
			if p.Kind == KindCLOB {
				return goora.Clob{String: v, Valid: true}
			}
		case bool:
			if v {
				return 1
			}
			return 0
		}
	}
	return p.Value
}

// Builder accumulates statement text and parameters. Parameter names are
// unique within a statement: a repeated name gets a numeric suffix.
type Builder struct {
	sb     strings.Builder
	caps   *dialect.Capability
	params []Param
	names  map[string]struct{}
}

// NewBuilder returns a builder for the given dialect.
func NewBuilder(c *dialect.Capability) *Builder {
	return &Builder{caps: c, names: make(map[string]struct{})}
}

// WriteString appends s to the statement text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte appends c to the statement text.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Int appends an integer literal.
func (b *Builder) Int(n int) *Builder {
	b.sb.WriteString(strconv.Itoa(n))
	return b
}

// Join appends the items separated by sep.
func (b *Builder) Join(sep string, items ...string) *Builder {
	for i, s := range items {
		if i > 0 {
			b.sb.WriteString(sep)
		}
		b.sb.WriteString(s)
	}
	return b
}

// Arg binds a value and appends its placeholder.
func (b *Builder) Arg(name string, v any, kind ParamKind, size int) *Builder {
	name = b.uniqueName(paramName(name))
	b.params = append(b.params, Param{Name: name, Value: v, Kind: kind, Size: size})
	switch b.caps.Placeholder {
	case dialect.PlaceholderAt:
		b.sb.WriteString("@" + name)
	case dialect.PlaceholderColon:
		b.sb.WriteString(":" + name)
	case dialect.PlaceholderDollar:
		b.sb.WriteString("$" + strconv.Itoa(len(b.params)))
	default:
		b.sb.WriteByte('?')
	}
	return b
}

// Len returns the current text length.
func (b *Builder) Len() int {
	return b.sb.Len()
}

// Statement returns the compiled statement.
func (b *Builder) Statement() *Statement {
	return &Statement{
		Dialect: b.caps.Name,
		Text:    b.sb.String(),
		Params:  b.params,
		Named:   b.caps.Placeholder.Named(),
	}
}

func (b *Builder) uniqueName(name string) string {
	if _, ok := b.names[name]; !ok {
		b.names[name] = struct{}{}
		return name
	}
	for i := 1; ; i++ {
		n := fmt.Sprintf("%s%d", name, i)
		if _, ok := b.names[n]; !ok {
			b.names[n] = struct{}{}
			return n
		}
	}
}

// paramName maps a logical name to a bind-safe parameter name.
func paramName(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('p')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "p"
	}
	return sb.String()
}
