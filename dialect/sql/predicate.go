package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/querylanguage"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

// likeEscape is the escape character of compiled LIKE patterns.
const likeEscape = '!'

// filter lowers a filter tree into a WHERE condition of one statement.
type filter struct {
	b          *Builder
	e          *schema.Entity
	variant    *extension.Variant
	parentJoin bool
	// parentExists lowers parent association comparisons like any other
	// mappings attribute.
	parentExists bool
	subqueries   int // mappings subqueries emitted so far.
}

// lower writes the condition of p.
func (f *filter) lower(p querylanguage.Expr) error {
	switch x := p.(type) {
	case *querylanguage.UnaryExpr:
		if x.Op != querylanguage.OpNot {
			return f.unsupported(x)
		}
		f.b.WriteString("NOT (")
		if err := f.lower(x.X); err != nil {
			return err
		}
		f.b.Byte(')')
		return nil
	case *querylanguage.BinaryExpr:
		switch x.Op {
		case querylanguage.OpAnd, querylanguage.OpOr:
			return f.logical(x.Op, x.X, x.Y)
		}
		return f.compare(x)
	case *querylanguage.NaryExpr:
		switch x.Op {
		case querylanguage.OpAnd, querylanguage.OpOr:
			return f.logical(x.Op, x.Xs...)
		}
		return f.unsupported(x)
	case *querylanguage.CallExpr:
		return f.call(x)
	default:
		return f.unsupported(p)
	}
}

func (f *filter) logical(op querylanguage.Op, xs ...querylanguage.Expr) error {
	sep := " AND "
	if op == querylanguage.OpOr {
		sep = " OR "
	}
	for i, x := range xs {
		if i > 0 {
			f.b.WriteString(sep)
		}
		wrap := isLogical(x, op)
		if wrap {
			f.b.Byte('(')
		}
		if err := f.lower(x); err != nil {
			return err
		}
		if wrap {
			f.b.Byte(')')
		}
	}
	return nil
}

// isLogical reports whether x is an AND/OR expression with an operator
// other than op.
func isLogical(x querylanguage.Expr, op querylanguage.Op) bool {
	var xop querylanguage.Op
	switch x := x.(type) {
	case *querylanguage.BinaryExpr:
		xop = x.Op
	case *querylanguage.NaryExpr:
		xop = x.Op
	default:
		return false
	}
	return (xop == querylanguage.OpAnd || xop == querylanguage.OpOr) && xop != op
}

var compareOps = map[querylanguage.Op]string{
	querylanguage.OpEQ:  "=",
	querylanguage.OpNEQ: "<>",
	querylanguage.OpGT:  ">",
	querylanguage.OpGTE: ">=",
	querylanguage.OpLT:  "<",
	querylanguage.OpLTE: "<=",
}

func (f *filter) compare(x *querylanguage.BinaryExpr) error {
	lhs, ok := x.X.(*querylanguage.Field)
	if !ok {
		return f.unsupported(x)
	}
	if a, ok := f.e.Attribute(lhs.Name); ok && a.Mappings {
		return f.compareMappings(a, x)
	}
	col, err := resolve(f.e, f.variant, lhs.Name)
	if err != nil {
		return err
	}
	return f.compareColumn(col.name, col.expr, col.desc, x)
}

// compareMappings lowers a comparison on a Mappings attribute: through the
// joined association table for the parent association, or through an
// EXISTS subquery otherwise.
func (f *filter) compareMappings(a *field.Descriptor, x *querylanguage.BinaryExpr) error {
	if p := f.e.Parent(); p != nil && p.Attribute == a.Name {
		if !f.parentJoin {
			return polystore.NewConfigurationError(f.e.Name(), a.Name, "filter on the parent association requires the parent join")
		}
		if !f.parentExists {
			return f.compareColumn(a.Name, associationAlias+"."+edge.MappedColumn, edge.MappedDescriptor(a), x)
		}
	}
	alias := f.subquery(a)
	if v, ok := x.Y.(*querylanguage.Value); ok && v.IsNil() {
		switch x.Op {
		case querylanguage.OpEQ:
			f.b.WriteString("NOT EXISTS (")
		case querylanguage.OpNEQ:
			f.b.WriteString("EXISTS (")
		default:
			return f.unsupported(x)
		}
		f.writeSubquery(a, alias)
		f.b.Byte(')')
		return nil
	}
	f.b.WriteString("EXISTS (")
	f.writeSubquery(a, alias)
	f.b.WriteString(" AND ")
	if err := f.compareColumn(a.Name, alias+"."+edge.MappedColumn, edge.MappedDescriptor(a), x); err != nil {
		return err
	}
	f.b.Byte(')')
	return nil
}

func (f *filter) subquery(a *field.Descriptor) string {
	f.subqueries++
	return "m" + strconv.Itoa(f.subqueries)
}

func (f *filter) writeSubquery(a *field.Descriptor, alias string) {
	f.b.WriteString("SELECT 1 FROM ").
		WriteString(f.e.AssociationTable(a)).
		WriteString(" " + alias + " WHERE ").
		WriteString(alias + "." + edge.LinkColumn + "=").
		WriteString(originAlias + "." + f.e.PrimaryKey().StorageColumn())
}

func (f *filter) compareColumn(name, expr string, a *field.Descriptor, x *querylanguage.BinaryExpr) error {
	switch y := x.Y.(type) {
	case *querylanguage.Field:
		other, err := resolve(f.e, f.variant, y.Name)
		if err != nil {
			return err
		}
		op, ok := compareOps[x.Op]
		if !ok {
			return f.unsupported(x)
		}
		f.b.WriteString(expr + op + other.expr)
		return nil
	case *querylanguage.Value:
		if y.IsNil() {
			switch x.Op {
			case querylanguage.OpEQ:
				f.b.WriteString(expr + " IS NULL")
			case querylanguage.OpNEQ:
				f.b.WriteString(expr + " IS NOT NULL")
			default:
				return polystore.NewConfigurationError(f.e.Name(), name, "operator %s does not accept nil", x.Op)
			}
			return nil
		}
		switch x.Op {
		case querylanguage.OpIn, querylanguage.OpNotIn:
			return f.in(name, expr, a, x.Op, y.V)
		}
		op, ok := compareOps[x.Op]
		if !ok {
			return f.unsupported(x)
		}
		f.b.WriteString(expr + op)
		return f.b.bind(name, a, y.V)
	default:
		return f.unsupported(x)
	}
}

func (f *filter) in(name, expr string, a *field.Descriptor, op querylanguage.Op, v any) error {
	vs, ok := v.([]any)
	if !ok {
		return polystore.NewConfigurationError(f.e.Name(), name, "%s expects a list, got %T", op, v)
	}
	if len(vs) == 0 {
		if op == querylanguage.OpIn {
			f.b.WriteString("1=0")
		} else {
			f.b.WriteString("1=1")
		}
		return nil
	}
	f.b.WriteString(expr)
	if op == querylanguage.OpNotIn {
		f.b.WriteString(" NOT")
	}
	f.b.WriteString(" IN (")
	for i, v := range vs {
		if i > 0 {
			f.b.Byte(',')
		}
		if err := f.b.bind(name, a, v); err != nil {
			return err
		}
	}
	f.b.Byte(')')
	return nil
}

func (f *filter) call(x *querylanguage.CallExpr) error {
	if x.Func == querylanguage.FuncHasEdge {
		if len(x.Args) != 1 {
			return f.unsupported(x)
		}
		e, ok := x.Args[0].(*querylanguage.Edge)
		if !ok {
			return f.unsupported(x)
		}
		a, ok := f.e.Attribute(e.Name)
		if !ok || !a.Mappings {
			return polystore.NewConfigurationError(f.e.Name(), e.Name, "has_edge requires a mappings attribute")
		}
		f.b.WriteString("EXISTS (")
		f.writeSubquery(a, f.subquery(a))
		f.b.Byte(')')
		return nil
	}
	if len(x.Args) != 2 {
		return f.unsupported(x)
	}
	lhs, ok := x.Args[0].(*querylanguage.Field)
	if !ok {
		return f.unsupported(x)
	}
	rhs, ok := x.Args[1].(*querylanguage.Value)
	if !ok {
		return f.unsupported(x)
	}
	s, ok := rhs.V.(string)
	if !ok {
		return polystore.NewConfigurationError(f.e.Name(), lhs.Name, "%s expects a string, got %T", x.Func, rhs.V)
	}
	col, err := resolve(f.e, f.variant, lhs.Name)
	if err != nil {
		return err
	}
	if col.desc.Type != field.TypeString {
		return polystore.NewConfigurationError(f.e.Name(), lhs.Name, "%s applies to string attributes only", x.Func)
	}
	expr := col.expr
	switch x.Func {
	case querylanguage.FuncEqualFold, querylanguage.FuncContainsFold:
		expr = "LOWER(" + expr + ")"
		s = strings.ToLower(s)
	}
	if x.Func == querylanguage.FuncEqualFold {
		f.b.WriteString(expr + "=")
		f.b.Arg(col.name, s, KindVariableString, col.desc.MaxLength)
		return nil
	}
	pattern := escapeLike(f.b.caps.Name, s)
	switch x.Func {
	case querylanguage.FuncContains, querylanguage.FuncContainsFold:
		pattern = "%" + pattern + "%"
	case querylanguage.FuncHasPrefix:
		pattern += "%"
	case querylanguage.FuncHasSuffix:
		pattern = "%" + pattern
	default:
		return f.unsupported(x)
	}
	f.b.WriteString(expr + " LIKE ")
	f.b.Arg(col.name, pattern, KindVariableString, 0)
	f.b.WriteString(" ESCAPE '" + string(likeEscape) + "'")
	return nil
}

// escapeLike escapes the LIKE wildcards of s. Brackets are wildcards on
// SQL Server only.
func escapeLike(name, s string) string {
	special := "%_" + string(likeEscape)
	if name == dialect.SQLServer {
		special += "["
	}
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteRune(likeEscape)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (f *filter) unsupported(x querylanguage.Expr) error {
	return polystore.NewConfigurationError(f.e.Name(), "", "unsupported filter expression %s", fmt.Sprint(x))
}

// references reports whether p compares the named attribute.
func references(p querylanguage.Expr, name string) bool {
	switch x := p.(type) {
	case *querylanguage.UnaryExpr:
		return references(x.X, name)
	case *querylanguage.BinaryExpr:
		if fd, ok := x.X.(*querylanguage.Field); ok && fd.Name == name {
			return true
		}
		return references(x.X, name) || references(x.Y, name)
	case *querylanguage.NaryExpr:
		for _, x := range x.Xs {
			if references(x, name) {
				return true
			}
		}
	case *querylanguage.CallExpr:
		for _, a := range x.Args {
			if fd, ok := a.(*querylanguage.Field); ok && fd.Name == name {
				return true
			}
		}
	}
	return false
}
