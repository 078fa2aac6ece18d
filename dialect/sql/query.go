package sql

import (
	"slices"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/querylanguage"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/extension"
)

// orderKey is one lowered sort key.
type orderKey struct {
	expr string
	desc bool
}

func (k orderKey) String() string {
	if k.desc {
		return k.expr + " DESC"
	}
	return k.expr
}

// selection is the resolved shape of a select, count or search.
type selection struct {
	e          *schema.Entity
	q          Query
	cols       []column
	order      []orderKey
	joinParent bool
	// existsParent filters the parent association with EXISTS
	// subqueries instead of a join.
	existsParent bool
	distinct     bool
	search       *fullText
}

// plan resolves the projection, joins and ordering of q.
func (c *Compiler) plan(e *schema.Entity, q Query) (*selection, error) {
	if q.Variant != nil {
		if err := checkVariant(e, q.Variant); err != nil {
			return nil, err
		}
	}
	if q.PageSize > 0 && q.Page < 1 {
		q.Page = 1
	}
	s := &selection{e: e, q: q}
	parent := e.Parent()
	if q.ParentJoin {
		if parent == nil {
			return nil, polystore.NewConfigurationError(e.Name(), "", "parent join without a parent association")
		}
		switch {
		case q.Where == nil || !references(q.Where, parent.Attribute):
		case parent.Multiple && !c.caps.DistinctLOB:
			s.existsParent = true
		default:
			s.joinParent = true
			s.distinct = parent.Multiple
		}
	}
	if len(q.Fields) == 0 {
		for _, a := range e.Columns() {
			s.cols = append(s.cols, column{name: a.Name, expr: originAlias + "." + a.StorageColumn(), desc: a})
		}
		if hasProperties(q.Variant) {
			for _, p := range q.Variant.Properties() {
				s.cols = append(s.cols, column{name: p.Name, expr: extensionAlias + "." + p.Slot.Column, desc: p.Descriptor()})
			}
		}
	}
	for _, name := range q.Fields {
		if err := s.project(name); err != nil {
			return nil, err
		}
	}
	pk := e.PrimaryKey()
	pkExpr := originAlias + "." + pk.StorageColumn()
	for _, o := range q.Order {
		col, err := resolve(e, q.Variant, o.Field)
		if err != nil {
			return nil, err
		}
		s.order = append(s.order, orderKey{expr: col.expr, desc: o.Desc})
		if s.distinct {
			if err := s.project(o.Field); err != nil {
				return nil, err
			}
		}
	}
	if !slices.ContainsFunc(s.order, func(k orderKey) bool { return k.expr == pkExpr }) {
		s.order = append(s.order, orderKey{expr: pkExpr})
	}
	if s.distinct {
		if err := s.project(pk.Name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// project adds the named column to the projection once.
func (s *selection) project(name string) error {
	col, err := resolve(s.e, s.q.Variant, name)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(s.cols, func(c column) bool { return c.expr == col.expr }) {
		s.cols = append(s.cols, col)
	}
	return nil
}

// ordered reports whether the select carries an ORDER BY.
func (s *selection) ordered() bool {
	return len(s.q.Order) > 0 || s.q.PageSize > 0 || s.search != nil
}

// CompileSelect compiles a select over one entity, joined with its
// extension properties and parent association as needed, filtered,
// ordered and paginated with the dialect's pagination strategy.
func (c *Compiler) CompileSelect(e *schema.Entity, q Query) (*Statement, error) {
	s, err := c.plan(e, q)
	if err != nil {
		return nil, err
	}
	return c.selectStatement(s)
}

// CompileCount compiles the count of the rows CompileSelect returns
// without pagination. Both share the FROM and WHERE text and parameters.
func (c *Compiler) CompileCount(e *schema.Entity, q Query) (*Statement, error) {
	q.Fields, q.Order, q.PageSize, q.Page = nil, nil, 0, 0
	s, err := c.plan(e, q)
	if err != nil {
		return nil, err
	}
	return c.countStatement(s)
}

// CompileSelectByID compiles the select of one entity, and of its variant
// properties when v is given, by primary key.
func (c *Compiler) CompileSelectByID(e *schema.Entity, v *extension.Variant, id any) (*Statement, error) {
	pk := e.PrimaryKey()
	if isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	return c.CompileSelect(e, Query{Variant: v, Where: querylanguage.FieldEQ(pk.Name, id)})
}

// CompileExists compiles a probe returning one row when the entity with
// the given primary key exists.
func (c *Compiler) CompileExists(e *schema.Entity, id any) (*Statement, error) {
	pk := e.PrimaryKey()
	if isNull(id) {
		return nil, polystore.NewConfigurationError(e.Name(), pk.Name, "primary key value is required")
	}
	b := c.builder()
	b.WriteString("SELECT 1 FROM " + e.Table() + " " + originAlias + " WHERE " + originAlias + "." + pk.StorageColumn() + "=")
	if err := b.bind(pk.Name, pk, id); err != nil {
		return nil, err
	}
	return b.Statement(), nil
}

func (c *Compiler) selectStatement(s *selection) (*Statement, error) {
	b := c.builder()
	paged := s.q.PageSize > 0
	if paged && c.caps.Pagination() == dialect.PaginateRowNumber {
		if err := c.rowNumberSelect(b, s); err != nil {
			return nil, err
		}
		return b.Statement(), nil
	}
	if err := c.projection(b, s); err != nil {
		return nil, err
	}
	if err := c.fromWhere(b, s); err != nil {
		return nil, err
	}
	if s.ordered() {
		b.WriteString(" ORDER BY ")
		keys := s.order
		if s.search != nil && !s.search.guard {
			b.WriteString(RelevanceColumn + " DESC,")
		}
		for i, k := range keys {
			if i > 0 {
				b.Byte(',')
			}
			b.WriteString(k.String())
		}
	}
	if paged {
		b.WriteString(" LIMIT ").Int(s.q.PageSize).
			WriteString(" OFFSET ").Int((s.q.Page - 1) * s.q.PageSize)
	}
	return b.Statement(), nil
}

// rowNumberSelect wraps the select in a numbered sub-select and keeps the
// ordinal range of the requested page. Under DISTINCT the ordinal is a
// dense rank, so fanned-out duplicates share one number and collapse.
func (c *Compiler) rowNumberSelect(b *Builder, s *selection) error {
	b.WriteString("SELECT ")
	for i, col := range s.cols {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(pagedAlias + "." + col.name)
	}
	if s.search != nil {
		b.WriteString("," + pagedAlias + "." + RelevanceColumn)
	}
	b.WriteString(" FROM (")
	if err := c.projection(b, s); err != nil {
		return err
	}
	if s.distinct {
		b.WriteString(",DENSE_RANK()")
	} else {
		b.WriteString(",ROW_NUMBER()")
	}
	b.WriteString(" OVER (ORDER BY ")
	if s.search != nil && !s.search.guard {
		if err := s.search.relevance(b); err != nil {
			return err
		}
		b.WriteString(" DESC,")
	}
	for i, k := range s.order {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(k.String())
	}
	b.WriteString(") AS " + RowNumColumn)
	if err := c.fromWhere(b, s); err != nil {
		return err
	}
	first := (s.q.Page-1)*s.q.PageSize + 1
	b.WriteString(") " + pagedAlias + " WHERE " + pagedAlias + "." + RowNumColumn + " BETWEEN ").
		Int(first).
		WriteString(" AND ").
		Int(first + s.q.PageSize - 1).
		WriteString(" ORDER BY " + pagedAlias + "." + RowNumColumn)
	return nil
}

func (c *Compiler) projection(b *Builder, s *selection) error {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	for i, col := range s.cols {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(col.projection())
	}
	if s.search != nil {
		b.Byte(',')
		if s.search.guard {
			b.WriteString("0")
		} else if err := s.search.relevance(b); err != nil {
			return err
		}
		b.WriteString(" AS " + RelevanceColumn)
	}
	return nil
}

func (c *Compiler) countStatement(s *selection) (*Statement, error) {
	b := c.builder()
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("COUNT(DISTINCT " + originAlias + "." + s.e.PrimaryKey().StorageColumn() + ")")
	} else {
		b.WriteString("COUNT(*)")
	}
	if err := c.fromWhere(b, s); err != nil {
		return nil, err
	}
	return b.Statement(), nil
}

// fromWhere writes the FROM clause with its joins and the WHERE clause.
func (c *Compiler) fromWhere(b *Builder, s *selection) error {
	e := s.e
	pkExpr := originAlias + "." + e.PrimaryKey().StorageColumn()
	b.WriteString(" FROM " + e.Table() + " " + originAlias)
	if s.search != nil && !s.search.guard && s.search.joined() {
		s.search.join(b, pkExpr)
	}
	if hasProperties(s.q.Variant) {
		b.WriteString(" LEFT OUTER JOIN " + e.ExtensionTable() + " " + extensionAlias +
			" ON " + extensionAlias + "." + extension.ObjectColumn + "=" + pkExpr +
			" AND " + extensionAlias + "." + extension.VariantColumn + "=")
		if err := b.bind(extension.VariantColumn, linkageDescriptor(extension.VariantColumn), s.q.Variant.ID); err != nil {
			return err
		}
	}
	if s.joinParent {
		a, _ := e.Attribute(e.Parent().Attribute)
		b.WriteString(" INNER JOIN " + e.AssociationTable(a) + " " + associationAlias +
			" ON " + associationAlias + "." + edge.LinkColumn + "=" + pkExpr)
	}
	var conds []func() error
	if s.search != nil {
		switch {
		case s.search.guard:
			conds = append(conds, func() error {
				b.WriteString("1=0")
				return nil
			})
		case !s.search.joined():
			conds = append(conds, func() error { return s.search.predicate(b) })
		}
	}
	if w := s.q.Where; w != nil {
		conds = append(conds, func() error {
			f := &filter{b: b, e: e, variant: s.q.Variant, parentJoin: s.joinParent}
			wrap := len(conds) > 1 && isLogical(w, querylanguage.OpAnd)
			if wrap {
				b.Byte('(')
			}
			if err := f.lower(w); err != nil {
				return err
			}
			if wrap {
				b.Byte(')')
			}
			return nil
		})
	}
	for i, cond := range conds {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		if err := cond(); err != nil {
			return err
		}
	}
	return nil
}
