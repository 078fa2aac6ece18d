package sql

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/schema"
)

// SearchParam is the name of the bound full-text query parameter.
const SearchParam = "SearchQuery"

// DefaultTextSearchConfig is used by tsquery dialects without a
// configured text-search configuration.
const DefaultTextSearchConfig = "simple"

// SearchTerms is a parsed full-text query. Terms are case-folded and hold
// only letters, digits and underscores; phrases keep single spaces between
// their words.
type SearchTerms struct {
	And []string // must match.
	Or  []string // alternatives.
	Not []string // must not match.
}

// Empty reports whether the terms can match nothing: a query without AND
// and OR terms selects no rows, even when it carries NOT terms.
func (t SearchTerms) Empty() bool {
	return len(t.And) == 0 && len(t.Or) == 0
}

// ParseSearch splits search text into terms. A leading + marks a required
// term, a leading - an excluded one, and double quotes group a phrase.
func ParseSearch(text string) SearchTerms {
	var (
		t    SearchTerms
		fold = cases.Fold()
		rs   = []rune(text)
	)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}
		sign := rune(0)
		if rs[i] == '+' || rs[i] == '-' {
			sign = rs[i]
			i++
		}
		var raw string
		if i < len(rs) && rs[i] == '"' {
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				j++
			}
			raw = string(rs[i+1 : j])
			i = j + 1
		} else {
			j := i
			for j < len(rs) && !unicode.IsSpace(rs[j]) {
				j++
			}
			raw = string(rs[i:j])
			i = j
		}
		term := sanitizeTerm(fold.String(raw))
		if term == "" {
			continue
		}
		switch sign {
		case '+':
			t.And = append(t.And, term)
		case '-':
			t.Not = append(t.Not, term)
		default:
			t.Or = append(t.Or, term)
		}
	}
	return t
}

// sanitizeTerm keeps the words of s, dropping every rune that is not a
// letter, digit or underscore.
func sanitizeTerm(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	return strings.Join(words, " ")
}

// FormatSearch renders terms in the query syntax of a full-text family.
// It returns "" for empty terms.
func FormatSearch(family dialect.FullTextFamily, t SearchTerms) string {
	if t.Empty() {
		return ""
	}
	if family == dialect.FullTextBooleanMode {
		var parts []string
		for _, s := range t.And {
			parts = append(parts, "+"+booleanModeTerm(s))
		}
		for _, s := range t.Or {
			parts = append(parts, booleanModeTerm(s))
		}
		for _, s := range t.Not {
			parts = append(parts, "-"+booleanModeTerm(s))
		}
		return strings.Join(parts, " ")
	}
	var term func(string) string
	and, or, not := " AND ", " OR ", " AND NOT "
	switch family {
	case dialect.FullTextTSQuery:
		term = tsqueryTerm
		and, or, not = " & ", " | ", " & !"
	case dialect.FullTextOracleText:
		term = oracleTerm
		not = " NOT "
	default:
		term = containsTerm
	}
	var parts []string
	for _, s := range t.And {
		parts = append(parts, term(s))
	}
	if len(t.Or) > 0 {
		alts := make([]string, len(t.Or))
		for i, s := range t.Or {
			alts[i] = term(s)
		}
		group := strings.Join(alts, or)
		if len(alts) > 1 && (len(t.And) > 0 || len(t.Not) > 0) {
			group = "(" + group + ")"
		}
		parts = append(parts, group)
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(parts, and))
	for _, s := range t.Not {
		sb.WriteString(not + term(s))
	}
	return sb.String()
}

func isPhrase(s string) bool {
	return strings.Contains(s, " ")
}

func booleanModeTerm(s string) string {
	if isPhrase(s) {
		return `"` + s + `"`
	}
	return s
}

func containsTerm(s string) string {
	if isPhrase(s) {
		return `"` + s + `"`
	}
	return `"` + s + `*"`
}

func tsqueryTerm(s string) string {
	if isPhrase(s) {
		return "(" + strings.Join(strings.Fields(s), " <-> ") + ")"
	}
	return s + ":*"
}

func oracleTerm(s string) string {
	if isPhrase(s) {
		return "{" + s + "}"
	}
	return "{" + s + "}%"
}

// TSVector returns the text-search vector expression over the given
// columns. The DDL generator indexes the same expression.
func TSVector(config string, columns ...string) string {
	if config == "" {
		config = DefaultTextSearchConfig
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = "coalesce(" + c + ",'')"
	}
	return "to_tsvector('" + config + "'," + strings.Join(parts, "||' '||") + ")"
}

// fullText is the resolved full-text part of a search.
type fullText struct {
	caps    *dialect.Capability
	table   string
	columns []string // physical columns.
	query   string
	guard   bool // the query matches nothing.
}

// joined reports whether the dialect searches through a joined rowset
// rather than a WHERE predicate.
func (f *fullText) joined() bool {
	return f.caps.FullText == dialect.FullTextContainsTable
}

func (f *fullText) qualified() []string {
	cols := make([]string, len(f.columns))
	for i, c := range f.columns {
		cols[i] = originAlias + "." + c
	}
	return cols
}

func (f *fullText) arg(b *Builder) {
	b.Arg(SearchParam, f.query, KindVariableString, 0)
}

func (f *fullText) join(b *Builder, pkExpr string) {
	b.WriteString(" INNER JOIN CONTAINSTABLE(" + f.table + ",(" + strings.Join(f.columns, ",") + "),")
	f.arg(b)
	b.WriteString(") " + fullTextAlias + " ON " + fullTextAlias + ".[KEY]=" + pkExpr)
}

func (f *fullText) match(b *Builder) {
	b.WriteString("MATCH(" + strings.Join(f.qualified(), ",") + ") AGAINST(")
	f.arg(b)
	b.WriteString(" IN BOOLEAN MODE)")
}

func (f *fullText) tsquery(b *Builder) {
	b.WriteString("to_tsquery('" + f.config() + "',")
	f.arg(b)
	b.Byte(')')
}

func (f *fullText) config() string {
	if f.caps.TextSearchConfig != "" {
		return f.caps.TextSearchConfig
	}
	return DefaultTextSearchConfig
}

// predicate writes the WHERE condition selecting matching rows.
func (f *fullText) predicate(b *Builder) error {
	switch f.caps.FullText {
	case dialect.FullTextBooleanMode:
		f.match(b)
	case dialect.FullTextTSQuery:
		b.WriteString(TSVector(f.config(), f.qualified()...) + "@@")
		f.tsquery(b)
	case dialect.FullTextOracleText:
		if len(f.columns) > 1 {
			b.Byte('(')
		}
		for i, c := range f.qualified() {
			if i > 0 {
				b.WriteString(" OR ")
			}
			b.WriteString("CONTAINS(" + c + ",")
			f.arg(b)
			b.WriteString("," + strconv.Itoa(i+1) + ")>0")
		}
		if len(f.columns) > 1 {
			b.Byte(')')
		}
	default:
		return &polystore.UnsupportedDialectError{Name: f.caps.Name}
	}
	return nil
}

// relevance writes the relevance score expression.
func (f *fullText) relevance(b *Builder) error {
	switch f.caps.FullText {
	case dialect.FullTextContainsTable:
		b.WriteString(fullTextAlias + ".[RANK]")
	case dialect.FullTextBooleanMode:
		f.match(b)
	case dialect.FullTextTSQuery:
		b.WriteString("ts_rank(" + TSVector(f.config(), f.qualified()...) + ",")
		f.tsquery(b)
		b.Byte(')')
	case dialect.FullTextOracleText:
		scores := make([]string, len(f.columns))
		for i := range f.columns {
			scores[i] = "SCORE(" + strconv.Itoa(i+1) + ")"
		}
		if len(scores) == 1 {
			b.WriteString(scores[0])
		} else {
			b.WriteString("(" + strings.Join(scores, "+") + ")")
		}
	default:
		return &polystore.UnsupportedDialectError{Name: f.caps.Name}
	}
	return nil
}

// searchPlan resolves q into a selection with a full-text part.
func (c *Compiler) searchPlan(e *schema.Entity, q SearchQuery) (*selection, error) {
	if !e.Searchable() {
		return nil, polystore.NewConfigurationError(e.Name(), "", "entity is not searchable")
	}
	if c.caps.FullText == dialect.FullTextNone {
		return nil, polystore.NewConfigurationError(e.Name(), "", "dialect %s has no full-text search", c.caps.Name)
	}
	s, err := c.plan(e, q.Query)
	if err != nil {
		return nil, err
	}
	ft := &fullText{caps: c.caps, table: e.Table()}
	if len(q.Columns) == 0 {
		for _, a := range e.SearchableAttributes() {
			ft.columns = append(ft.columns, a.StorageColumn())
		}
	}
	for _, name := range q.Columns {
		a, ok := e.Attribute(name)
		if !ok || !a.Searchable || !a.Persisted() {
			return nil, polystore.NewConfigurationError(e.Name(), name, "not a searchable attribute")
		}
		ft.columns = append(ft.columns, a.StorageColumn())
	}
	terms := ParseSearch(q.Text)
	ft.query = FormatSearch(c.caps.FullText, terms)
	ft.guard = terms.Empty()
	s.search = ft
	return s, nil
}

// CompileSearch compiles a full-text search: a select restricted to rows
// matching the search text, projecting a Relevance score and ordered by it
// before the caller's sort. Text without AND or OR terms matches no rows.
func (c *Compiler) CompileSearch(e *schema.Entity, q SearchQuery) (*Statement, error) {
	s, err := c.searchPlan(e, q)
	if err != nil {
		return nil, err
	}
	return c.selectStatement(s)
}

// CompileSearchCount compiles the count of the rows CompileSearch returns
// without pagination.
func (c *Compiler) CompileSearchCount(e *schema.Entity, q SearchQuery) (*Statement, error) {
	q.Fields, q.Order, q.PageSize, q.Page = nil, nil, 0, 0
	s, err := c.searchPlan(e, q)
	if err != nil {
		return nil, err
	}
	return c.countStatement(s)
}
