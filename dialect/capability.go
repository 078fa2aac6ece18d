package dialect

// FullTextFamily identifies the full-text search syntax a dialect speaks.
type FullTextFamily int

// Full-text families.
const (
	FullTextNone FullTextFamily = iota
	// FullTextContainsTable is SQL Server's CONTAINSTABLE join with a RANK column.
	FullTextContainsTable
	// FullTextBooleanMode is MySQL's MATCH ... AGAINST (... IN BOOLEAN MODE).
	FullTextBooleanMode
	// FullTextTSQuery is PostgreSQL's to_tsvector @@ to_tsquery.
	FullTextTSQuery
	// FullTextOracleText is Oracle Text's CONTAINS(...) > 0 with SCORE(n).
	FullTextOracleText
)

func (f FullTextFamily) String() string {
	switch f {
	case FullTextContainsTable:
		return "containstable"
	case FullTextBooleanMode:
		return "boolean-mode"
	case FullTextTSQuery:
		return "tsquery"
	case FullTextOracleText:
		return "oracle-text"
	default:
		return "none"
	}
}

// PlaceholderStyle is the bind-parameter syntax of a dialect.
type PlaceholderStyle int

// Placeholder styles.
const (
	// PlaceholderAt renders named parameters as @Name.
	PlaceholderAt PlaceholderStyle = iota
	// PlaceholderQuestion renders positional parameters as ?.
	PlaceholderQuestion
	// PlaceholderDollar renders ordinal parameters as $1, $2, ...
	PlaceholderDollar
	// PlaceholderColon renders named parameters as :Name.
	PlaceholderColon
)

// Named reports whether parameters are bound by name rather than by position.
func (p PlaceholderStyle) Named() bool {
	return p == PlaceholderAt || p == PlaceholderColon
}

func (p PlaceholderStyle) String() string {
	switch p {
	case PlaceholderAt:
		return "@name"
	case PlaceholderQuestion:
		return "?"
	case PlaceholderDollar:
		return "$n"
	default:
		return ":name"
	}
}

// Pagination is the single paging strategy a dialect compiles to.
type Pagination int

// Pagination strategies.
const (
	// PaginateRowNumber wraps the select and filters on a ROW_NUMBER() ordinal.
	PaginateRowNumber Pagination = iota
	// PaginateLimitOffset appends LIMIT n OFFSET m.
	PaginateLimitOffset
)

func (p Pagination) String() string {
	if p == PaginateLimitOffset {
		return "limit/offset"
	}
	return "row-number"
}

// Capability is one row of the dialect capability table. Every
// dialect-specific decision in the compilers is driven by these fields.
type Capability struct {
	// Name is the canonical dialect name.
	Name string
	// Aliases are accepted alternative identifiers.
	Aliases []string
	// RowNumber reports ROW_NUMBER() window support.
	RowNumber bool
	// LimitOffset reports LIMIT/OFFSET support.
	LimitOffset bool
	// FullText is the full-text syntax family.
	FullText FullTextFamily
	// Placeholder is the bind-parameter syntax.
	Placeholder PlaceholderStyle
	// DriverName is the default database/sql driver name.
	DriverName string
	// MaxIdentifierLength bounds table, column and index names.
	MaxIdentifierLength int
	// FullTextCatalog reports that a default full-text catalog must exist
	// before full-text indexes can be created.
	FullTextCatalog bool
	// TextSearchConfig is the text-search configuration used by tsquery dialects.
	TextSearchConfig string
	// IndexUnboundedText reports that unbounded text columns (TEXT,
	// NVARCHAR(MAX), NCLOB) can be index keys.
	IndexUnboundedText bool
	// DistinctLOB reports that SELECT DISTINCT accepts unbounded text
	// columns. Without it, filters on a multi-valued parent association
	// compile to an EXISTS semi-join instead of a DISTINCT join.
	DistinctLOB bool
}

// Pagination returns the paging strategy of the dialect. Limit/offset wins
// when both are available.
func (c *Capability) Pagination() Pagination {
	if c.LimitOffset {
		return PaginateLimitOffset
	}
	return PaginateRowNumber
}

// Builtin returns fresh copies of the four built-in capability rows.
func Builtin() []*Capability {
	return []*Capability{
		{
			Name:                SQLServer,
			Aliases:             []string{"sqlserver-family", "mssql"},
			RowNumber:           true,
			FullText:            FullTextContainsTable,
			Placeholder:         PlaceholderAt,
			DriverName:          "sqlserver",
			MaxIdentifierLength: 128,
			FullTextCatalog:     true,
			DistinctLOB:         true,
		},
		{
			Name:                MySQL,
			Aliases:             []string{"mariadb"},
			RowNumber:           true,
			LimitOffset:         true,
			FullText:            FullTextBooleanMode,
			Placeholder:         PlaceholderQuestion,
			DriverName:          "mysql",
			MaxIdentifierLength: 64,
			DistinctLOB:         true,
		},
		{
			Name:                Postgres,
			Aliases:             []string{"postgresql", "pgx"},
			RowNumber:           true,
			LimitOffset:         true,
			FullText:            FullTextTSQuery,
			Placeholder:         PlaceholderDollar,
			DriverName:          "pgx",
			MaxIdentifierLength: 63,
			TextSearchConfig:    "english",
			IndexUnboundedText:  true,
			DistinctLOB:         true,
		},
		{
			Name:                Oracle,
			Aliases:             []string{"oracle-family"},
			RowNumber:           true,
			FullText:            FullTextOracleText,
			Placeholder:         PlaceholderColon,
			DriverName:          "oracle",
			MaxIdentifierLength: 128,
		},
	}
}
