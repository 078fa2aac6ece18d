package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
)

func TestRegistryLookup(t *testing.T) {
	reg := dialect.NewRegistry(dialect.Builtin()...)
	tests := []struct {
		in   string
		want string
	}{
		{"sqlserver", dialect.SQLServer},
		{"sqlserver-family", dialect.SQLServer},
		{"MSSQL", dialect.SQLServer},
		{"mysql", dialect.MySQL},
		{"postgresql", dialect.Postgres},
		{" pgx ", dialect.Postgres},
		{"oracle-family", dialect.Oracle},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := reg.Lookup(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := dialect.NewRegistry(dialect.Builtin()...)
	_, err := reg.Lookup("sqlite")
	require.Error(t, err)
	assert.True(t, polystore.IsUnsupportedDialectError(err))

	var de *polystore.UnsupportedDialectError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"mysql", "oracle", "postgres", "sqlserver"}, de.Available)

	_, err = reg.Canonical("")
	assert.True(t, polystore.IsUnsupportedDialectError(err))
}

func TestRegistryIsExplicit(t *testing.T) {
	// Registries do not share state.
	small := dialect.NewRegistry(dialect.Builtin()[1])
	_, err := small.Lookup(dialect.SQLServer)
	assert.Error(t, err)
	assert.Equal(t, []string{"mysql"}, small.Names())

	full := dialect.NewRegistry(dialect.Builtin()...)
	_, err = full.Lookup(dialect.SQLServer)
	assert.NoError(t, err)
	assert.Len(t, full.Capabilities(), 4)
}

func TestCapabilityTable(t *testing.T) {
	reg := dialect.NewRegistry(dialect.Builtin()...)
	tests := []struct {
		name        string
		pagination  dialect.Pagination
		fullText    dialect.FullTextFamily
		placeholder dialect.PlaceholderStyle
		catalog     bool
		indexText   bool
		distinctLOB bool
	}{
		{dialect.SQLServer, dialect.PaginateRowNumber, dialect.FullTextContainsTable, dialect.PlaceholderAt, true, false, true},
		{dialect.MySQL, dialect.PaginateLimitOffset, dialect.FullTextBooleanMode, dialect.PlaceholderQuestion, false, false, true},
		{dialect.Postgres, dialect.PaginateLimitOffset, dialect.FullTextTSQuery, dialect.PlaceholderDollar, false, true, true},
		{dialect.Oracle, dialect.PaginateRowNumber, dialect.FullTextOracleText, dialect.PlaceholderColon, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := reg.Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.pagination, c.Pagination())
			assert.Equal(t, tt.fullText, c.FullText)
			assert.Equal(t, tt.placeholder, c.Placeholder)
			assert.Equal(t, tt.catalog, c.FullTextCatalog)
			assert.Equal(t, tt.indexText, c.IndexUnboundedText)
			assert.Equal(t, tt.distinctLOB, c.DistinctLOB)
			assert.NotEmpty(t, c.DriverName)
			assert.Positive(t, c.MaxIdentifierLength)
		})
	}
}

func TestPlaceholderStyleNamed(t *testing.T) {
	assert.True(t, dialect.PlaceholderAt.Named())
	assert.True(t, dialect.PlaceholderColon.Named())
	assert.False(t, dialect.PlaceholderQuestion.Named())
	assert.False(t, dialect.PlaceholderDollar.Named())
	assert.Equal(t, "$n", dialect.PlaceholderDollar.String())
	assert.Equal(t, "row-number", dialect.PaginateRowNumber.String())
	assert.Equal(t, "boolean-mode", dialect.FullTextBooleanMode.String())
}
