package schema

import (
	"errors"
	"strings"
	"testing"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/field"
)

func caps(t *testing.T, name string) *dialect.Capability {
	t.Helper()
	c, err := dialect.NewRegistry(dialect.Builtin()...).Lookup(name)
	require.NoError(t, err)
	return c
}

func varchar(name string, size int, null bool) *atlas.Column {
	return &atlas.Column{
		Name: name,
		Type: &atlas.ColumnType{Type: &atlas.StringType{T: "VARCHAR", Size: size}, Raw: "VARCHAR", Null: null},
	}
}

func TestValidateTable(t *testing.T) {
	tbl := atlas.NewTable("T").AddColumns(varchar("A", 10, false), varchar("A", 10, false), varchar("Body", 0, true))
	tbl.AddIndexes(
		atlas.NewIndex("IX_T_A").AddColumns(tbl.Columns[0]),
		atlas.NewIndex("IX_T_A").AddParts(&atlas.IndexPart{C: &atlas.Column{Name: "Missing"}}),
		atlas.NewIndex("IX_T_Body").AddColumns(tbl.Columns[2]),
	)
	issues := ValidateTable(caps(t, dialect.MySQL), tbl)
	require.True(t, issues.HasErrors())
	assert.Equal(t, []string{
		"T.A: column declared twice",
		"T: index IX_T_A declared twice",
		"T: index IX_T_A covers unknown column Missing",
		"T.Body: index IX_T_Body covers unbounded text, which mysql cannot index; set a max length",
	}, messages(issues.Errors()))
	assert.Equal(t, []string{"T: no primary key"}, messages(issues.Warnings()))
	assert.False(t, issues.HasBreakingChanges())
	assert.Equal(t, strings.Join([]string{
		"warning: T: no primary key",
		"error: T.A: column declared twice",
		"error: T: index IX_T_A declared twice",
		"error: T: index IX_T_A covers unknown column Missing",
		"error: T.Body: index IX_T_Body covers unbounded text, which mysql cannot index; set a max length",
	}, "\n"), issues.String())

	err := issues.Err()
	require.Error(t, err)
	assert.True(t, polystore.IsConfigurationError(err))
	var issue *Issue
	require.True(t, errors.As(err, &issue))
	assert.Equal(t, "A", issue.Column)
}

func TestValidateTableUnboundedIndexKey(t *testing.T) {
	tbl := atlas.NewTable("T").AddColumns(varchar("Id", 32, false), varchar("Label", 0, false))
	tbl.SetPrimaryKey(atlas.NewPrimaryKey(tbl.Columns[0]).SetName("PK_T"))
	tbl.AddIndexes(atlas.NewIndex("IX_T_Label").AddColumns(tbl.Columns[1]))

	tests := []struct {
		dialect string
		want    Severity
	}{
		{dialect.SQLServer, Error},
		{dialect.MySQL, Error},
		{dialect.Oracle, Error},
		{dialect.Postgres, Warning},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			issues := ValidateTable(caps(t, tt.dialect), tbl)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.want, issues[0].Severity)
			assert.Equal(t, "Label", issues[0].Column)
		})
	}
}

func TestValidateTableIdentifierLimit(t *testing.T) {
	long := strings.Repeat("x", 64)
	tbl := atlas.NewTable("T").AddColumns(varchar(long, 10, false))
	tbl.SetPrimaryKey(atlas.NewPrimaryKey(tbl.Columns[0]).SetName("PK_T"))
	assert.Empty(t, ValidateTable(caps(t, dialect.MySQL), tbl))

	issues := ValidateTable(caps(t, dialect.Postgres), tbl)
	require.Len(t, issues, 1)
	assert.Equal(t, Error, issues[0].Severity)
	assert.Equal(t, "T."+long+": column name "+long+" exceeds the postgres limit of 63 characters", issues[0].Error())
}

func TestValidateTables(t *testing.T) {
	g := generator(t, dialect.MySQL, WithLayout(smallLayout()))
	ext, err := g.ExtensionTable(schema.DefaultExtensionTable)
	require.NoError(t, err)
	again, err := g.ExtensionTable(schema.DefaultExtensionTable)
	require.NoError(t, err)
	issues := ValidateTables(g.Dialect(), []*atlas.Table{ext, again})
	assert.False(t, issues.HasErrors(), issues.String())
	assert.Equal(t, "no issues", issues.String())

	clash := atlas.NewTable(schema.DefaultExtensionTable).AddColumns(varchar("ObjectId", 32, false))
	issues = ValidateTables(g.Dialect(), []*atlas.Table{ext, clash})
	require.True(t, issues.HasErrors())
	assert.Equal(t, []string{"ExtendedProperties: table planned twice with different columns"}, messages(issues.Errors()))
	assert.NoError(t, ValidateTables(g.Dialect(), []*atlas.Table{ext}).Err())
}

func TestValidateDiff(t *testing.T) {
	g := generator(t, dialect.MySQL)
	before, err := g.OriginTable(schema.Define("Note").Table("Notes").Key("Id").Fields(
		field.String("Id").MaxLen(32),
		field.String("Name").MaxLen(100).Nillable().Sortable("Name"),
		field.String("Color").MaxLen(10),
	).MustBuild())
	require.NoError(t, err)
	after, err := g.OriginTable(schema.Define("Note").Table("Notes").Key("Id").Fields(
		field.String("Id").MaxLen(32),
		field.String("Name").MaxLen(50).Unique("Name"),
		field.Int32("Rank"),
	).MustBuild())
	require.NoError(t, err)

	issues := ValidateDiff([]*atlas.Table{before}, []*atlas.Table{after})
	assert.True(t, issues.HasBreakingChanges())
	assert.Equal(t, []string{
		"Notes.Color: column dropped",
		"Notes.Name: becomes NOT NULL, existing NULL values reject it",
		"Notes: index IX_Notes_Name dropped",
	}, messages(issues.Errors()))
	assert.Equal(t, []string{
		"Notes.Name: type changes from VARCHAR(100) to VARCHAR(50)",
		"Notes.Name: shrinks from 100 to 50 characters, longer values are truncated",
		"Notes.Rank: new NOT NULL column has no default, existing rows reject it",
		"Notes: new unique index UX_Notes_Name, duplicate values reject it",
	}, messages(issues.Warnings()))
	assert.Contains(t, issues.String(), "error: Notes.Color: column dropped (breaking)")

	issues = ValidateDiff([]*atlas.Table{before}, []*atlas.Table{after}, AllowDropColumn(), AllowDropIndex(), AllowNullToNotNull())
	assert.False(t, issues.HasErrors())
	assert.True(t, issues.HasBreakingChanges())

	issues = ValidateDiff([]*atlas.Table{before}, nil)
	assert.Equal(t, []string{"Notes: table dropped"}, messages(issues.Errors()))
	issues = ValidateDiff([]*atlas.Table{before}, nil, AllowDropTable())
	assert.False(t, issues.HasErrors())
	assert.Len(t, issues.Warnings(), 1)

	assert.Empty(t, ValidateDiff([]*atlas.Table{before}, []*atlas.Table{before}))
}

func TestValidateDiffPrimaryKey(t *testing.T) {
	g := generator(t, dialect.MySQL)
	before, err := g.OriginTable(schema.Define("Note").Table("Notes").Key("Id").Fields(
		field.String("Id").MaxLen(32),
		field.String("Code").MaxLen(10),
	).MustBuild())
	require.NoError(t, err)
	after, err := g.OriginTable(schema.Define("Note").Table("Notes").Key("Code").Fields(
		field.String("Id").MaxLen(32),
		field.String("Code").MaxLen(10),
	).MustBuild())
	require.NoError(t, err)

	issues := ValidateDiff([]*atlas.Table{before}, []*atlas.Table{after}, AllowDropColumn(), AllowDropIndex())
	assert.Equal(t, []string{"Notes: primary key changes from (Id) to (Code)"}, messages(issues.Errors()))
	assert.True(t, issues.HasBreakingChanges())
}

func messages(issues Issues) []string {
	var msgs []string
	for _, i := range issues {
		msgs = append(msgs, i.Error())
	}
	return msgs
}
