package sql_test

import (
	"database/sql"
	"testing"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	goora "github.com/sijms/go-ora/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	sqlc "github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/schema"
	"github.com/syssam/polystore/schema/edge"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

var dialects = []string{dialect.SQLServer, dialect.MySQL, dialect.Postgres, dialect.Oracle}

func compiler(t testing.TB, name string) *sqlc.Compiler {
	t.Helper()
	c, err := sqlc.NewCompiler(dialect.NewRegistry(dialect.Builtin()...), name)
	require.NoError(t, err)
	return c
}

// notes is the minimal entity of the insert example.
func notes() *schema.Entity {
	return schema.Define("Note").
		Table("T").
		Key("Id").
		Fields(
			field.String("Id").MaxLen(32),
			field.String("Name").MaxLen(100),
			field.Time("CreatedOn").StoredAsString(),
		).
		MustBuild()
}

func documentsWithParent(p *edge.Builder) *schema.Entity {
	return schema.Define("Document").
		Table("Documents").
		Key("Id").
		Fields(
			field.String("Id").MaxLen(32),
			field.String("Title").MaxLen(200).Sortable("Title").Searchable(),
			field.Text("Body").Searchable(),
			field.Enum("Status").Values("Draft", "Review", "Published").EnumString(),
			field.Int32("Revision"),
			field.Time("CreatedOn").StoredAsString(),
			field.JSON("Tags").IgnoreIfNull(),
			field.String("Folders").Mappings(),
			field.String("Labels").Mappings(),
		).
		Extendable("").
		Searchable().
		Parent(p).
		MustBuild()
}

func documents() *schema.Entity {
	return documentsWithParent(edge.Parent("Folders").Multiple())
}

func invoice(t testing.TB) *extension.Variant {
	t.Helper()
	v, err := extension.NewPool(extension.DefaultLayout()).Register(extension.Definition{
		ID:           "V1",
		Name:         "Invoice",
		Entity:       "Document",
		SystemID:     "S1",
		RepositoryID: "R1",
		Properties: []extension.PropertyDef{
			{Name: "Customer", Type: field.TypeString, MaxLength: 64},
			{Name: "Amount", Type: field.TypeDecimal, Default: 0},
		},
	})
	require.NoError(t, err)
	return v
}

var createdOn = time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

func TestCompileInsert(t *testing.T) {
	values := sqlc.Values{"Id": "a1", "Name": "Q3 report", "CreatedOn": createdOn}
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.SQLServer, "INSERT INTO T (Id,Name,CreatedOn) VALUES (@Id,@Name,@CreatedOn)"},
		{dialect.MySQL, "INSERT INTO T (Id,Name,CreatedOn) VALUES (?,?,?)"},
		{dialect.Postgres, "INSERT INTO T (Id,Name,CreatedOn) VALUES ($1,$2,$3)"},
		{dialect.Oracle, "INSERT INTO T (Id,Name,CreatedOn) VALUES (:Id,:Name,:CreatedOn)"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			st, err := compiler(t, tt.dialect).CompileInsert(notes(), values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Text)
			assert.Equal(t, tt.dialect, st.Dialect)
			require.Len(t, st.Params, 3)
			assert.Equal(t, sqlc.Param{Name: "Id", Value: "a1", Kind: sqlc.KindFixedAnsiString, Size: 32}, st.Params[0])
			assert.Equal(t, sqlc.Param{Name: "Name", Value: "Q3 report", Kind: sqlc.KindVariableString, Size: 100}, st.Params[1])
			assert.Equal(t, sqlc.Param{Name: "CreatedOn", Value: "2024-01-02T03:04:05.006", Kind: sqlc.KindFixedAnsiString, Size: 23}, st.Params[2])
		})
	}
}

func TestCompileInsertIgnoredIfNull(t *testing.T) {
	c := compiler(t, dialect.MySQL)
	values := sqlc.Values{
		"Id":        "D1",
		"Title":     "Hello",
		"Body":      "long text",
		"Status":    "Review",
		"Revision":  3,
		"CreatedOn": createdOn,
		"Folders":   []string{"F1"},
	}
	st, err := c.CompileInsert(documents(), values)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Documents (Id,Title,Body,Status,Revision,CreatedOn) VALUES (?,?,?,?,?,?)", st.Text)
	assert.Equal(t, []any{"D1", "Hello", "long text", "Review", int32(3), "2024-01-02T03:04:05.006"}, st.Values())

	values["Tags"] = []string{"a", "b"}
	st, err = c.CompileInsert(documents(), values)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Documents (Id,Title,Body,Status,Revision,CreatedOn,Tags) VALUES (?,?,?,?,?,?,?)", st.Text)
	assert.Equal(t, `["a","b"]`, st.Params[6].Value)
	assert.Equal(t, sqlc.KindVariableString, st.Params[6].Kind)
}

func TestCompileInsertErrors(t *testing.T) {
	c := compiler(t, dialect.SQLServer)
	t.Run("UnknownKey", func(t *testing.T) {
		_, err := c.CompileInsert(notes(), sqlc.Values{"Id": "a1", "Nope": 1})
		require.Error(t, err)
		assert.True(t, polystore.IsConfigurationError(err))
	})
	t.Run("InvalidDate", func(t *testing.T) {
		_, err := c.CompileInsert(notes(), sqlc.Values{"Id": "a1", "CreatedOn": "yesterday"})
		require.Error(t, err)
		assert.True(t, polystore.IsConfigurationError(err))
	})
	t.Run("InvalidEnum", func(t *testing.T) {
		_, err := c.CompileInsert(documents(), sqlc.Values{"Id": "D1", "Status": "Archived"})
		require.Error(t, err)
		assert.True(t, polystore.IsConfigurationError(err))
	})
}

func TestStatementArgs(t *testing.T) {
	values := sqlc.Values{"Id": "D1", "Title": "Hello", "Body": "long text", "Status": "Draft", "Revision": 1, "CreatedOn": createdOn}
	t.Run("SQLServer", func(t *testing.T) {
		st, err := compiler(t, dialect.SQLServer).CompileInsert(documents(), values)
		require.NoError(t, err)
		require.True(t, st.Named)
		args := st.Args()
		require.Len(t, args, 6)
		assert.Equal(t, sql.Named("Id", mssql.VarChar("D1")), args[0])
		assert.Equal(t, sql.Named("Title", "Hello"), args[1])
		assert.Equal(t, sql.Named("Body", mssql.NVarCharMax("long text")), args[2])
		assert.Equal(t, sql.Named("Revision", int32(1)), args[4])
		assert.Equal(t, sql.Named("CreatedOn", mssql.VarChar("2024-01-02T03:04:05.006")), args[5])
		assert.Equal(t, sql.Named("Id", "D1"), st.NamedValues()[0])
	})
	t.Run("Oracle", func(t *testing.T) {
		st, err := compiler(t, dialect.Oracle).CompileInsert(documents(), values)
		require.NoError(t, err)
		args := st.Args()
		assert.Equal(t, sql.Named("Id", "D1"), args[0])
		assert.Equal(t, sql.Named("Body", goora.Clob{String: "long text", Valid: true}), args[2])

		b := sqlc.NewBuilder(compiler(t, dialect.Oracle).Dialect())
		b.WriteString("UPDATE T SET Flag=").Arg("Flag", true, sqlc.KindBoolean, 0)
		assert.Equal(t, "UPDATE T SET Flag=:Flag", b.Statement().Text)
		assert.Equal(t, []any{sql.Named("Flag", 1)}, b.Statement().Args())
	})
	t.Run("Positional", func(t *testing.T) {
		for _, name := range []string{dialect.MySQL, dialect.Postgres} {
			st, err := compiler(t, name).CompileInsert(documents(), values)
			require.NoError(t, err)
			assert.False(t, st.Named)
			assert.Equal(t, st.Values(), st.Args())
		}
	})
}

func TestBuilderArg(t *testing.T) {
	c := compiler(t, dialect.SQLServer)
	b := sqlc.NewBuilder(c.Dialect())
	b.WriteString("x=").Arg("Name", 1, sqlc.KindInt32, 0).
		WriteString(" OR x=").Arg("Name", 2, sqlc.KindInt32, 0).
		WriteString(" OR y=").Arg("a-b", 3, sqlc.KindInt32, 0).
		WriteString(" OR z=").Arg("1st", 4, sqlc.KindInt32, 0)
	st := b.Statement()
	assert.Equal(t, "x=@Name OR x=@Name1 OR y=@a_b OR z=@p1st", st.Text)

	pg := sqlc.NewBuilder(compiler(t, dialect.Postgres).Dialect())
	pg.Arg("a", 1, sqlc.KindInt32, 0).Byte(',').Arg("a", 2, sqlc.KindInt32, 0).Byte(',').Join("|", "x", "y")
	assert.Equal(t, "$1,$2,x|y", pg.Statement().Text)
	assert.Equal(t, "a1", pg.Statement().Params[1].Name)
}

func TestCompileUpdate(t *testing.T) {
	c := compiler(t, dialect.SQLServer)
	e := notes()
	t.Run("Changed", func(t *testing.T) {
		st, err := c.CompileUpdate(e, []string{"Name"}, sqlc.Values{"Id": "a1", "Name": "renamed"})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE T SET Name=@Name WHERE Id=@Id", st.Text)
		assert.Equal(t, []any{"renamed", "a1"}, st.Values())
	})
	t.Run("NothingToUpdate", func(t *testing.T) {
		st, err := c.CompileUpdate(e, []string{"Id"}, sqlc.Values{"Id": "a1"})
		require.NoError(t, err)
		assert.Nil(t, st)
		st, err = c.CompileUpdate(documents(), []string{"Folders", "Labels"}, sqlc.Values{"Id": "D1"})
		require.NoError(t, err)
		assert.Nil(t, st)
	})
	t.Run("IgnoredIfNull", func(t *testing.T) {
		st, err := c.CompileUpdate(documents(), []string{"Title", "Tags"}, sqlc.Values{"Id": "D1", "Title": "t"})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE Documents SET Title=@Title WHERE Id=@Id", st.Text)
	})
	t.Run("UnknownAttribute", func(t *testing.T) {
		_, err := c.CompileUpdate(e, []string{"Nope"}, sqlc.Values{"Id": "a1"})
		assert.True(t, polystore.IsConfigurationError(err))
	})
	t.Run("MissingKey", func(t *testing.T) {
		_, err := c.CompileUpdate(e, []string{"Name"}, sqlc.Values{"Name": "x"})
		assert.True(t, polystore.IsConfigurationError(err))
	})
	t.Run("Replace", func(t *testing.T) {
		st, err := c.CompileReplace(e, sqlc.Values{"Id": "a1", "Name": "n", "CreatedOn": createdOn})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE T SET Name=@Name,CreatedOn=@CreatedOn WHERE Id=@Id", st.Text)
	})
}

func TestCompileDelete(t *testing.T) {
	for _, tt := range []struct {
		dialect string
		want    string
	}{
		{dialect.SQLServer, "DELETE FROM T WHERE Id=@Id"},
		{dialect.MySQL, "DELETE FROM T WHERE Id=?"},
		{dialect.Postgres, "DELETE FROM T WHERE Id=$1"},
		{dialect.Oracle, "DELETE FROM T WHERE Id=:Id"},
	} {
		t.Run(tt.dialect, func(t *testing.T) {
			st, err := compiler(t, tt.dialect).CompileDelete(notes(), "a1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Text)
			assert.Equal(t, []any{"a1"}, st.Values())
		})
	}
	_, err := compiler(t, dialect.MySQL).CompileDelete(notes(), nil)
	assert.True(t, polystore.IsConfigurationError(err))
}

func TestCompileExtension(t *testing.T) {
	c := compiler(t, dialect.SQLServer)
	e, v := documents(), invoice(t)
	t.Run("Insert", func(t *testing.T) {
		st, err := c.CompileInsertExtension(e, v, sqlc.Values{"Id": "D1", "Title": "ignored", "Customer": "ACME"})
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO ExtendedProperties (ObjectId,SystemId,RepositoryId,VariantId,SmallText1,Decimal1) "+
			"VALUES (@ObjectId,@SystemId,@RepositoryId,@VariantId,@Customer,@Amount)", st.Text)
		assert.Equal(t, []any{"D1", "S1", "R1", "V1", "ACME", 0}, st.Values())
		for _, p := range st.Params[:4] {
			assert.Equal(t, sqlc.KindFixedAnsiString, p.Kind, p.Name)
			assert.Equal(t, 32, p.Size, p.Name)
		}
	})
	t.Run("Update", func(t *testing.T) {
		st, err := c.CompileUpdateExtension(e, v, []string{"Customer", "Title"}, sqlc.Values{"Id": "D1", "Customer": "Globex"})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE ExtendedProperties SET SmallText1=@Customer WHERE ObjectId=@ObjectId AND VariantId=@VariantId", st.Text)
		assert.Equal(t, []any{"Globex", "D1", "V1"}, st.Values())

		st, err = c.CompileUpdateExtension(e, v, []string{"Title"}, sqlc.Values{"Id": "D1"})
		require.NoError(t, err)
		assert.Nil(t, st)
	})
	t.Run("Delete", func(t *testing.T) {
		st, err := c.CompileDeleteExtension(e, "D1")
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM ExtendedProperties WHERE ObjectId=@ObjectId", st.Text)
	})
	t.Run("NoProperties", func(t *testing.T) {
		empty, err := extension.NewPool(extension.DefaultLayout()).Register(extension.Definition{
			ID: "V2", Name: "Plain", Entity: "Document", SystemID: "S1", RepositoryID: "R1",
		})
		require.NoError(t, err)
		st, err := c.CompileInsertExtension(e, empty, sqlc.Values{"Id": "D1"})
		require.NoError(t, err)
		assert.Nil(t, st)
	})
	t.Run("Errors", func(t *testing.T) {
		_, err := c.CompileInsertExtension(notes(), v, sqlc.Values{"Id": "a1"})
		assert.True(t, polystore.IsConfigurationError(err), "entity is not extendable")
		_, err = c.CompileInsertExtension(e, nil, sqlc.Values{"Id": "D1"})
		assert.True(t, polystore.IsConfigurationError(err), "variant is required")
		_, err = c.CompileInsertExtension(e, v, sqlc.Values{"Customer": "ACME"})
		assert.True(t, polystore.IsConfigurationError(err), "primary key is required")
		_, err = c.CompileUpdateExtension(e, v, []string{"Weight"}, sqlc.Values{"Id": "D1"})
		assert.True(t, polystore.IsConfigurationError(err), "unknown property")
	})
}

func TestCompileAssociation(t *testing.T) {
	c := compiler(t, dialect.SQLServer)
	e := documents()
	t.Run("Sync", func(t *testing.T) {
		stmts, err := c.CompileAssociationSync(e, "Labels", "D1", []any{"L1", "L2"})
		require.NoError(t, err)
		require.Len(t, stmts, 3)
		assert.Equal(t, "DELETE FROM Documents_Labels WHERE LinkId=@LinkId", stmts[0].Text)
		for i, target := range []string{"L1", "L2"} {
			st := stmts[i+1]
			assert.Equal(t, "INSERT INTO Documents_Labels (LinkId,MappedId) VALUES (@LinkId,@MappedId)", st.Text)
			assert.Equal(t, []any{"D1", target}, st.Values())
		}
	})
	t.Run("SyncEmpty", func(t *testing.T) {
		stmts, err := c.CompileAssociationSync(e, "Labels", "D1", nil)
		require.NoError(t, err)
		require.Len(t, stmts, 1)
	})
	t.Run("Read", func(t *testing.T) {
		st, err := compiler(t, dialect.Postgres).CompileAssociationRead(e, "Folders", "D1")
		require.NoError(t, err)
		assert.Equal(t, "SELECT MappedId FROM Documents_Folders WHERE LinkId=$1 ORDER BY MappedId", st.Text)
	})
	t.Run("NotMappings", func(t *testing.T) {
		_, err := c.CompileAssociationSync(e, "Title", "D1", nil)
		assert.True(t, polystore.IsConfigurationError(err))
		_, err = c.CompileAssociationRead(e, "Nope", "D1")
		assert.True(t, polystore.IsConfigurationError(err))
		_, err = c.CompileAssociationSync(e, "Labels", "D1", []any{nil})
		assert.True(t, polystore.IsConfigurationError(err))
	})
}

func TestNewCompilerUnknownDialect(t *testing.T) {
	_, err := sqlc.NewCompiler(dialect.NewRegistry(dialect.Builtin()...), "db2")
	require.Error(t, err)
	assert.True(t, polystore.IsUnsupportedDialectError(err))

	c, err := sqlc.NewCompiler(dialect.NewRegistry(dialect.Builtin()...), "mssql")
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLServer, c.Dialect().Name)
}
