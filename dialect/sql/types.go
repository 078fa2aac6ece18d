package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/schema/field"
)

// DateLayout is the text layout of dates stored as strings. Values are
// formatted in UTC.
const DateLayout = "2006-01-02T15:04:05.000"

// DefaultEnumLength sizes enum columns persisted by name when the
// attribute declares no max length.
const DefaultEnumLength = 64

// sizePlaceholder marks where a length is substituted in a column type.
const sizePlaceholder = "{size}"

// columnType is one catalog entry. Sized holds the length-templated form
// and Unsized the form used when no length applies.
type columnType struct {
	Sized   string
	Unsized string
}

func (c columnType) render(size int) string {
	switch {
	case c.Sized != "" && size > 0:
		return strings.ReplaceAll(c.Sized, sizePlaceholder, strconv.Itoa(size))
	case c.Unsized != "":
		return c.Unsized
	default:
		return strings.ReplaceAll(c.Sized, sizePlaceholder, strconv.Itoa(field.DefaultIdentifierLength))
	}
}

// catalog holds the column types of one dialect.
type catalog struct {
	fixed columnType // fixed-width text.
	clob  columnType // unbounded text.
	types map[field.Type]columnType
}

// neutral is consulted when a dialect catalog has no entry for a type.
var neutral = map[field.Type]columnType{
	field.TypeString:  {Sized: "VARCHAR({size})", Unsized: "VARCHAR(4000)"},
	field.TypeInt32:   {Unsized: "INTEGER"},
	field.TypeInt64:   {Unsized: "BIGINT"},
	field.TypeFloat64: {Unsized: "FLOAT"},
	field.TypeDecimal: {Unsized: "DECIMAL(19,5)"},
	field.TypeBool:    {Unsized: "BOOLEAN"},
	field.TypeTime:    {Unsized: "TIMESTAMP"},
	field.TypeUUID:    {Unsized: "CHAR(36)"},
}

var catalogs = map[string]catalog{
	dialect.SQLServer: {
		fixed: columnType{Sized: "CHAR({size})"},
		clob:  columnType{Unsized: "NVARCHAR(MAX)"},
		types: map[field.Type]columnType{
			field.TypeString:  {Sized: "NVARCHAR({size})", Unsized: "NVARCHAR(MAX)"},
			field.TypeInt32:   {Unsized: "INT"},
			field.TypeInt64:   {Unsized: "BIGINT"},
			field.TypeFloat64: {Unsized: "FLOAT"},
			field.TypeDecimal: {Unsized: "DECIMAL(19,5)"},
			field.TypeBool:    {Unsized: "BIT"},
			field.TypeTime:    {Unsized: "DATETIME2"},
			field.TypeUUID:    {Unsized: "UNIQUEIDENTIFIER"},
			field.TypeBytes:   {Sized: "VARBINARY({size})", Unsized: "VARBINARY(MAX)"},
		},
	},
	dialect.MySQL: {
		fixed: columnType{Sized: "CHAR({size})"},
		clob:  columnType{Unsized: "LONGTEXT"},
		types: map[field.Type]columnType{
			field.TypeString:  {Sized: "VARCHAR({size})", Unsized: "TEXT"},
			field.TypeInt32:   {Unsized: "INT"},
			field.TypeInt64:   {Unsized: "BIGINT"},
			field.TypeFloat64: {Unsized: "DOUBLE"},
			field.TypeDecimal: {Unsized: "DECIMAL(19,5)"},
			field.TypeBool:    {Unsized: "TINYINT(1)"},
			field.TypeTime:    {Unsized: "DATETIME(3)"},
			field.TypeUUID:    {Unsized: "CHAR(36)"},
			field.TypeBytes:   {Sized: "VARBINARY({size})", Unsized: "LONGBLOB"},
		},
	},
	dialect.Postgres: {
		fixed: columnType{Sized: "CHAR({size})"},
		clob:  columnType{Unsized: "TEXT"},
		types: map[field.Type]columnType{
			field.TypeString:  {Sized: "VARCHAR({size})", Unsized: "TEXT"},
			field.TypeInt32:   {Unsized: "INTEGER"},
			field.TypeInt64:   {Unsized: "BIGINT"},
			field.TypeFloat64: {Unsized: "DOUBLE PRECISION"},
			field.TypeDecimal: {Unsized: "NUMERIC(19,5)"},
			field.TypeBool:    {Unsized: "BOOLEAN"},
			field.TypeTime:    {Unsized: "TIMESTAMP(3)"},
			field.TypeUUID:    {Unsized: "UUID"},
			field.TypeBytes:   {Unsized: "BYTEA"},
		},
	},
	dialect.Oracle: {
		fixed: columnType{Sized: "CHAR({size})"},
		clob:  columnType{Unsized: "NCLOB"},
		types: map[field.Type]columnType{
			field.TypeString:  {Sized: "NVARCHAR2({size})", Unsized: "NVARCHAR2(2000)"},
			field.TypeInt32:   {Unsized: "NUMBER(10)"},
			field.TypeInt64:   {Unsized: "NUMBER(19)"},
			field.TypeDecimal: {Unsized: "NUMBER(19,5)"},
			field.TypeBool:    {Unsized: "NUMBER(1)"},
			field.TypeTime:    {Unsized: "TIMESTAMP(3)"},
			field.TypeUUID:    {Unsized: "CHAR(36)"},
			field.TypeBytes:   {Sized: "RAW({size})", Unsized: "BLOB"},
		},
	},
}

// staticKinds maps domain types to parameter kinds when no flag applies.
var staticKinds = map[field.Type]ParamKind{
	field.TypeString:  KindVariableString,
	field.TypeInt32:   KindInt32,
	field.TypeInt64:   KindInt64,
	field.TypeFloat64: KindDecimal,
	field.TypeDecimal: KindDecimal,
	field.TypeBool:    KindBoolean,
	field.TypeTime:    KindDateTime,
	field.TypeUUID:    KindGUID,
	field.TypeBytes:   KindBinary,
}

// MapParameterKind returns the parameter kind an attribute binds as. The
// first matching rule wins: dates stored as strings and identifier-shaped
// strings bind as fixed ANSI text, JSON as variable text, enums by name or
// ordinal, CLOBs as unbounded text, and everything else by domain type.
func MapParameterKind(a *field.Descriptor) (ParamKind, error) {
	switch {
	case a.StoredAsString:
		return KindFixedAnsiString, nil
	case a.IdentifierShaped():
		return KindFixedAnsiString, nil
	case a.StoredAsJSON:
		return KindVariableString, nil
	case a.Type == field.TypeEnum:
		if a.EnumString {
			return KindVariableString, nil
		}
		return KindInt32, nil
	case a.CLOB:
		return KindCLOB, nil
	}
	if k, ok := staticKinds[a.Type]; ok {
		return k, nil
	}
	return KindInvalid, &polystore.TypeMappingError{Attribute: a.Name, Type: a.Type.String()}
}

// paramSize returns the declared width of a parameter of the attribute.
func paramSize(a *field.Descriptor, kind ParamKind) int {
	switch {
	case a.StoredAsString:
		return len(DateLayout)
	case kind == KindFixedAnsiString:
		return identifierLength(a)
	case kind == KindVariableString && !a.StoredAsJSON:
		if a.Type == field.TypeEnum && a.MaxLength == 0 {
			return DefaultEnumLength
		}
		return a.MaxLength
	}
	return 0
}

func identifierLength(a *field.Descriptor) int {
	if a.MaxLength > 0 {
		return a.MaxLength
	}
	return field.DefaultIdentifierLength
}

// MapColumnTypeString returns the column type of an attribute in the named
// dialect. The first matching rule wins: identifier-shaped strings get a
// fixed-width column, dates stored as strings a fixed-width column sized for
// DateLayout, CLOB and JSON attributes unbounded text, enums a sized string
// or a 32-bit integer, and everything else the dialect entry for the domain
// type, falling back to a dialect-neutral entry.
func MapColumnTypeString(a *field.Descriptor, name string) (string, error) {
	cat, ok := catalogs[name]
	if !ok {
		return "", &polystore.UnsupportedDialectError{Name: name, Available: catalogNames()}
	}
	switch {
	case a.IdentifierShaped():
		return cat.fixed.render(identifierLength(a)), nil
	case a.StoredAsString:
		return cat.fixed.render(len(DateLayout)), nil
	case a.CLOB || a.StoredAsJSON:
		return cat.clob.render(0), nil
	case a.Type == field.TypeEnum:
		if a.EnumString {
			size := a.MaxLength
			if size == 0 {
				size = DefaultEnumLength
			}
			return lookupType(cat, field.TypeString, a, name, size)
		}
		return lookupType(cat, field.TypeInt32, a, name, 0)
	}
	return lookupType(cat, a.Type, a, name, a.MaxLength)
}

func lookupType(cat catalog, t field.Type, a *field.Descriptor, name string, size int) (string, error) {
	if ct, ok := cat.types[t]; ok {
		return ct.render(size), nil
	}
	if ct, ok := neutral[t]; ok {
		return ct.render(size), nil
	}
	return "", &polystore.TypeMappingError{Attribute: a.Name, Type: a.Type.String(), Dialect: name}
}

func catalogNames() []string {
	return []string{dialect.MySQL, dialect.Oracle, dialect.Postgres, dialect.SQLServer}
}
