// Package field provides fluent builders for declaring entity attributes.
//
// Attribute names are the logical names used by callers in value maps,
// filters and sort specifications. The physical column defaults to the
// logical name and can be overridden:
//
//	field.String("Title").MaxLen(200)            // column Title
//	field.String("Title").Column("DocTitle")     // column DocTitle
//
// # Domain Types
//
//	field.String("Name")
//	field.Text("Body")                 // unbounded text
//	field.Int32("Revision")
//	field.Int64("Size")
//	field.Float64("Ratio")
//	field.Decimal("Amount")
//	field.Bool("Archived")
//	field.Time("CreatedOn")
//	field.UUID("ExternalKey")
//	field.Bytes("Thumbnail")
//	field.Enum("Status").Values("Draft", "Published")
//	field.JSON("Metadata")             // structured value stored as JSON text
//
// # Storage Flags
//
// Flags change how a value is bound and which column type it gets:
//
//	field.Time("CreatedOn").StoredAsString()   // fixed-width ISO-like text
//	field.Enum("Status").Values(...).EnumString() // persisted by name
//	field.String("Notes").IgnoreIfNull()       // omitted from mutations when null
//	field.String("Folders").Mappings()         // association table, not a column
//	field.String("Display").Alias()            // never persisted
//
// String attributes whose name ends in "Id", or whose max length is 32, are
// identifier-shaped: they bind as fixed-width ANSI strings and get a
// fixed-width column.
//
// # Indexing
//
//	field.String("Title").Sortable("Title")    // non-unique index group
//	field.String("Code").Unique("Natural")     // unique index group
//	field.String("Body").Searchable()          // full-text index member
package field
