// Package schema provides the declarative entity model shared by the
// statement compilers and the DDL generator.
//
// Entities are declared once, either in Go or from a schema file (see
// [load]), and are immutable after Build:
//
//   - [field]: attribute builders and domain types
//   - [index]: secondary index groups
//   - [edge]: parent association metadata
//   - [extension]: extended-property slots and variants
//   - [mixin]: reusable attribute sets such as timestamps
//
// # Quick Start
//
//	doc, err := schema.Define("Document").
//	    Table("Documents").
//	    Key("Id").
//	    Fields(
//	        field.String("Id"),
//	        field.String("Title").MaxLen(200).Sortable("Title").Searchable(),
//	        field.Text("Body").Searchable(),
//	        field.Time("CreatedOn").StoredAsString(),
//	        field.Enum("Status").Values("Draft", "Published"),
//	        field.JSON("Metadata").Nillable(),
//	        field.String("Folders").Mappings(),
//	    ).
//	    Extendable("").
//	    Searchable().
//	    Parent(edge.Parent("Folders").Multiple()).
//	    Build()
//
// Build validates identifiers, the primary key, index references and the
// parent association, and reports every problem at once as a
// *polystore.ConfigurationError chain.
//
// Nothing here inspects Go values by reflection: the attribute list is the
// only source of column metadata.
package schema
