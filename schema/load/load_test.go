package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

const documentsYAML = `
layout:
  - {kind: SmallText, capacity: 2}
  - {kind: largetext, capacity: 1}
  - {kind: Decimal, capacity: 1}
entities:
  - name: Document
    key: Id
    extendable: true
    searchable: true
    parent: {attribute: Folders, multiple: true}
    fields:
      - {name: Id, type: string, max_len: 32}
      - {name: Title, type: string, max_len: 200, sortable: Title, searchable: true}
      - {name: Body, type: text, nillable: true, searchable: true}
      - {name: Status, type: enum, values: [Draft, Published], enum_string: true}
      - {name: Issued, type: date, stored_as_string: true}
      - {name: Folders, type: string, max_len: 32, mappings: true}
    indexes:
      - {fields: [Status, Issued], group: State}
  - name: Person
    key: Id
    mixins: [time]
    fields:
      - {name: Id, type: guid}
      - {name: Tags, type: json}
variants:
  - name: Invoice
    entity: Document
    properties:
      - {name: Amount, type: decimal, default: 0}
      - {name: Customer, type: string, max_len: 40}
  - id: legal
    name: Legal
    entity: Document
    system: erp
    repository: main
    properties:
      - {name: Notes, type: string, max_len: 2000}
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(documentsYAML))
	require.NoError(t, err)
	require.Len(t, s.Entities, 2)

	doc, ok := s.Entity("Document")
	require.True(t, ok)
	assert.Equal(t, "Documents", doc.Table())
	assert.Equal(t, "Id", doc.PrimaryKey().Name)
	assert.True(t, doc.Extendable())
	assert.Equal(t, "ExtendedProperties", doc.ExtensionTable())
	assert.True(t, doc.Searchable())
	assert.True(t, doc.Parent().Multiple)
	body, ok := doc.Attribute("Body")
	require.True(t, ok)
	assert.True(t, body.CLOB)
	assert.True(t, body.Nullable)
	issued, _ := doc.Attribute("Issued")
	assert.Equal(t, field.TypeTime, issued.Type)
	assert.True(t, issued.StoredAsString)
	status, _ := doc.Attribute("Status")
	assert.Equal(t, []string{"Draft", "Published"}, status.Enums)
	assert.Len(t, doc.Mappings(), 1)
	var names []string
	for _, idx := range doc.Indexes() {
		names = append(names, idx.Name(doc.Table()))
	}
	assert.Equal(t, []string{"IX_Documents_Title", "IX_Documents_State"}, names)

	person, ok := s.Entity("Person")
	require.True(t, ok)
	assert.Equal(t, TableName("Person"), person.Table())
	tags, _ := person.Attribute("Tags")
	assert.True(t, tags.StoredAsJSON)
	_, ok = person.Attribute("ModifiedOn")
	assert.True(t, ok)
	require.Len(t, person.Indexes(), 1)
	assert.Equal(t, []string{"CreatedOn"}, person.Indexes()[0].Fields)

	assert.Equal(t, 2, s.Pool.Layout().Capacity(extension.SmallText))
	invoice, ok := s.Variant("Document", "Invoice")
	require.True(t, ok)
	assert.Equal(t, VariantID("Document", "Invoice"), invoice.ID)
	assert.Len(t, invoice.ID, extension.VariantIDLength)
	assert.Equal(t, DefaultSystem, invoice.SystemID)
	amount, ok := invoice.Property("Amount")
	require.True(t, ok)
	assert.Equal(t, "Decimal1", amount.Slot.Column)
	assert.Equal(t, 0, amount.Default)
	customer, _ := invoice.Property("Customer")
	assert.Equal(t, "SmallText1", customer.Slot.Column)

	legal, ok := s.Variant("Document", "legal")
	require.True(t, ok)
	assert.Equal(t, "erp", legal.SystemID)
	notes, _ := legal.Property("Notes")
	assert.Equal(t, "LargeText1", notes.Slot.Column)
	assert.Len(t, s.Pool.Assignments(), 3)
}

func TestParseJSON(t *testing.T) {
	s, err := Parse([]byte(`{
  "entities": [{
    "name": "Note",
    "table": "Notes",
    "key": "Id",
    "fields": [
      {"name": "Id", "type": "string", "max_len": 32},
      {"name": "Rank", "type": "int", "unique": "Rank"}
    ]
  }]
}`))
	require.NoError(t, err)
	note, ok := s.Entity("Note")
	require.True(t, ok)
	assert.Equal(t, "Notes", note.Table())
	assert.Equal(t, extension.DefaultLayout(), s.Pool.Layout())
	rank, _ := note.Attribute("Rank")
	assert.Equal(t, field.TypeInt32, rank.Type)
	assert.Equal(t, "Rank", rank.UniqueGroup)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		config bool
		substr string
	}{
		{name: "empty", input: "", substr: "empty schema description"},
		{name: "unknown key", input: "entities: []\ncolour: red\n", substr: "field colour not found"},
		{name: "unknown type", input: `
entities:
  - name: Note
    key: Id
    fields: [{name: Id, type: money}]
`, config: true, substr: `unknown type "money"`},
		{name: "missing key", input: `
entities:
  - name: Note
    fields: [{name: Id, type: string}]
`, config: true, substr: "primary key is required"},
		{name: "duplicate entity", input: `
entities:
  - {name: Note, key: Id, fields: [{name: Id, type: string}]}
  - {name: Note, key: Id, fields: [{name: Id, type: string}]}
`, config: true, substr: "entity declared twice"},
		{name: "unknown mixin", input: `
entities:
  - {name: Note, key: Id, mixins: [audit], fields: [{name: Id, type: string}]}
`, config: true, substr: `unknown mixin "audit"`},
		{name: "unknown slot kind", input: "layout: [{kind: Huge, capacity: 1}]\nentities: []\n", substr: `unknown slot kind "Huge"`},
		{name: "variant of unknown entity", input: `
entities: []
variants: [{name: V, entity: Ghost, properties: []}]
`, config: true, substr: "variant of an unknown entity"},
		{name: "variant of closed entity", input: `
entities:
  - {name: Note, key: Id, fields: [{name: Id, type: string}]}
variants: [{name: V, entity: Note, properties: []}]
`, config: true, substr: "not extendable"},
		{name: "slot exhausted", input: `
layout: [{kind: Integer, capacity: 1}]
entities:
  - {name: Note, key: Id, extendable: true, fields: [{name: Id, type: string, max_len: 32}]}
variants:
  - name: V
    entity: Note
    properties: [{name: A, type: int}, {name: B, type: long}]
`, config: true, substr: "no free Integer slot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
			assert.Equal(t, tt.config, polystore.IsConfigurationError(err))
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(documentsYAML), 0o600))
	s, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, s.Entities, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestVariantID(t *testing.T) {
	assert.Equal(t, VariantID("Document", "Invoice"), VariantID("Document", "Invoice"))
	assert.NotEqual(t, VariantID("Document", "Invoice"), VariantID("Folder", "Invoice"))
	assert.Regexp(t, `^[0-9a-f]{32}$`, VariantID("Document", "Invoice"))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "Documents", TableName("Document"))
	assert.Equal(t, "Notes", TableName("Note"))
}

func TestExampleSchema(t *testing.T) {
	s, err := ReadFile(filepath.Join("..", "..", "examples", "documents", "schema.yaml"))
	require.NoError(t, err)
	require.Len(t, s.Entities, 2)
	require.Len(t, s.Variants, 2)

	doc, ok := s.Entity("Document")
	require.True(t, ok)
	assert.Equal(t, "Documents", doc.Table())
	var idx []string
	for _, d := range doc.Indexes() {
		idx = append(idx, d.Name(doc.Table()))
	}
	assert.Equal(t, []string{"IX_Documents_Title", "IX_Documents_CreatedOn", "IX_Documents_State"}, idx)

	invoice, ok := s.Variant("Document", "Invoice")
	require.True(t, ok)
	due, ok := invoice.Property("Due")
	require.True(t, ok)
	assert.Equal(t, "DateTime1", due.Slot.Column)
}
