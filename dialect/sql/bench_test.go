package sql_test

import (
	"testing"

	sqlc "github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/querylanguage"
)

func BenchmarkCompileInsert(b *testing.B) {
	e := documents()
	values := sqlc.Values{"Id": "D1", "Title": "Hello", "Body": "text", "Status": "Draft", "Revision": 1, "CreatedOn": createdOn}
	for _, name := range dialects {
		c := compiler(b, name)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = c.CompileInsert(e, values)
			}
		})
	}
}

func BenchmarkCompileSelect(b *testing.B) {
	e := documents()
	q := sqlc.Query{
		Fields: []string{"Id", "Title", "Status"},
		Where: querylanguage.And(
			querylanguage.FieldIn("Status", "Draft", "Review"),
			querylanguage.Or(querylanguage.FieldContains("Title", "report"), querylanguage.HasEdge("Labels")),
		),
		Order:    []querylanguage.Order{querylanguage.Desc("Revision")},
		PageSize: 20,
		Page:     3,
	}
	for _, name := range dialects {
		c := compiler(b, name)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = c.CompileSelect(e, q)
			}
		})
	}
}

func BenchmarkCompileSearch(b *testing.B) {
	e := documents()
	q := sqlc.SearchQuery{
		Query: sqlc.Query{Fields: []string{"Id", "Title"}, PageSize: 10, Page: 1},
		Text:  `+alpha beta gamma -delta "big data"`,
	}
	for _, name := range dialects {
		c := compiler(b, name)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = c.CompileSearch(e, q)
			}
		})
	}
}
