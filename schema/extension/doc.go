// Package extension implements extended properties on a fixed set of
// generic slot columns.
//
// Extendable entities share one extension table. Each row carries four
// linkage columns (ObjectId, SystemId, RepositoryId, VariantId) followed by
// pre-sized slot columns laid out by a Layout: a table of kind and capacity.
//
//	pool := extension.NewPool(extension.DefaultLayout())
//	invoice, err := pool.Register(extension.Definition{
//	    ID: "3f0c...", Name: "Invoice", Entity: "Document",
//	    SystemID: "sys", RepositoryID: "main",
//	    Properties: []extension.PropertyDef{
//	        {Name: "Amount", Type: field.TypeDecimal},
//	        {Name: "Customer", Type: field.TypeString, MaxLength: 64},
//	    },
//	})
//	p, _ := invoice.Property("Amount") // p.Slot.Column == "Decimal1"
//
// A property is bound to the first free slot of its kind when its variant is
// registered, and the binding never changes afterwards.
package extension
