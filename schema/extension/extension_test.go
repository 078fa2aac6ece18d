package extension_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema/extension"
	"github.com/syssam/polystore/schema/field"
)

func invoice(id string) extension.Definition {
	return extension.Definition{
		ID:           id,
		Name:         "Invoice",
		Entity:       "Document",
		SystemID:     "sys",
		RepositoryID: "main",
		Properties: []extension.PropertyDef{
			{Name: "Amount", Type: field.TypeDecimal},
			{Name: "Customer", Type: field.TypeString, MaxLength: 64},
			{Name: "Notes", Type: field.TypeString, MaxLength: 4000},
			{Name: "Reference", Type: field.TypeString, MaxLength: 40},
			{Name: "Paid", Type: field.TypeBool, Default: false},
			{Name: "DueOn", Type: field.TypeTime},
			{Name: "Lines", Type: field.TypeInt32},
		},
	}
}

func TestLayoutSlots(t *testing.T) {
	layout := extension.Layout{
		{Kind: extension.SmallText, Capacity: 2},
		{Kind: extension.Integer, Capacity: 1},
		{Kind: extension.SmallText, Capacity: 1},
	}
	slots := layout.Slots()
	require.Len(t, slots, 4)
	assert.Equal(t, "SmallText1", slots[0].Column)
	assert.Equal(t, "SmallText2", slots[1].Column)
	assert.Equal(t, "Integer1", slots[2].Column)
	assert.Equal(t, "SmallText3", slots[3].Column)
	assert.Equal(t, 3, layout.Capacity(extension.SmallText))
	assert.Equal(t, 0, layout.Capacity(extension.DateTime))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		typ    field.Type
		maxLen int
		want   extension.Kind
	}{
		{field.TypeString, 10, extension.SmallText},
		{field.TypeString, 64, extension.SmallText},
		{field.TypeString, 0, extension.MediumText},
		{field.TypeString, 256, extension.MediumText},
		{field.TypeString, 257, extension.LargeText},
		{field.TypeUUID, 0, extension.SmallText},
		{field.TypeEnum, 0, extension.SmallText},
		{field.TypeInt64, 0, extension.Integer},
		{field.TypeFloat64, 0, extension.Decimal},
		{field.TypeBool, 0, extension.Boolean},
		{field.TypeTime, 0, extension.DateTime},
		{field.TypeOther, 0, extension.LargeText},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.typ, tt.maxLen), func(t *testing.T) {
			got, err := extension.KindOf(tt.typ, tt.maxLen)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := extension.KindOf(field.TypeBytes, 0)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	pool := extension.NewPool(extension.DefaultLayout())
	v, err := pool.Register(invoice("v1"))
	require.NoError(t, err)

	columns := make(map[string]string)
	for _, p := range v.Properties() {
		columns[p.Name] = p.Slot.Column
	}
	assert.Equal(t, map[string]string{
		"Amount":    "Decimal1",
		"Customer":  "SmallText1",
		"Notes":     "LargeText1",
		"Reference": "SmallText2",
		"Paid":      "Boolean1",
		"DueOn":     "DateTime1",
		"Lines":     "Integer1",
	}, columns)

	p, ok := v.Property("Paid")
	require.True(t, ok)
	assert.Equal(t, false, p.Default)
	d := p.Descriptor()
	assert.Equal(t, "Paid", d.Name)
	assert.Equal(t, "Boolean1", d.StorageColumn())
	assert.True(t, d.Nullable)

	got, ok := pool.Variant("v1")
	require.True(t, ok)
	assert.Same(t, v, got)
}

func TestRegisterIsBijective(t *testing.T) {
	pool := extension.NewPool(extension.DefaultLayout())
	a, err := pool.Register(invoice("v1"))
	require.NoError(t, err)
	b, err := pool.Register(invoice("v2"))
	require.NoError(t, err)

	// Each variant maps properties one to one onto columns.
	for _, v := range []*extension.Variant{a, b} {
		seen := make(map[string]bool)
		for _, p := range v.Properties() {
			assert.False(t, seen[p.Slot.Column], "column %s bound twice", p.Slot.Column)
			seen[p.Slot.Column] = true
		}
	}
	// Variants reuse columns independently.
	pa, _ := a.Property("Amount")
	pb, _ := b.Property("Amount")
	assert.Equal(t, pa.Slot, pb.Slot)

	rows := pool.Assignments()
	assert.Len(t, rows, 14)
	assert.Equal(t, "v1", rows[0].VariantID)
	assert.Equal(t, "Amount", rows[0].Property)
}

func TestRegisterErrors(t *testing.T) {
	t.Run("capacity", func(t *testing.T) {
		pool := extension.NewPool(extension.Layout{{Kind: extension.Integer, Capacity: 1}})
		_, err := pool.Register(extension.Definition{
			ID: "v", Name: "V", SystemID: "s", RepositoryID: "r",
			Properties: []extension.PropertyDef{
				{Name: "A", Type: field.TypeInt32},
				{Name: "B", Type: field.TypeInt64},
			},
		})
		require.Error(t, err)
		assert.True(t, polystore.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "no free Integer slot")
		_, ok := pool.Variant("v")
		assert.False(t, ok)
	})
	t.Run("duplicate variant", func(t *testing.T) {
		pool := extension.NewPool(extension.DefaultLayout())
		_, err := pool.Register(invoice("v1"))
		require.NoError(t, err)
		_, err = pool.Register(invoice("v1"))
		assert.True(t, polystore.IsConfigurationError(err))
	})
	t.Run("duplicate property", func(t *testing.T) {
		def := invoice("v1")
		def.Properties = append(def.Properties, extension.PropertyDef{Name: "Amount", Type: field.TypeDecimal})
		_, err := extension.NewPool(extension.DefaultLayout()).Register(def)
		assert.ErrorContains(t, err, "duplicate property")
	})
	t.Run("unmapped type", func(t *testing.T) {
		def := invoice("v1")
		def.Properties = []extension.PropertyDef{{Name: "Scan", Type: field.TypeBytes}}
		_, err := extension.NewPool(extension.DefaultLayout()).Register(def)
		assert.True(t, polystore.IsTypeMappingError(err))
	})
	t.Run("ids", func(t *testing.T) {
		def := invoice("")
		def.SystemID = "0123456789012345678901234567890123"
		_, err := extension.NewPool(extension.DefaultLayout()).Register(def)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "variant ID")
		assert.Contains(t, err.Error(), "variant SystemID")
	})
}

func TestRegisterConcurrent(t *testing.T) {
	pool := extension.NewPool(extension.DefaultLayout())
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Register(invoice(fmt.Sprintf("v%02d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	vs := pool.Variants()
	require.Len(t, vs, 16)
	assert.Equal(t, "v00", vs[0].ID)
}

func TestSlotDescriptor(t *testing.T) {
	d := extension.Slot{Kind: extension.SmallText, Column: "SmallText1"}.Descriptor()
	assert.Equal(t, field.TypeString, d.Type)
	assert.Equal(t, extension.SmallTextLength, d.MaxLength)
	assert.False(t, d.IdentifierShaped())

	d = extension.Slot{Kind: extension.LargeText, Column: "LargeText1"}.Descriptor()
	assert.True(t, d.CLOB)
	assert.False(t, extension.LargeText.Indexable())
	assert.True(t, extension.Integer.Indexable())
	assert.Equal(t, []string{"ObjectId", "SystemId", "RepositoryId", "VariantId"}, extension.LinkageColumns())
}
