package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/model"
)

func testData() model.CatalogData {
	return model.CatalogData{
		Categories: []model.Category{
			{ID: 10, Name: "Wall", Slug: "wall", Count: 12},
			{ID: 11, Name: "Floor Tiles", Slug: "floor-tiles", Count: 30},
			{ID: 12, Name: "Mosaics", Slug: "mosaics", Count: 4},
			{ID: 13, Name: "Discontinued", Slug: "discontinued", Count: 0},
		},
		Tags: []model.Tag{
			{ID: 70, Name: "Quick Ship", Slug: "quick-ship"},
			{ID: 71, Name: "Chip Card", Slug: "chip-card"},
		},
		Terms: []model.Term{
			{ID: 1, Attribute: "pa_finish", Name: "Polished", Slug: "polished"},
			{ID: 2, Attribute: "pa_finish", Name: "Semi-Polished", Slug: "semi-polished"},
			{ID: 3, Attribute: "pa_color", Name: "White", Slug: "white"},
		},
		Products: []model.Product{
			{ID: 500, Name: "Allspice Porcelain Tile", Slug: "allspice-porcelain-tile"},
			{ID: 501, Name: "Calacatta Gold", Slug: "calacatta-gold"},
			{ID: 502, Name: "Calacatta Gold Mosaic", Slug: "calacatta-gold-mosaic"},
		},
	}
}

func TestSnapshot_LookupCategory(t *testing.T) {
	snap := NewSnapshot(testData())

	tests := []struct {
		name   string
		text   string
		wantID int
		wantOK bool
	}{
		{"exact name", "show me wall tiles", 10, true},
		{"multi word name", "do you have floor tiles", 11, true},
		{"singular form", "looking for a mosaic", 12, true},
		{"slug form", "browse floor-tiles", 11, true},
		{"zero count skipped", "discontinued stuff", 0, false},
		{"no category", "hello there", 0, false},
		{"word boundary", "wallpaper please", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := snap.LookupCategory(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, ref.ID)
		})
	}
}

func TestSnapshot_LookupTag(t *testing.T) {
	snap := NewSnapshot(testData())

	id, ok := snap.LookupTag("quick-ship")
	require.True(t, ok)
	assert.Equal(t, 70, id)

	id, ok = snap.LookupTag("Chip Card")
	require.True(t, ok)
	assert.Equal(t, 71, id)

	_, ok = snap.LookupTag("clearance")
	assert.False(t, ok)
}

func TestSnapshot_LookupAttributeTerms(t *testing.T) {
	snap := NewSnapshot(testData())

	terms := snap.LookupAttributeTerms("pa_finish")
	require.Len(t, terms, 2)
	assert.Equal(t, "Semi-Polished", terms[0].Name, "longest term first")
	assert.Equal(t, terms, snap.LookupAttributeTerms("finish"))

	assert.Empty(t, snap.LookupAttributeTerms("pa_origin"))
}

func TestSnapshot_LookupProductToken(t *testing.T) {
	snap := NewSnapshot(testData())

	ref, ok := snap.LookupProductToken("price of calacatta gold mosaic?")
	require.True(t, ok)
	assert.Equal(t, 502, ref.ID, "longest full name wins")

	ref, ok = snap.LookupProductToken("order 10 qty allspice")
	require.True(t, ok)
	assert.Equal(t, 500, ref.ID, "unique token")

	_, ok = snap.LookupProductToken("calacatta")
	assert.False(t, ok, "token shared by two products is ambiguous")

	_, ok = snap.LookupProductToken("porcelain")
	assert.False(t, ok, "generic word")
}

func TestSnapshot_NilAndEmpty(t *testing.T) {
	var nilSnap *Snapshot
	for _, snap := range []*Snapshot{nilSnap, Empty()} {
		_, ok := snap.LookupCategory("wall")
		assert.False(t, ok)
		_, ok = snap.LookupTag("quick-ship")
		assert.False(t, ok)
		assert.Empty(t, snap.LookupAttributeTerms("finish"))
		_, ok = snap.LookupProductToken("allspice")
		assert.False(t, ok)
		assert.Empty(t, snap.Digest(10).ProductNames)
	}
}

func TestSnapshot_Digest(t *testing.T) {
	snap := NewSnapshot(testData())

	d := snap.Digest(2)
	assert.Len(t, d.ProductNames, 2)
	assert.Equal(t, []string{"Floor Tiles", "Mosaics", "Wall"}, d.CategoryNames)
	assert.Equal(t, []string{"Polished", "Semi-Polished"}, d.Attributes["finish"])
	assert.Equal(t, []string{"White"}, d.Attributes["color"])

	stats := snap.Stats()
	assert.Equal(t, 4, stats.Categories)
	assert.Equal(t, 3, stats.Products)
}
