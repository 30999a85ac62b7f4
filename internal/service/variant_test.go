package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/model"
)

func variants() []model.VariantCandidate {
	return []model.VariantCandidate{
		{ID: 1, Purchasable: true, Attributes: map[string]string{"pa_finish": "Polished", "pa_size": `24"x48"`}},
		{ID: 2, Purchasable: true, Attributes: map[string]string{"pa_finish": "Matte", "pa_size": `24"x48"`}},
		{ID: 3, Purchasable: true, Attributes: map[string]string{"pa_finish": "Polished", "pa_size": `12"x24"`}},
		{ID: 4, Purchasable: false, Attributes: map[string]string{"pa_finish": "Honed", "pa_size": `12"x24"`}},
		{ID: 5, Purchasable: true, Attributes: map[string]string{}},
	}
}

func ids(cands []model.VariantCandidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func TestFilterVariants(t *testing.T) {
	tests := []struct {
		name    string
		filters model.EntitySet
		want    []int
	}{
		{"no filters drops ghosts", model.EntitySet{}, []int{1, 2, 3}},
		{"finish", model.EntitySet{Finish: model.Ptr("polished")}, []int{1, 3}},
		{"finish and size", model.EntitySet{Finish: model.Ptr("Polished"), Size: model.Ptr("24x48")}, []int{1}},
		{"size with quotes", model.EntitySet{Size: model.Ptr(`12" x 24"`)}, []int{3}},
		{"sample size preferred", model.EntitySet{Size: model.Ptr("24x48"), SampleSize: model.Ptr("12x24")}, []int{3}},
		{"substring", model.EntitySet{Finish: model.Ptr("matt")}, []int{2}},
		{"nothing matches is fail-open", model.EntitySet{Finish: model.Ptr("Honed")}, []int{1, 2, 3}},
		{"unknown attribute is fail-open", model.EntitySet{Color: model.Ptr("White")}, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterVariants(variants(), tt.filters)))
		})
	}
}

func TestScoreVariants(t *testing.T) {
	live := FilterVariants(variants(), model.EntitySet{})

	assert.Equal(t, []int{2}, ids(ScoreVariants(live, "the matte one please")))
	assert.Equal(t, []int{3}, ids(ScoreVariants(live, "polished 12x24")))
	// tie between 1 and 3 keeps the first
	assert.Equal(t, []int{1}, ids(ScoreVariants(live, "polished")))
	assert.Equal(t, []int{1, 2, 3}, ids(ScoreVariants(live, "whatever you think")))
	assert.Equal(t, []int{1, 2, 3}, ids(ScoreVariants(live, "")))
}

func TestResolveVariant(t *testing.T) {
	t.Run("resolved by filters", func(t *testing.T) {
		got, err := ResolveVariant(variants(), model.EntitySet{Finish: model.Ptr("Matte")}, "")
		require.NoError(t, err)
		assert.Equal(t, 2, got.ID)
	})

	t.Run("resolved by raw text", func(t *testing.T) {
		got, err := ResolveVariant(variants(), model.EntitySet{Finish: model.Ptr("Polished")}, "the 12x24 polished")
		require.NoError(t, err)
		assert.Equal(t, 3, got.ID)
	})

	t.Run("simple product", func(t *testing.T) {
		_, err := ResolveVariant(nil, model.EntitySet{}, "")
		assert.True(t, errors.Is(err, ErrSimpleProduct))
	})

	t.Run("only ghosts", func(t *testing.T) {
		cands := variants()[3:]
		_, err := ResolveVariant(cands, model.EntitySet{}, "anything")
		assert.True(t, errors.Is(err, ErrVariantNotFound))
	})

	t.Run("unresolved", func(t *testing.T) {
		_, err := ResolveVariant(variants(), model.EntitySet{}, "")
		var unresolved *VariantUnresolvedError
		require.True(t, errors.As(err, &unresolved))
		assert.Equal(t, []int{1, 2, 3}, ids(unresolved.Remaining))
	})

	t.Run("single live candidate", func(t *testing.T) {
		cands := variants()[2:]
		got, err := ResolveVariant(cands, model.EntitySet{}, "")
		require.NoError(t, err)
		assert.Equal(t, 3, got.ID)
	})
}

func TestDescribeVariant(t *testing.T) {
	c := model.VariantCandidate{Attributes: map[string]string{"pa_size": "24x48", "attribute_pa_finish": "Matte", "pa_collection-year": "2024"}}
	assert.Equal(t, "Finish: Matte, Collection Year: 2024, Size: 24x48", DescribeVariant(c))
}
