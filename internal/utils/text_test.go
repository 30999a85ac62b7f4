package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "show me wall tiles", Normalize("  Show   me WALL tiles \n"))
}

func TestStripQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`24" x 48"`, "24x48"},
		{"24 X 48", "24x48"},
		{"12″×24″", "12x24"},
		{"3/8''", "3/8"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripQuotes(tt.in))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"polished", "24x48", "please"}, Tokens(`Polished 24" x 48", please.`))
	assert.Empty(t, Tokens("  ,, "))
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, ContainsPhrase("I want the wood-look planks", "wood look"))
	assert.True(t, ContainsPhrase("Order again please", "order again"))
	assert.False(t, ContainsPhrase("reorder", "order"))
	assert.False(t, ContainsPhrase("anything", ""))
}

func TestMatchAlias_FirstEntryWins(t *testing.T) {
	got, ok := MatchAlias("dark grey polished porcelain", Colors)
	assert.True(t, ok)
	assert.Equal(t, "Dark Grey", got)

	got, ok = MatchAlias("semi polished finish", Finishes)
	assert.True(t, ok)
	assert.Equal(t, "Semi-Polished", got)

	_, ok = MatchAlias("nothing here", Origins)
	assert.False(t, ok)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Wood Look", TitleCase("wood LOOK"))
}
