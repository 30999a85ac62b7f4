package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    reply
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"intent": "reorder", "confidence": 0.8}`,
			want:  reply{Intent: "reorder", Confidence: 0.8},
		},
		{
			name:  "fenced with json tag",
			input: "```json\n{\"intent\": \"sample_request\", \"confidence\": 0.7}\n```",
			want:  reply{Intent: "sample_request", Confidence: 0.7},
		},
		{
			name:  "fenced without tag",
			input: "```\n{\"intent\": \"greeting\"}\n```",
			want:  reply{Intent: "greeting"},
		},
		{
			name:  "wrapped in prose",
			input: `Sure! Here you go: {"intent": "category_list", "confidence": 0.9} hope that helps`,
			want:  reply{Intent: "category_list", Confidence: 0.9},
		},
		{
			name:  "braces inside strings",
			input: `note {"intent": "a {b}", "confidence": 1}`,
			want:  reply{Intent: "a {b}", Confidence: 1},
		},
		{
			name:  "trailing comma",
			input: `{"intent": "order_status", "confidence": 0.6,}`,
			want:  reply{Intent: "order_status", Confidence: 0.6},
		},
		{
			name:  "unquoted keys",
			input: `{intent: "last_order", confidence: 0.65}`,
			want:  reply{Intent: "last_order", Confidence: 0.65},
		},
		{name: "empty", input: "  ", wantErr: true},
		{name: "prose only", input: "I could not work out what you meant.", wantErr: true},
		{name: "array is not an object", input: `[1, 2, 3]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got reply
			err := DecodeModelJSON(tt.input, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoJSONObject))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 2}}`, firstObject(`x {"a": {"b": 2}} y`))
	assert.Equal(t, `{"s": "\"}"}`, firstObject(`{"s": "\"}"}`))
	assert.Equal(t, "", firstObject(`{"open": 1`))
	assert.Equal(t, "", firstObject(`no braces`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
