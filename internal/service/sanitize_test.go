package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Scrub(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"email", "mail me at jane.doe+tiles@example.com please", "mail me at [EMAIL] please"},
		{"ssn", "my ssn is 123-45-6789", "my ssn is [SSN]"},
		{"card with spaces", "card 4111 1111 1111 1111 ok", "card [CARD] ok"},
		{"card plain", "4111111111111111", "[CARD]"},
		{"phone", "call (555) 123-4567 today", "call [PHONE] today"},
		{"phone dotted", "555.123.4567", "[PHONE]"},
		{"order number untouched", "where is order 12345", "where is order 12345"},
		{"quantity untouched", "order 10 qty allspice", "order 10 qty allspice"},
		{"no pii", "show me wall tiles", "show me wall tiles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Scrub(tt.in))
		})
	}
}
