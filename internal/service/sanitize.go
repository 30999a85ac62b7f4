package service

import "regexp"

// Sanitizer replaces personal data in free text with fixed tokens before the
// text leaves the process or reaches a log line.
type Sanitizer struct {
	rules []redaction
}

type redaction struct {
	pattern *regexp.Regexp
	token   string
}

// NewSanitizer returns a sanitizer for emails, SSN-like numbers, card-like
// numbers and phone numbers, applied in that order.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		rules: []redaction{
			{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
			{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
			{regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`), "[CARD]"},
			{regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`), "[PHONE]"},
		},
	}
}

// Scrub returns text with every match replaced by its token.
func (s *Sanitizer) Scrub(text string) string {
	for _, r := range s.rules {
		text = r.pattern.ReplaceAllString(text, r.token)
	}
	return text
}
