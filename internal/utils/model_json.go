package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when no JSON object can be recovered from a
// model reply.
var ErrNoJSONObject = errors.New("no JSON object in model reply")

var (
	fencedJSON     = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	bareKey        = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	candidateSteps = []func(string) string{
		func(s string) string { return s },
		fromFence,
		firstObject,
		func(s string) string { return repair(firstObject(s)) },
		repair,
	}
)

// DecodeModelJSON decodes the first JSON object found in a generative model
// reply into target. Replies may be bare JSON, fenced in markdown, wrapped in
// prose, or carry small syntax slips (trailing commas, unquoted keys).
func DecodeModelJSON(reply string, target any) error {
	reply = strings.TrimSpace(strings.TrimPrefix(reply, "\ufeff"))
	if reply == "" {
		return fmt.Errorf("%w: empty reply", ErrNoJSONObject)
	}
	for _, step := range candidateSteps {
		candidate := step(reply)
		if candidate == "" || !strings.HasPrefix(candidate, "{") {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoJSONObject, Truncate(reply, 80))
}

func fromFence(s string) string {
	if m := fencedJSON.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstObject returns the first balanced {...} span, ignoring braces inside
// string literals.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func repair(s string) string {
	s = controlChars.ReplaceAllString(strings.TrimSpace(s), "")
	s = trailingComma.ReplaceAllString(s, "$1")
	return bareKey.ReplaceAllString(s, `$1"$2"$3`)
}

// Truncate shortens s to at most max bytes, marking the cut with "...".
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
