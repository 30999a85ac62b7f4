package utils

import (
	"strings"
	"unicode"
)

// Normalize lowercases, trims and collapses internal whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// StripQuotes removes inch/foot quote marks and tightens "24 x 48" to "24x48".
func StripQuotes(s string) string {
	r := strings.NewReplacer(`"`, "", `'`, "", "″", "", "”", "", "“", "", "’", "", "′", "", "×", "x")
	out := r.Replace(strings.ToLower(strings.TrimSpace(s)))
	out = strings.Join(strings.Fields(out), " ")
	return strings.ReplaceAll(strings.ReplaceAll(out, " x ", "x"), " x", "x")
}

// Tokens splits normalised text into word tokens. Letters, digits, '.', '/'
// and '-' stay inside a token so sizes like "24x48" and "3/8" survive.
func Tokens(s string) []string {
	s = StripQuotes(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '/' || r == '-')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".-/")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries.
// Both sides are normalised first.
func ContainsPhrase(text, phrase string) bool {
	phrase = padded(phrase)
	if strings.TrimSpace(phrase) == "" {
		return false
	}
	return strings.Contains(padded(text), phrase)
}

// ContainsAny reports whether any phrase occurs in text on word boundaries.
func ContainsAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func padded(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

// TitleCase upper-cases the first letter of each word.
func TitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
