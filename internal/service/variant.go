package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"orderbot/internal/model"
	"orderbot/internal/utils"
)

var (
	// ErrSimpleProduct means the product has no variation records at all.
	ErrSimpleProduct = errors.New("product has no variations")
	// ErrVariantNotFound means every variation record was a ghost.
	ErrVariantNotFound = errors.New("no matching variant")
)

// VariantUnresolvedError carries the candidates left after all narrowing.
type VariantUnresolvedError struct {
	Remaining []model.VariantCandidate
}

func (e *VariantUnresolvedError) Error() string {
	return fmt.Sprintf("%d variants still match", len(e.Remaining))
}

// FilterVariants drops ghosts and applies the structured filters. A
// candidate survives only if every filter is a case-insensitive substring of
// its attribute value. When nothing satisfies all filters the ghost-free set
// is returned unchanged.
func FilterVariants(cands []model.VariantCandidate, filters model.EntitySet) []model.VariantCandidate {
	live := make([]model.VariantCandidate, 0, len(cands))
	for _, c := range cands {
		if !c.IsGhost() {
			live = append(live, c)
		}
	}

	want := filters.Attributes()
	if len(want) == 0 || len(live) == 0 {
		return live
	}

	matched := make([]model.VariantCandidate, 0, len(live))
	for _, c := range live {
		if satisfiesAll(c, want) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return live
	}
	return matched
}

func satisfiesAll(c model.VariantCandidate, want map[string]string) bool {
	attrs := normalizedAttributes(c)
	for key, v := range want {
		got, ok := attrs[key]
		if !ok {
			return false
		}
		needle := strings.ToLower(strings.TrimSpace(v))
		if key == model.AttrSize {
			got, needle = utils.StripQuotes(got), utils.StripQuotes(needle)
		}
		if !strings.Contains(got, needle) {
			return false
		}
	}
	return true
}

// normalizedAttributes lowercases values and strips the "pa_" prefix and
// "attribute_" prefix from keys.
func normalizedAttributes(c model.VariantCandidate) map[string]string {
	out := make(map[string]string, len(c.Attributes))
	for k, v := range c.Attributes {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.TrimPrefix(key, "attribute_")
		key = strings.TrimPrefix(key, "pa_")
		out[key] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

// ScoreVariants narrows cands to the single candidate whose attribute values
// share the most tokens with raw. Ties keep the first candidate. When no
// candidate shares any token the input is returned unchanged.
func ScoreVariants(cands []model.VariantCandidate, raw string) []model.VariantCandidate {
	if len(cands) <= 1 || strings.TrimSpace(raw) == "" {
		return cands
	}
	words := make(map[string]bool)
	for _, t := range utils.Tokens(raw) {
		words[t] = true
	}

	best, bestScore := -1, 0
	for i, c := range cands {
		score := 0
		for _, t := range candidateTokens(c) {
			if words[t] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return cands
	}
	return cands[best : best+1]
}

func candidateTokens(c model.VariantCandidate) []string {
	keys := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		for _, t := range utils.Tokens(c.Attributes[k]) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Resolve runs ghost removal, the structured filter pass and, when more than
// one candidate is left and raw is given, token-overlap scoring.
func Resolve(cands []model.VariantCandidate, filters model.EntitySet, raw string) []model.VariantCandidate {
	out := FilterVariants(cands, filters)
	if len(out) > 1 && raw != "" {
		out = ScoreVariants(out, raw)
	}
	return out
}

// ResolveVariant resolves to exactly one purchasable candidate or reports
// why it could not.
func ResolveVariant(cands []model.VariantCandidate, filters model.EntitySet, raw string) (model.VariantCandidate, error) {
	if len(cands) == 0 {
		return model.VariantCandidate{}, ErrSimpleProduct
	}
	out := Resolve(cands, filters, raw)
	switch len(out) {
	case 0:
		return model.VariantCandidate{}, ErrVariantNotFound
	case 1:
		return out[0], nil
	default:
		return model.VariantCandidate{}, &VariantUnresolvedError{Remaining: out}
	}
}

// DescribeVariant renders a candidate's attributes as "Finish: Matte, Size: 24x48".
func DescribeVariant(c model.VariantCandidate) string {
	keys := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", DescribeKey(k), c.Attributes[k]))
	}
	return strings.Join(parts, ", ")
}

// DescribeKey turns an attribute key such as "pa_collection-year" into
// "Collection Year".
func DescribeKey(key string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(key), "attribute_"), "pa_")
	return utils.TitleCase(strings.ReplaceAll(name, "-", " "))
}
