package model

// VariantCandidate is one variation of a configurable product.
type VariantCandidate struct {
	ID          int               `json:"id"`
	Attributes  map[string]string `json:"attributes"`
	Purchasable bool              `json:"purchasable"`
	Price       string            `json:"price,omitempty"`
}

// IsGhost reports whether the candidate must be excluded before matching.
func (v VariantCandidate) IsGhost() bool {
	return len(v.Attributes) == 0 || !v.Purchasable
}

// AttributeSpace maps each attribute name to the distinct options present
// across the candidates, in first-seen order.
func AttributeSpace(cands []VariantCandidate) map[string][]string {
	space := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, c := range cands {
		for name, value := range c.Attributes {
			if seen[name] == nil {
				seen[name] = make(map[string]bool)
			}
			if !seen[name][value] {
				seen[name][value] = true
				space[name] = append(space[name], value)
			}
		}
	}
	return space
}
