package utils

// Alias maps a canonical attribute value to the phrases customers use for it.
type Alias struct {
	Canonical string
	Phrases   []string
}

// MatchAlias returns the canonical value of the first alias whose phrase
// occurs in text. Tables are ordered slices so the result is deterministic.
func MatchAlias(text string, table []Alias) (string, bool) {
	for _, a := range table {
		if ContainsAny(text, a.Phrases...) {
			return a.Canonical, true
		}
	}
	return "", false
}

// Finishes lists surface finishes. Multi-word phrases come first.
var Finishes = []Alias{
	{"Semi-Polished", []string{"semi polished", "semi-polished", "lappato"}},
	{"High Gloss", []string{"high gloss", "glossy", "gloss"}},
	{"Polished", []string{"polished", "shiny"}},
	{"Matte", []string{"matte", "matt", "mat finish"}},
	{"Honed", []string{"honed"}},
	{"Textured", []string{"textured", "structured", "anti slip", "anti-slip", "non slip"}},
	{"Satin", []string{"satin"}},
	{"Natural", []string{"natural finish"}},
}

// Colors lists colour families.
var Colors = []Alias{
	{"Dark Grey", []string{"dark grey", "dark gray", "charcoal", "anthracite"}},
	{"Light Grey", []string{"light grey", "light gray"}},
	{"Grey", []string{"grey", "gray", "silver"}},
	{"White", []string{"white", "ivory", "snow"}},
	{"Black", []string{"black", "nero"}},
	{"Beige", []string{"beige", "cream", "sand", "taupe"}},
	{"Brown", []string{"brown", "walnut", "chocolate"}},
	{"Blue", []string{"blue", "navy", "teal"}},
	{"Green", []string{"green", "sage", "olive"}},
	{"Gold", []string{"gold", "golden"}},
	{"Multicolor", []string{"multicolor", "multi color", "multicolour", "mixed colors"}},
}

// Visuals lists "looks" a tile imitates.
var Visuals = []Alias{
	{"Marble Look", []string{"marble look", "marble effect", "marble"}},
	{"Wood Look", []string{"wood look", "wood effect", "wood grain", "wooden", "wood"}},
	{"Stone Look", []string{"stone look", "stone effect", "slate", "limestone", "travertine"}},
	{"Concrete Look", []string{"concrete look", "cement look", "concrete", "cement"}},
	{"Terrazzo", []string{"terrazzo"}},
	{"Metallic", []string{"metallic", "metal look"}},
	{"Fabric Look", []string{"fabric look", "textile look", "linen look"}},
}

// Origins lists countries of manufacture.
var Origins = []Alias{
	{"Italy", []string{"italy", "italian", "made in italy"}},
	{"Spain", []string{"spain", "spanish"}},
	{"Portugal", []string{"portugal", "portuguese"}},
	{"Turkey", []string{"turkey", "turkish"}},
	{"USA", []string{"usa", "american", "made in usa", "united states"}},
	{"India", []string{"india", "indian"}},
	{"China", []string{"china", "chinese"}},
	{"Brazil", []string{"brazil", "brazilian"}},
}

// Applications lists where a tile may be installed.
var Applications = []Alias{
	{"Backsplash", []string{"backsplash", "back splash"}},
	{"Shower", []string{"shower", "bathroom wall"}},
	{"Pool", []string{"pool", "swimming pool"}},
	{"Outdoor", []string{"outdoor", "exterior", "patio", "terrace"}},
	{"Floor", []string{"floor", "flooring", "floors"}},
	{"Wall", []string{"wall", "walls"}},
	{"Countertop", []string{"countertop", "counter top", "worktop"}},
}

// TagKeywords maps storefront tag slugs to trigger phrases.
var TagKeywords = []Alias{
	{"quick-ship", []string{"quick ship", "quickship", "ready to ship", "in stock"}},
	{"new-arrival", []string{"new arrival", "new arrivals", "just arrived", "latest"}},
	{"best-seller", []string{"best seller", "bestseller", "best selling", "popular"}},
	{"clearance", []string{"clearance"}},
}
