package service

import (
	"regexp"
	"strconv"
	"strings"

	"orderbot/internal/catalog"
	"orderbot/internal/model"
	"orderbot/internal/utils"
)

// matchInput is what every field matcher sees. prior is the merge of the
// matchers that ran before; only the size matcher consults it.
type matchInput struct {
	text  string // normalised
	cat   catalog.Catalog
	prior model.EntitySet
}

type fieldMatcher struct {
	name  string
	match func(in matchInput) model.EntitySet
}

// Extractor pulls structured fields out of a message. It holds no state
// between calls and is safe for concurrent use.
type Extractor struct {
	matchers []fieldMatcher
}

// NewExtractor returns an extractor with the standard matcher order.
func NewExtractor() *Extractor {
	return &Extractor{
		matchers: []fieldMatcher{
			{"product", matchProduct},
			{"color", attributeMatcher(model.AttrColor, utils.Colors, setColor)},
			{"finish", attributeMatcher(model.AttrFinish, utils.Finishes, setFinish)},
			{"visual", attributeMatcher(model.AttrVisual, utils.Visuals, setVisual)},
			{"origin", attributeMatcher(model.AttrOrigin, utils.Origins, setOrigin)},
			{"sample_size", matchSampleSize},
			{"size", matchSize},
			{"thickness", matchThickness},
			{"collection_year", matchCollectionYear},
			{"order_id", matchOrderID},
			{"quantity", matchQuantity},
			{"category", matchCategory},
			{"order_item_name", matchOrderItemName},
			{"application", attributeMatcher(model.AttrApplication, utils.Applications, setApplication)},
			{"tags", matchTags},
		},
	}
}

// Extract runs every matcher over text and merges the partial results left to
// right. An empty or nil catalog leaves catalog fields unset.
func (x *Extractor) Extract(text string, cat catalog.Catalog) model.EntitySet {
	in := matchInput{text: utils.Normalize(text), cat: cat}
	if in.text == "" {
		return model.EntitySet{}
	}
	var merged model.EntitySet
	for _, m := range x.matchers {
		in.prior = merged
		merged = model.MergeEntities(merged, m.match(in))
	}
	return merged
}

func matchProduct(in matchInput) model.EntitySet {
	if in.cat == nil {
		return model.EntitySet{}
	}
	ref, ok := in.cat.LookupProductToken(in.text)
	if !ok {
		return model.EntitySet{}
	}
	return model.EntitySet{
		ProductID:   model.Ptr(ref.ID),
		ProductName: model.Ptr(ref.Name),
		ProductSlug: model.Ptr(ref.Slug),
	}
}

func matchCategory(in matchInput) model.EntitySet {
	if in.cat == nil {
		return model.EntitySet{}
	}
	ref, ok := in.cat.LookupCategory(in.text)
	if !ok {
		return model.EntitySet{}
	}
	return model.EntitySet{
		CategoryID:   model.Ptr(ref.ID),
		CategoryName: model.Ptr(ref.Name),
		CategorySlug: model.Ptr(ref.Slug),
	}
}

func setColor(v string) model.EntitySet       { return model.EntitySet{Color: &v} }
func setFinish(v string) model.EntitySet      { return model.EntitySet{Finish: &v} }
func setVisual(v string) model.EntitySet      { return model.EntitySet{Visual: &v} }
func setOrigin(v string) model.EntitySet      { return model.EntitySet{Origin: &v} }
func setApplication(v string) model.EntitySet { return model.EntitySet{Application: &v} }

// attributeMatcher prefers the live catalog terms of attr and falls back to
// the static alias table.
func attributeMatcher(attr string, aliases []utils.Alias, set func(string) model.EntitySet) func(matchInput) model.EntitySet {
	return func(in matchInput) model.EntitySet {
		if in.cat != nil {
			for _, term := range in.cat.LookupAttributeTerms(attr) {
				if utils.ContainsPhrase(in.text, term.Name) {
					return set(term.Name)
				}
			}
		}
		if v, ok := utils.MatchAlias(in.text, aliases); ok {
			return set(v)
		}
		return model.EntitySet{}
	}
}

var (
	dimensionPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)\b`)
	samplePattern    = regexp.MustCompile(`\b(?:samples?|swatch(?:es)?)\b`)
	thicknessMM      = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*mm\b`)
	thicknessInch    = regexp.MustCompile(`\b(\d+/\d+|\d+(?:\.\d+)?)\s*(?:in|inch|inches)?\s*thick`)
	collectionYear   = regexp.MustCompile(`\b(?:collection|released|launched|introduced|new in|from)\s+(?:of\s+|in\s+)?(20\d{2})\b|\b(20\d{2})\s+(?:collection|release|line)\b`)
	orderIDPattern   = regexp.MustCompile(`(?:\border\s*(?:number|no\.?|id|#)\s*#?\s*|#\s*)(\d{3,})\b|\border\s+(\d{4,})\b`)
)

// dimension finds a "WxH" size in text, quotes and spacing removed.
func dimension(text string) (string, bool) {
	m := dimensionPattern.FindStringSubmatch(utils.StripQuotes(text))
	if m == nil {
		return "", false
	}
	return m[1] + "x" + m[2], true
}

func catalogSize(in matchInput) (string, bool) {
	if in.cat == nil {
		return "", false
	}
	stripped := utils.StripQuotes(in.text)
	for _, term := range in.cat.LookupAttributeTerms(model.AttrSize) {
		if name := utils.StripQuotes(term.Name); name != "" && strings.Contains(stripped, name) {
			return term.Name, true
		}
	}
	return "", false
}

func matchSampleSize(in matchInput) model.EntitySet {
	if !samplePattern.MatchString(in.text) {
		return model.EntitySet{}
	}
	if v, ok := catalogSize(in); ok {
		return model.EntitySet{SampleSize: &v}
	}
	if v, ok := dimension(in.text); ok {
		return model.EntitySet{SampleSize: &v}
	}
	return model.EntitySet{}
}

func matchSize(in matchInput) model.EntitySet {
	if in.prior.SampleSize != nil {
		return model.EntitySet{}
	}
	if v, ok := catalogSize(in); ok {
		return model.EntitySet{Size: &v}
	}
	if v, ok := dimension(in.text); ok {
		return model.EntitySet{Size: &v}
	}
	return model.EntitySet{}
}

func matchThickness(in matchInput) model.EntitySet {
	if m := thicknessMM.FindStringSubmatch(in.text); m != nil {
		v := m[1] + "mm"
		return model.EntitySet{Thickness: &v}
	}
	if m := thicknessInch.FindStringSubmatch(utils.StripQuotes(in.text)); m != nil {
		v := m[1] + `"`
		return model.EntitySet{Thickness: &v}
	}
	return model.EntitySet{}
}

func matchCollectionYear(in matchInput) model.EntitySet {
	m := collectionYear.FindStringSubmatch(in.text)
	if m == nil {
		return model.EntitySet{}
	}
	year := m[1]
	if year == "" {
		year = m[2]
	}
	return model.EntitySet{CollectionYear: &year}
}

func matchOrderID(in matchInput) model.EntitySet {
	for _, m := range orderIDPattern.FindAllStringSubmatchIndex(in.text, -1) {
		start, end := m[2], m[3]
		if start < 0 {
			start, end = m[4], m[5]
		}
		// "order 1000 pieces" is a quantity, not an order number.
		if quantityUnit.MatchString(in.text[end:]) {
			continue
		}
		id, err := strconv.Atoi(in.text[start:end])
		if err != nil {
			continue
		}
		return model.EntitySet{OrderID: &id}
	}
	return model.EntitySet{}
}

var (
	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+)\s*(?:qty|quantity|pcs|pieces|units|boxes|sq\.?\s*ft)\b`),
		regexp.MustCompile(`\b(?:order|buy|purchase|get)\s+(\d+)\b`),
		regexp.MustCompile(`\b(\d+)\s+of\s+(?:this|these|them|it)\b`),
	}
	quantityUnit = regexp.MustCompile(`^\s*(?:qty|quantity|pcs|pieces|units|boxes|sq\.?\s*ft)\b`)
	bareNumber   = regexp.MustCompile(`^\D*?(\d+)\D*$`)
)

// ExtractQuantity applies the quantity patterns in priority order: a number
// followed by a unit, then "order/buy/purchase/get N", then "N of this".
func ExtractQuantity(text string) (int, bool) {
	text = utils.Normalize(text)
	for _, p := range quantityPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// BareNumber returns the single number in a short reply such as "5" or
// "5 please". Messages with more than one number yield false.
func BareNumber(text string) (int, bool) {
	m := bareNumber.FindStringSubmatch(utils.Normalize(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func matchQuantity(in matchInput) model.EntitySet {
	if n, ok := ExtractQuantity(in.text); ok {
		return model.EntitySet{Quantity: &n}
	}
	return model.EntitySet{}
}

var (
	orderVerbPattern = regexp.MustCompile(`^(?:please\s+|can i\s+|could i\s+|i(?:'d| would) like to\s+|i want to\s+|i wanna\s+)?(?:quick\s+order|order|buy|purchase)\s+(.+)$`)
	historyWords     = []string{
		"track", "tracking", "status", "history", "last", "previous", "past", "recent",
		"latest", "again", "my order", "my orders", "where is", "shipped", "delivery", "delivered",
	}
	itemStopWords = map[string]bool{
		"a": true, "an": true, "the": true, "some": true, "me": true, "now": true, "please": true,
		"it": true, "this": true, "these": true, "them": true, "that": true, "of": true, "x": true,
		"qty": true, "quantity": true, "pcs": true, "pieces": true, "units": true, "boxes": true,
		"sq": true, "ft": true, "more": true, "for": true, "i": true, "want": true, "to": true,
	}
)

// hasHistoryVocabulary reports whether text talks about existing orders.
func hasHistoryVocabulary(text string) bool {
	return utils.ContainsAny(text, historyWords...)
}

func matchOrderItemName(in matchInput) model.EntitySet {
	if hasHistoryVocabulary(in.text) {
		return model.EntitySet{}
	}
	m := orderVerbPattern.FindStringSubmatch(in.text)
	if m == nil {
		return model.EntitySet{}
	}
	var kept []string
	for _, tok := range utils.Tokens(m[1]) {
		if itemStopWords[tok] || isDigits(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return model.EntitySet{}
	}
	name := strings.Join(kept, " ")
	return model.EntitySet{OrderItemName: &name}
}

func matchTags(in matchInput) model.EntitySet {
	var out model.EntitySet
	for _, a := range utils.TagKeywords {
		if utils.ContainsAny(in.text, a.Phrases...) {
			out = out.WithTag(a.Canonical)
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
