// Package catalog holds the read-only catalog snapshot the extractor reads
// from, and the machinery that refreshes it.
package catalog

import (
	"sort"
	"strings"
	"time"

	"orderbot/internal/model"
	"orderbot/internal/utils"
)

// Catalog is the lookup contract the extractor depends on. Implementations
// return empty results rather than failing when nothing is loaded.
type Catalog interface {
	LookupCategory(text string) (model.CategoryRef, bool)
	LookupTag(slugOrKeyword string) (int, bool)
	LookupAttributeTerms(attribute string) []model.Term
	LookupProductToken(text string) (model.ProductRef, bool)
	Digest(productLimit int) model.CatalogDigest
}

// Snapshot is an immutable, pre-indexed view of the catalog. A nil *Snapshot
// behaves like an empty catalog.
type Snapshot struct {
	categories []indexedCategory
	tagsBySlug map[string]int
	tagsByName map[string]int
	terms      map[string][]model.Term
	products   []indexedProduct
	tokens     map[string]model.ProductRef
	stats      model.CatalogStats
}

type indexedCategory struct {
	ref     model.CategoryRef
	phrases []string
}

type indexedProduct struct {
	ref  model.ProductRef
	name string
}

var _ Catalog = (*Snapshot)(nil)

// vocabularyWords are attribute words; a product sharing one must be named in full.
var vocabularyWords = func() map[string]bool {
	words := make(map[string]bool)
	for _, table := range [][]utils.Alias{utils.Finishes, utils.Colors, utils.Visuals, utils.Origins, utils.Applications} {
		for _, a := range table {
			for _, p := range a.Phrases {
				for _, w := range utils.Tokens(p) {
					words[w] = true
				}
			}
		}
	}
	return words
}()

// genericWords never identify a single product on their own.
var genericWords = map[string]bool{
	"tile": true, "tiles": true, "porcelain": true, "ceramic": true, "glass": true,
	"stone": true, "natural": true, "collection": true, "series": true, "look": true,
	"mosaic": true, "mosaics": true, "trim": true, "bullnose": true, "sample": true,
	"order": true, "with": true, "from": true, "this": true, "that": true, "these": true,
	"floor": true, "wall": true, "matte": true, "polished": true, "honed": true,
	"inch": true, "inches": true, "plank": true, "planks": true, "hexagon": true,
	"subway": true, "square": true, "large": true, "small": true, "format": true,
}

// NewSnapshot indexes data for lookups. Categories without products are
// skipped; longer names are matched before shorter ones.
func NewSnapshot(data model.CatalogData) *Snapshot {
	s := &Snapshot{
		tagsBySlug: make(map[string]int, len(data.Tags)),
		tagsByName: make(map[string]int, len(data.Tags)),
		terms:      make(map[string][]model.Term),
		tokens:     make(map[string]model.ProductRef),
		stats: model.CatalogStats{
			Categories: len(data.Categories),
			Tags:       len(data.Tags),
			Terms:      len(data.Terms),
			Products:   len(data.Products),
			LoadedAt:   data.LoadedAt,
		},
	}

	for _, c := range data.Categories {
		if c.Count <= 0 || strings.TrimSpace(c.Name) == "" {
			continue
		}
		phrases := []string{utils.Normalize(c.Name)}
		if slug := strings.ReplaceAll(c.Slug, "-", " "); slug != "" && slug != phrases[0] {
			phrases = append(phrases, slug)
		}
		if n := phrases[0]; len(n) > 3 && strings.HasSuffix(n, "s") {
			phrases = append(phrases, strings.TrimSuffix(n, "s"))
		}
		s.categories = append(s.categories, indexedCategory{
			ref:     model.CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug},
			phrases: phrases,
		})
	}
	sort.SliceStable(s.categories, func(i, j int) bool {
		return len(s.categories[i].phrases[0]) > len(s.categories[j].phrases[0])
	})

	for _, t := range data.Tags {
		s.tagsBySlug[strings.ToLower(t.Slug)] = t.ID
		s.tagsByName[utils.Normalize(t.Name)] = t.ID
	}

	for _, t := range data.Terms {
		key := attributeKey(t.Attribute)
		s.terms[key] = append(s.terms[key], t)
	}
	for key := range s.terms {
		terms := s.terms[key]
		sort.SliceStable(terms, func(i, j int) bool { return len(terms[i].Name) > len(terms[j].Name) })
	}

	counts := make(map[string]int)
	for _, p := range data.Products {
		name := utils.Normalize(p.Name)
		if name == "" {
			continue
		}
		ref := model.ProductRef{ID: p.ID, Name: p.Name, Slug: p.Slug}
		s.products = append(s.products, indexedProduct{ref: ref, name: name})
		for _, tok := range uniqueTokens(name) {
			counts[tok]++
			s.tokens[tok] = ref
		}
	}
	for tok, n := range counts {
		if n > 1 || len(tok) < 4 || genericWords[tok] || vocabularyWords[tok] || isNumeric(tok) {
			delete(s.tokens, tok)
		}
	}
	sort.SliceStable(s.products, func(i, j int) bool { return len(s.products[i].name) > len(s.products[j].name) })

	return s
}

// Empty returns a snapshot with nothing loaded.
func Empty() *Snapshot {
	return NewSnapshot(model.CatalogData{})
}

// LookupCategory finds the first category whose name occurs in text.
func (s *Snapshot) LookupCategory(text string) (model.CategoryRef, bool) {
	if s == nil {
		return model.CategoryRef{}, false
	}
	for _, c := range s.categories {
		if utils.ContainsAny(text, c.phrases...) {
			return c.ref, true
		}
	}
	return model.CategoryRef{}, false
}

// LookupTag resolves a tag slug or name to its id.
func (s *Snapshot) LookupTag(slugOrKeyword string) (int, bool) {
	if s == nil {
		return 0, false
	}
	key := strings.ToLower(strings.TrimSpace(slugOrKeyword))
	if id, ok := s.tagsBySlug[key]; ok {
		return id, true
	}
	if id, ok := s.tagsByName[utils.Normalize(strings.ReplaceAll(key, "-", " "))]; ok {
		return id, true
	}
	return 0, false
}

// LookupAttributeTerms returns the terms of an attribute, longest name first.
// "pa_finish" and "finish" address the same attribute.
func (s *Snapshot) LookupAttributeTerms(attribute string) []model.Term {
	if s == nil {
		return nil
	}
	terms := s.terms[attributeKey(attribute)]
	if len(terms) == 0 {
		return nil
	}
	return append([]model.Term(nil), terms...)
}

// LookupProductToken finds a product whose full name occurs in text, or
// failing that, a product owning a distinctive word of text.
func (s *Snapshot) LookupProductToken(text string) (model.ProductRef, bool) {
	if s == nil {
		return model.ProductRef{}, false
	}
	for _, p := range s.products {
		if utils.ContainsPhrase(text, p.name) {
			return p.ref, true
		}
	}
	for _, tok := range utils.Tokens(text) {
		if ref, ok := s.tokens[tok]; ok {
			return ref, true
		}
	}
	return model.ProductRef{}, false
}

// Digest returns catalog vocabulary for the generative model. It never
// contains customer data.
func (s *Snapshot) Digest(productLimit int) model.CatalogDigest {
	d := model.CatalogDigest{Attributes: make(map[string][]string)}
	if s == nil {
		return d
	}
	for i, p := range s.products {
		if productLimit > 0 && i >= productLimit {
			break
		}
		d.ProductNames = append(d.ProductNames, p.ref.Name)
	}
	for _, c := range s.categories {
		d.CategoryNames = append(d.CategoryNames, c.ref.Name)
	}
	sort.Strings(d.CategoryNames)
	for key, terms := range s.terms {
		names := make([]string, 0, len(terms))
		for _, t := range terms {
			names = append(names, t.Name)
		}
		sort.Strings(names)
		d.Attributes[key] = names
	}
	return d
}

// Stats reports what the snapshot was built from.
func (s *Snapshot) Stats() model.CatalogStats {
	if s == nil {
		return model.CatalogStats{}
	}
	return s.stats
}

// LoadedAt reports when the snapshot's data was read.
func (s *Snapshot) LoadedAt() time.Time {
	return s.Stats().LoadedAt
}

func attributeKey(attribute string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(attribute)), "pa_")
}

func uniqueTokens(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range utils.Tokens(s) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != 'x' && r != '.' && r != '/' {
			return false
		}
	}
	return true
}
