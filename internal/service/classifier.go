package service

import (
	"orderbot/internal/model"
	"orderbot/internal/utils"
)

// RuleInput is what a rule predicate is evaluated against.
type RuleInput struct {
	Text     string // normalised message
	Entities model.EntitySet
}

// Rule is one row of the classification table. Apply, when set, derives the
// entity set that is returned with the intent.
type Rule struct {
	Name       string
	Intent     model.Intent
	Confidence float64
	Match      func(in RuleInput) bool
	Apply      func(in RuleInput) model.EntitySet
}

// FirstMatch returns the index of the first rule whose predicate holds, or -1.
func FirstMatch(rules []Rule, in RuleInput) int {
	for i, r := range rules {
		if r.Match(in) {
			return i
		}
	}
	return -1
}

// Classifier maps a message and its entities to exactly one intent by
// walking an ordered rule table. It keeps no state between calls.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier over DefaultRules.
func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewClassifierWithRules returns a classifier over a custom table.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the first matching rule's intent and confidence. When no
// rule matches the result is IntentUnknown with confidence 0.
func (c *Classifier) Classify(text string, entities model.EntitySet) model.ClassificationResult {
	in := RuleInput{Text: utils.Normalize(text), Entities: entities.Clone()}
	i := FirstMatch(c.rules, in)
	if i < 0 {
		return model.ClassificationResult{
			Intent:   model.IntentUnknown,
			Entities: in.Entities,
			Source:   SourceRules,
		}
	}
	r := c.rules[i]
	out := in.Entities
	if r.Apply != nil {
		out = r.Apply(in)
	}
	return model.ClassificationResult{
		Intent:     r.Intent,
		Entities:   out,
		Confidence: r.Confidence,
		Rule:       r.Name,
		Source:     SourceRules,
	}
}

// Classification sources.
const (
	SourceRules    = "rules"
	SourceFallback = "fallback"
)
