package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"orderbot/internal/catalog"
	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// Verdict is the confidence gate's decision for a turn.
type Verdict string

const (
	VerdictProceed      Verdict = "proceed"
	VerdictDisambiguate Verdict = "disambiguate"
	VerdictEscalate     Verdict = "escalate"
)

// Reasons the gate refuses a rule-based result.
const (
	ReasonUnknownIntent      = "unknown_intent"
	ReasonLowConfidence      = "low_confidence"
	ReasonSearchWithoutRef   = "search_without_reference"
	ReasonOrderWithoutItem   = "order_without_item"
	ReasonFallbackUnresolved = "fallback_unresolved"
)

// DefaultConfidenceThreshold is the minimum rule confidence to proceed.
const DefaultConfidenceThreshold = 0.60

// DisambiguationPrompt is shown whenever the gate cannot resolve a turn.
const DisambiguationPrompt = "I'm not quite sure what you're looking for. What would you like to do?"

var disambiguationSuggestions = [...]string{
	"Browse categories",
	"Search for a product",
	"Place an order",
	"Check my order status",
}

// DisambiguationMenu returns the fixed menu. Every call returns an equal value.
func DisambiguationMenu() *model.Reply {
	return &model.Reply{
		Message:     DisambiguationPrompt,
		Suggestions: append([]string(nil), disambiguationSuggestions[:]...),
	}
}

// GateOutcome is what the engine acts on after gating.
//
// Proceed: Result is the rule-based classification.
// Escalate: the fallback answered; Result carries the merged classification,
// and Reply is set when the model answered conversationally.
// Disambiguate: Reply is the fixed menu and Err says why.
type GateOutcome struct {
	Verdict Verdict
	Reason  string
	Result  model.ClassificationResult
	Reply   *model.Reply
	Err     error
}

// Gate decides whether a classification is good enough to act on.
type Gate struct {
	threshold float64
	fallback  *Fallback
	logger    zerolog.Logger
}

// NewGate creates a gate. fallback may be nil.
func NewGate(threshold float64, fallback *Fallback, logger zerolog.Logger) *Gate {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Gate{threshold: threshold, fallback: fallback, logger: logger}
}

// Check is the pure part of the gate. It returns the empty reason when res
// can be acted on.
func (g *Gate) Check(res model.ClassificationResult, pending model.PendingContext) string {
	switch {
	case res.Intent == model.IntentUnknown:
		return ReasonUnknownIntent
	case res.Confidence < g.threshold:
		return ReasonLowConfidence
	case res.Intent.IsProductSearch() && !res.Entities.HasProduct() && !res.Entities.HasCategory():
		return ReasonSearchWithoutRef
	case res.Intent.NeedsItem() && !hasResolvableItem(res.Entities, pending):
		return ReasonOrderWithoutItem
	}
	return ""
}

func hasResolvableItem(e model.EntitySet, pending model.PendingContext) bool {
	return e.OrderItemName != nil || e.HasProduct() ||
		pending.ProductID != nil || pending.LastProduct != nil
}

// Resolve gates res and, when it is refused, escalates to the fallback. Any
// fallback failure ends in the disambiguation menu.
func (g *Gate) Resolve(ctx context.Context, text string, res model.ClassificationResult, pending model.PendingContext, cat catalog.Catalog) GateOutcome {
	reason := g.Check(res, pending)
	if reason == "" {
		metrics.RecordGateVerdict(string(VerdictProceed))
		return GateOutcome{Verdict: VerdictProceed, Result: res}
	}

	reply, err := g.fallback.Resolve(ctx, text, cat)
	if err != nil {
		return g.menu(res, reason, err)
	}

	if reply.FallbackType == FallbackConversational {
		metrics.RecordGateVerdict(string(VerdictEscalate))
		out := res
		out.Source = SourceFallback
		return GateOutcome{
			Verdict: VerdictEscalate,
			Reason:  reason,
			Result:  out,
			Reply:   &model.Reply{Message: reply.BotMessage, Suggestions: reply.Suggestions},
		}
	}

	merged := mergeFallback(res, reply, cat, g.threshold)
	if again := g.Check(merged, pending); again != "" {
		return g.menu(res, ReasonFallbackUnresolved, &EscalationError{Cause: errors.New(again)})
	}

	metrics.RecordGateVerdict(string(VerdictEscalate))
	metrics.RecordIntent(merged.Intent.String(), SourceFallback)
	return GateOutcome{Verdict: VerdictEscalate, Reason: reason, Result: merged}
}

func (g *Gate) menu(res model.ClassificationResult, reason string, err error) GateOutcome {
	metrics.RecordGateVerdict(string(VerdictDisambiguate))
	g.logger.Debug().Err(err).Str("reason", reason).Str("intent", res.Intent.String()).Msg("showing disambiguation menu")
	return GateOutcome{
		Verdict: VerdictDisambiguate,
		Reason:  reason,
		Result:  res,
		Reply:   DisambiguationMenu(),
		Err:     err,
	}
}

// mergeFallback folds a fallback reply into the rule result. Rule-extracted
// fields are never overwritten. A reply without a confidence is taken at
// the threshold.
func mergeFallback(res model.ClassificationResult, reply *FallbackReply, cat catalog.Catalog, threshold float64) model.ClassificationResult {
	entities := res.Entities.FillMissing(resolveFallbackRefs(reply.Entities, cat))

	intent := res.Intent
	if reply.FallbackType == FallbackIntentResolved || intent == model.IntentUnknown {
		intent = RemapIntent(reply.Intent)
	}
	confidence := reply.Confidence
	if confidence == 0 {
		confidence = threshold
	}
	if reply.FallbackType == FallbackEntityExtracted && res.Confidence > confidence {
		confidence = res.Confidence
	}

	return model.ClassificationResult{
		Intent:     intent,
		Entities:   entities,
		Confidence: confidence,
		Rule:       res.Rule,
		Source:     SourceFallback,
	}
}

// resolveFallbackRefs attaches catalog ids to names the model returned.
func resolveFallbackRefs(e model.EntitySet, cat catalog.Catalog) model.EntitySet {
	out := e.Clone()
	out.ProductID, out.CategoryID = nil, nil
	if cat == nil {
		return out
	}
	if out.ProductName != nil {
		if ref, ok := cat.LookupProductToken(*out.ProductName); ok {
			out.ProductID = model.Ptr(ref.ID)
			out.ProductName = model.Ptr(ref.Name)
			out.ProductSlug = model.Ptr(ref.Slug)
		}
	}
	if out.CategoryName != nil {
		if ref, ok := cat.LookupCategory(*out.CategoryName); ok {
			out.CategoryID = model.Ptr(ref.ID)
			out.CategoryName = model.Ptr(ref.Name)
			out.CategorySlug = model.Ptr(ref.Slug)
		}
	}
	return out
}
