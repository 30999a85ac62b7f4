package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"orderbot/internal/catalog"
	"orderbot/internal/metrics"
	"orderbot/internal/model"
	"orderbot/internal/utils"
)

// Fallback failure causes. They are wrapped in *EscalationError.
var (
	ErrFallbackDisabled  = errors.New("generative fallback disabled")
	ErrFallbackMalformed = errors.New("generative fallback returned malformed output")
)

// EscalationError reports why the generative fallback could not resolve a
// turn. The user always sees the disambiguation menu in that case.
type EscalationError struct {
	Cause error
}

func (e *EscalationError) Error() string {
	return fmt.Sprintf("escalation failed: %v", e.Cause)
}

func (e *EscalationError) Unwrap() error {
	return e.Cause
}

// Fallback reply kinds.
const (
	FallbackIntentResolved  = "intent_resolved"
	FallbackEntityExtracted = "entity_extracted"
	FallbackConversational  = "conversational"
)

// FallbackReply is the JSON object the model must return.
type FallbackReply struct {
	Intent       string          `json:"intent"`
	Entities     model.EntitySet `json:"entities"`
	BotMessage   string          `json:"bot_message"`
	Suggestions  []string        `json:"suggestions"`
	Confidence   float64         `json:"confidence"`
	FallbackType string          `json:"fallback_type"`
}

// Fallback asks a generative model to resolve a message the rules could not.
type Fallback struct {
	client     Completer
	sanitizer  *Sanitizer
	sampleSize int
	logger     zerolog.Logger
}

// NewFallback creates a fallback. A nil or disabled client makes every
// call fail with ErrFallbackDisabled.
func NewFallback(client Completer, sanitizer *Sanitizer, sampleSize int, logger zerolog.Logger) *Fallback {
	if sanitizer == nil {
		sanitizer = NewSanitizer()
	}
	if sampleSize <= 0 {
		sampleSize = 40
	}
	return &Fallback{client: client, sanitizer: sanitizer, sampleSize: sampleSize, logger: logger}
}

// Enabled reports whether a model is configured.
func (f *Fallback) Enabled() bool {
	return f != nil && f.client != nil && f.client.IsEnabled()
}

// Resolve sends the sanitised message with a catalog-only system context and
// decodes the structured reply.
func (f *Fallback) Resolve(ctx context.Context, text string, cat catalog.Catalog) (*FallbackReply, error) {
	if !f.Enabled() {
		metrics.RecordFallback("disabled", 0, 0)
		return nil, &EscalationError{Cause: ErrFallbackDisabled}
	}

	clean := f.sanitizer.Scrub(text)
	completion, err := f.client.Complete(ctx, f.systemPrompt(cat), clean)
	if err != nil {
		metrics.RecordFallback("failure", 0, 0)
		f.logger.Warn().Err(err).Msg("fallback model call failed")
		return nil, &EscalationError{Cause: err}
	}

	var reply FallbackReply
	if err := utils.DecodeModelJSON(completion.Content, &reply); err != nil {
		metrics.RecordFallback("failure", completion.InputTokens, completion.OutputTokens)
		f.logger.Warn().Err(err).Str("content", utils.Truncate(completion.Content, 200)).Msg("failed to parse fallback reply")
		return nil, &EscalationError{Cause: fmt.Errorf("%w: %v", ErrFallbackMalformed, err)}
	}
	if err := validateFallbackReply(&reply); err != nil {
		metrics.RecordFallback("failure", completion.InputTokens, completion.OutputTokens)
		return nil, &EscalationError{Cause: fmt.Errorf("%w: %v", ErrFallbackMalformed, err)}
	}

	metrics.RecordFallback(reply.FallbackType, completion.InputTokens, completion.OutputTokens)
	f.logger.Debug().
		Str("fallback_type", reply.FallbackType).
		Str("intent", reply.Intent).
		Float64("confidence", reply.Confidence).
		Msg("fallback resolved")
	return &reply, nil
}

func validateFallbackReply(r *FallbackReply) error {
	r.FallbackType = strings.ToLower(strings.TrimSpace(r.FallbackType))
	switch r.FallbackType {
	case FallbackIntentResolved, FallbackEntityExtracted:
	case FallbackConversational:
		if strings.TrimSpace(r.BotMessage) == "" {
			return errors.New("conversational reply without bot_message")
		}
	default:
		return fmt.Errorf("unknown fallback_type %q", r.FallbackType)
	}
	if math.IsNaN(r.Confidence) {
		r.Confidence = 0
	}
	r.Confidence = math.Max(0, math.Min(1, r.Confidence))
	return nil
}

func (f *Fallback) systemPrompt(cat catalog.Catalog) string {
	var d model.CatalogDigest
	if cat != nil {
		d = cat.Digest(f.sampleSize)
	}

	var b strings.Builder
	b.WriteString(`You are the order assistant of a tile and stone storefront. The rule-based parser could not understand the customer's message. Classify it and extract entities.

Respond ONLY with a JSON object with these keys:
- fallback_type: one of "intent_resolved", "entity_extracted", "conversational"
- intent: one of `)
	names := make([]string, 0, len(model.AllIntents()))
	for _, in := range model.AllIntents() {
		if in != model.IntentUnknown {
			names = append(names, in.String())
		}
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(`
- entities: object with any of product_name, category_name, finish, color, size, thickness, origin, visual, application, quantity (integer), order_id (integer)
- confidence: number between 0 and 1
- bot_message: a short answer, required when fallback_type is "conversational"
- suggestions: up to 4 short quick replies

Rules:
- Use "conversational" only for questions you can answer without the catalog (opening hours, greetings, thanks).
- Only use names that appear in the catalog lists below.
- If a field is not mentioned, omit it.
`)
	if len(d.CategoryNames) > 0 {
		fmt.Fprintf(&b, "\nCategories: %s\n", strings.Join(d.CategoryNames, ", "))
	}
	if len(d.ProductNames) > 0 {
		fmt.Fprintf(&b, "Products (sample): %s\n", strings.Join(d.ProductNames, ", "))
	}
	for _, attr := range []string{model.AttrFinish, model.AttrColor, model.AttrSize, model.AttrOrigin, model.AttrVisual} {
		if terms := d.Attributes[attr]; len(terms) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", utils.TitleCase(attr), strings.Join(terms, ", "))
		}
	}
	return b.String()
}

// intentSynonyms maps free-form model intent names to the closed set.
var intentSynonyms = map[string]model.Intent{
	"hello":             model.IntentGreeting,
	"greet":             model.IntentGreeting,
	"order_again":       model.IntentReorder,
	"repeat_order":      model.IntentReorder,
	"order":             model.IntentPlaceOrder,
	"buy":               model.IntentPlaceOrder,
	"purchase":          model.IntentPlaceOrder,
	"create_order":      model.IntentPlaceOrder,
	"track_order":       model.IntentOrderTracking,
	"tracking":          model.IntentOrderTracking,
	"check_order":       model.IntentOrderStatus,
	"orders":            model.IntentOrderHistory,
	"history":           model.IntentOrderHistory,
	"wishlist":          model.IntentSaveForLater,
	"coupon":            model.IntentCouponInquiry,
	"discount":          model.IntentSaleProducts,
	"sale":              model.IntentSaleProducts,
	"promotion":         model.IntentSaleProducts,
	"sample":            model.IntentSampleRequest,
	"samples":           model.IntentSampleRequest,
	"variations":        model.IntentProductVariations,
	"related":           model.IntentRelatedProducts,
	"in_stock":          model.IntentQuickShip,
	"browse":            model.IntentCategoryBrowse,
	"browse_category":   model.IntentCategoryBrowse,
	"category":          model.IntentCategoryBrowse,
	"categories":        model.IntentCategoryList,
	"list_categories":   model.IntentCategoryList,
	"sizes":             model.IntentSizeList,
	"search":            model.IntentProductSearch,
	"find_product":      model.IntentProductSearch,
	"product_info":      model.IntentProductSearch,
	"product_details":   model.IntentProductSearch,
	"products":          model.IntentProductList,
	"list_products":     model.IntentProductList,
	"catalog":           model.IntentCatalogTypes,
	"mosaic":            model.IntentMosaicTrim,
	"trim":              model.IntentMosaicTrim,
	"filter":            model.IntentProductList,
	"filter_by_product": model.IntentProductSearch,
}

// RemapIntent turns a model-supplied intent name into the closed set. Names
// that match neither an intent nor a synonym become IntentProductList.
func RemapIntent(name string) model.Intent {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if in, ok := model.ParseIntent(key); ok && in != model.IntentUnknown {
		return in
	}
	if in, ok := intentSynonyms[key]; ok {
		return in
	}
	return model.IntentProductList
}
