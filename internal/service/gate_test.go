package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/model"
)

func TestGate_Check(t *testing.T) {
	g := NewGate(0, nil, zerolog.Nop())

	tests := []struct {
		name    string
		res     model.ClassificationResult
		pending model.PendingContext
		want    string
	}{
		{"unknown", model.ClassificationResult{Intent: model.IntentUnknown}, model.PendingContext{}, ReasonUnknownIntent},
		{"low confidence", model.ClassificationResult{Intent: model.IntentProductList, Confidence: 0.5}, model.PendingContext{}, ReasonLowConfidence},
		{"at threshold", model.ClassificationResult{Intent: model.IntentProductList, Confidence: 0.6}, model.PendingContext{}, ""},
		{
			"search without reference",
			model.ClassificationResult{Intent: model.IntentProductSearch, Confidence: 0.8},
			model.PendingContext{},
			ReasonSearchWithoutRef,
		},
		{
			"search with category",
			model.ClassificationResult{Intent: model.IntentProductSearch, Confidence: 0.8, Entities: model.EntitySet{CategoryID: model.Ptr(10)}},
			model.PendingContext{},
			"",
		},
		{
			"order without item",
			model.ClassificationResult{Intent: model.IntentPlaceOrder, Confidence: 0.9},
			model.PendingContext{},
			ReasonOrderWithoutItem,
		},
		{
			"order with pending product",
			model.ClassificationResult{Intent: model.IntentPlaceOrder, Confidence: 0.9},
			model.PendingContext{ProductID: model.Ptr(500)},
			"",
		},
		{
			"order with last product",
			model.ClassificationResult{Intent: model.IntentOrderItem, Confidence: 0.9},
			model.PendingContext{LastProduct: &model.ProductRef{ID: 501, Name: "Calacatta Gold"}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Check(tt.res, tt.pending))
		})
	}
}

func TestGate_Resolve_ProceedSkipsFallback(t *testing.T) {
	fc := &fakeCompleter{content: `{"fallback_type":"intent_resolved","intent":"greeting"}`}
	g := NewGate(0, NewFallback(fc, nil, 0, zerolog.Nop()), zerolog.Nop())

	res := model.ClassificationResult{Intent: model.IntentSaleProducts, Confidence: 0.88}
	out := g.Resolve(context.Background(), "what's on sale", res, model.PendingContext{}, testCatalog())

	assert.Equal(t, VerdictProceed, out.Verdict)
	assert.Equal(t, res, out.Result)
	assert.Zero(t, fc.calls)
}

func TestGate_Resolve_DisabledFallbackShowsMenu(t *testing.T) {
	g := NewGate(0, nil, zerolog.Nop())
	out := g.Resolve(context.Background(), "asdf", model.ClassificationResult{}, model.PendingContext{}, testCatalog())

	assert.Equal(t, VerdictDisambiguate, out.Verdict)
	assert.Equal(t, ReasonUnknownIntent, out.Reason)
	assert.Equal(t, DisambiguationMenu(), out.Reply)
	assert.True(t, errors.Is(out.Err, ErrFallbackDisabled))
	var esc *EscalationError
	assert.True(t, errors.As(out.Err, &esc))
}

func TestGate_Resolve_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		err         error
		wantVerdict Verdict
		wantIntent  model.Intent
		wantReply   string
		wantErr     error
	}{
		{
			name:        "intent resolved with catalog product",
			content:     "```json\n{\"fallback_type\":\"intent_resolved\",\"intent\":\"product_info\",\"entities\":{\"product_name\":\"allspice\"},\"confidence\":0.8}\n```",
			wantVerdict: VerdictEscalate,
			wantIntent:  model.IntentProductSearch,
		},
		{
			name:        "conversational",
			content:     `{"fallback_type":"conversational","bot_message":"We ship to the US and Canada.","suggestions":["Browse categories"]}`,
			wantVerdict: VerdictEscalate,
			wantIntent:  model.IntentUnknown,
			wantReply:   "We ship to the US and Canada.",
		},
		{
			name:        "model error",
			err:         errors.New("upstream 503"),
			wantVerdict: VerdictDisambiguate,
			wantIntent:  model.IntentUnknown,
			wantReply:   DisambiguationPrompt,
		},
		{
			name:        "malformed",
			content:     "sorry, I can't help",
			wantVerdict: VerdictDisambiguate,
			wantIntent:  model.IntentUnknown,
			wantReply:   DisambiguationPrompt,
			wantErr:     ErrFallbackMalformed,
		},
		{
			name:        "conversational without message",
			content:     `{"fallback_type":"conversational"}`,
			wantVerdict: VerdictDisambiguate,
			wantIntent:  model.IntentUnknown,
			wantReply:   DisambiguationPrompt,
			wantErr:     ErrFallbackMalformed,
		},
		{
			name:        "still unresolved after merge",
			content:     `{"fallback_type":"intent_resolved","intent":"product_search","confidence":0.9}`,
			wantVerdict: VerdictDisambiguate,
			wantIntent:  model.IntentUnknown,
			wantReply:   DisambiguationPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{content: tt.content, err: tt.err}
			g := NewGate(0, NewFallback(fc, nil, 0, zerolog.Nop()), zerolog.Nop())

			out := g.Resolve(context.Background(), "hmm something", model.ClassificationResult{}, model.PendingContext{}, testCatalog())

			assert.Equal(t, tt.wantVerdict, out.Verdict)
			assert.Equal(t, tt.wantIntent, out.Result.Intent)
			if tt.wantReply != "" {
				require.NotNil(t, out.Reply)
				assert.Equal(t, tt.wantReply, out.Reply.Message)
			}
			if tt.wantErr != nil {
				assert.True(t, errors.Is(out.Err, tt.wantErr), "got %v", out.Err)
			}
			assert.Equal(t, 1, fc.calls)
		})
	}
}

func TestValidateFallbackReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   FallbackReply
		wantErr string
	}{
		{"intent resolved", FallbackReply{FallbackType: " Intent_Resolved ", Confidence: 1.4}, ""},
		{"conversational", FallbackReply{FallbackType: "conversational", BotMessage: "Hi"}, ""},
		{"conversational blank", FallbackReply{FallbackType: "conversational", BotMessage: "  "}, "conversational reply without bot_message"},
		{"unknown type", FallbackReply{FallbackType: "chitchat"}, `unknown fallback_type "chitchat"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.reply
			err := validateFallbackReply(&r)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.LessOrEqual(t, r.Confidence, 1.0)
		})
	}
}

func TestGate_Resolve_MergeKeepsRuleEntities(t *testing.T) {
	fc := &fakeCompleter{content: `{"fallback_type":"entity_extracted","entities":{"finish":"Honed","color":"White","category_name":"Floor Tiles"},"confidence":0.2}`}
	g := NewGate(0, NewFallback(fc, nil, 0, zerolog.Nop()), zerolog.Nop())

	res := model.ClassificationResult{
		Intent:     model.IntentFilterByFinish,
		Confidence: 0.5,
		Entities:   model.EntitySet{Finish: model.Ptr("Polished")},
	}
	out := g.Resolve(context.Background(), "polished stuff", res, model.PendingContext{}, testCatalog())

	// rule confidence 0.5 is kept and is still under threshold
	assert.Equal(t, VerdictDisambiguate, out.Verdict)

	merged := mergeFallback(res, &FallbackReply{
		FallbackType: FallbackEntityExtracted,
		Entities:     model.EntitySet{Finish: model.Ptr("Honed"), CategoryName: model.Ptr("Floor Tiles")},
		Confidence:   0.7,
	}, testCatalog(), DefaultConfidenceThreshold)
	assert.Equal(t, model.IntentFilterByFinish, merged.Intent)
	assert.Equal(t, "Polished", *merged.Entities.Finish)
	require.NotNil(t, merged.Entities.CategoryID)
	assert.Equal(t, 11, *merged.Entities.CategoryID)
	assert.Equal(t, 0.7, merged.Confidence)
	assert.Equal(t, SourceFallback, merged.Source)
}

func TestFallback_SanitizesBeforeSending(t *testing.T) {
	fc := &fakeCompleter{content: `{"fallback_type":"conversational","bot_message":"ok"}`}
	f := NewFallback(fc, nil, 0, zerolog.Nop())

	_, err := f.Resolve(context.Background(), "email me at a.b@example.com or 555-123-4567", testCatalog())
	require.NoError(t, err)
	require.Len(t, fc.users, 1)
	assert.NotContains(t, fc.users[0], "example.com")
	assert.NotContains(t, fc.users[0], "555-123-4567")
	assert.Contains(t, fc.users[0], "[EMAIL]")
}

func TestRemapIntent(t *testing.T) {
	assert.Equal(t, model.IntentProductSearch, RemapIntent("product_search"))
	assert.Equal(t, model.IntentPlaceOrder, RemapIntent(" BUY "))
	assert.Equal(t, model.IntentOrderTracking, RemapIntent("track_order"))
	assert.Equal(t, model.IntentProductList, RemapIntent("no_such_intent"))
}

func TestDisambiguationMenu_Fixed(t *testing.T) {
	a, b := DisambiguationMenu(), DisambiguationMenu()
	assert.Equal(t, a, b)
	require.Len(t, a.Suggestions, 4)
	a.Suggestions[0] = "mutated"
	assert.Equal(t, "Browse categories", DisambiguationMenu().Suggestions[0])
}
