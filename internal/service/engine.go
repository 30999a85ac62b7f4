package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"orderbot/internal/catalog"
	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// CatalogSource hands out the current catalog snapshot.
type CatalogSource interface {
	Current() *catalog.Snapshot
}

// VerdictDialogue marks turns answered by the dialogue machine alone.
const VerdictDialogue = "dialogue"

const (
	msgGreeting      = "Hi! I can help you browse tiles, find a product, place an order or check on an order."
	msgSignIn        = "Please sign in so I can look up your orders."
	msgOrderLookup   = "Let me look that up for you."
	msgReorder       = "Placing a repeat of your last order."
	msgQuickOrder    = "Placing your order now."
	msgSaveForLater  = "You can save any product to your wishlist with the heart icon on its page."
	msgNoSizes       = "I couldn't load our size list right now. Try asking for a specific size, like 24x48."
	msgCouponInquiry = "Here are the promotions currently available."
)

// Engine runs one turn: dialogue machine, then extraction, classification
// and gating, then planning. It never executes remote calls except through
// the gate's generative fallback.
type Engine struct {
	extractor  *Extractor
	classifier *Classifier
	gate       *Gate
	machine    *Machine
	planner    *Planner
	catalog    CatalogSource
	logger     zerolog.Logger
}

// NewEngine wires the pipeline.
func NewEngine(extractor *Extractor, classifier *Classifier, gate *Gate, machine *Machine, planner *Planner, cat CatalogSource, logger zerolog.Logger) *Engine {
	return &Engine{
		extractor:  extractor,
		classifier: classifier,
		gate:       gate,
		machine:    machine,
		planner:    planner,
		catalog:    cat,
		logger:     logger,
	}
}

// Planner returns the engine's planner.
func (e *Engine) Planner() *Planner {
	return e.planner
}

// Catalog returns the snapshot current at the time of the call.
func (e *Engine) Catalog() *catalog.Snapshot {
	if e.catalog == nil {
		return nil
	}
	return e.catalog.Current()
}

// HandleTurn decides everything for one inbound message. State is taken
// only from in.UserContext.
func (e *Engine) HandleTurn(ctx context.Context, in model.TurnInput) model.TurnOutput {
	state := in.UserContext.FlowState.OrDefault()
	pending := in.UserContext.PendingContext
	metrics.RecordTurn(string(state))

	cat := e.Catalog()
	guard := &TurnGuard{}
	out := model.TurnOutput{
		Intent:        model.IntentUnknown,
		NextFlowState: state,
		Pending:       pending,
	}

	t, handled := e.machine.Transition(state, in.Message, pending)
	if !handled {
		// a flow abandoned by fallthrough does not leak into the new query
		e.runPipeline(ctx, in.Message, pending.Reset(), in.UserContext.CustomerID, cat, guard, &out)
		return out
	}

	out.Verdict = VerdictDialogue
	out.NextFlowState = t.NextState
	out.Pending = t.Pending
	out.SideEffects = t.SideEffects
	out.Reply = t.Reply

	if t.SideEffects.CreateOrder {
		out.Plan = e.planner.PendingOrderPlan(t.Pending, t.SideEffects, guard)
	}
	if t.SideEffects.ResolveVariant {
		// free text only narrows a reply to the option menu
		out.VariantFilters = e.extractor.Extract(in.Message, cat)
		out.RawText = in.Message
	}
	if !t.PassThrough {
		return out
	}

	if override := t.SideEffects.OverrideMessage; override != "" {
		e.runPipeline(ctx, override, t.Pending, in.UserContext.CustomerID, cat, guard, &out)
		return out
	}

	// The caller still performs the side effects. The classifier runs so the
	// turn is labelled, but only its order plans are considered. They go
	// through the same guard when the machine creates the order this turn,
	// and are never run while the flow is still collecting details.
	entities := e.extractor.Extract(in.Message, cat)
	res := e.classifier.Classify(in.Message, entities)
	out.Intent, out.Entities, out.Confidence = res.Intent, res.Entities, res.Confidence
	if res.Intent.CreatesOrder() && e.gate.Check(res, t.Pending) == "" {
		plan := e.planner.Plan(res.Intent, res.Entities, t.Pending, guard)
		if !t.SideEffects.CreateOrder && !plan.Empty() {
			plan = &model.Plan{Family: plan.Family, SkipReason: SkipFlowInProgress}
		}
		e.attachPlan(&out, plan)
	}
	return out
}

// attachPlan sets plan as the turn's plan, or records it as skipped.
func (e *Engine) attachPlan(out *model.TurnOutput, plan *model.Plan) {
	if plan == nil {
		return
	}
	if plan.Empty() {
		out.SkippedPlans = append(out.SkippedPlans, plan)
		e.logger.Info().Str("family", plan.Family).Str("reason", plan.SkipReason).Msg("plan skipped")
		return
	}
	if out.Plan != nil {
		out.SkippedPlans = append(out.SkippedPlans, plan)
		return
	}
	out.Plan = plan
}

func (e *Engine) runPipeline(ctx context.Context, text string, pending model.PendingContext, customerID *int, cat *catalog.Snapshot, guard *TurnGuard, out *model.TurnOutput) {
	entities := e.extractor.Extract(text, cat)
	res := e.classifier.Classify(text, entities)
	metrics.RecordIntent(res.Intent.String(), res.Source)

	g := e.gate.Resolve(ctx, text, res, pending, cat)
	res = g.Result
	res.Entities = ResolveTags(res.Entities, cat)

	out.Verdict = string(g.Verdict)
	out.Intent, out.Entities, out.Confidence = res.Intent, res.Entities, res.Confidence
	out.Pending = pending
	out.NextFlowState = model.StateIdle

	switch {
	case g.Verdict == VerdictDisambiguate:
		out.Reply = g.Reply
		out.NextFlowState = model.StateAwaitingIntentChoice
		return
	case g.Reply != nil:
		out.Reply = g.Reply
		return
	}

	e.act(res, pending, customerID, cat, guard, out)
}

// act turns a gated classification into a reply, a next state and a plan.
func (e *Engine) act(res model.ClassificationResult, pending model.PendingContext, customerID *int, cat *catalog.Snapshot, guard *TurnGuard, out *model.TurnOutput) {
	entities := res.Entities
	if ref, ok := productRef(entities); ok {
		out.Pending.LastProduct = &ref
	}

	switch {
	case res.Intent == model.IntentGreeting:
		out.Reply = &model.Reply{Message: msgGreeting, Suggestions: DisambiguationMenu().Suggestions}

	case res.Intent == model.IntentSaveForLater:
		out.Reply = &model.Reply{Message: msgSaveForLater}

	case res.Intent == model.IntentSizeList:
		out.Reply = sizeListReply(cat)

	case res.Intent.IsOrderLookup():
		if customerID == nil {
			out.Reply = &model.Reply{Message: msgSignIn}
			return
		}
		e.attachPlan(out, e.planner.Plan(res.Intent, entities, pending, guard))
		out.Reply = &model.Reply{Message: msgOrderLookup}

	case res.Intent == model.IntentReorder:
		if customerID == nil {
			out.Reply = &model.Reply{Message: msgSignIn}
			return
		}
		e.attachPlan(out, e.planner.Plan(res.Intent, entities, pending, guard))
		out.NextFlowState = model.StateOrderComplete
		out.Reply = &model.Reply{Message: msgReorder}

	case res.Intent.NeedsItem():
		e.actOrder(res, pending, customerID, cat, guard, out)

	default:
		plan := e.planner.CatalogPlan(res.Intent, entities, cat)
		if plan == nil {
			out.Reply = DisambiguationMenu()
			out.NextFlowState = model.StateAwaitingIntentChoice
			return
		}
		e.attachPlan(out, plan)
		out.NextFlowState = model.StateShowingResults
		out.Reply = &model.Reply{Message: catalogMessage(res.Intent, entities)}
	}
}

// actOrder handles the order-by-item intents. A product known to the catalog
// goes through variant resolution and the confirmation states. An item only
// known by name is searched for, and ordered directly when a quantity was
// given.
func (e *Engine) actOrder(res model.ClassificationResult, pending model.PendingContext, customerID *int, cat *catalog.Snapshot, guard *TurnGuard, out *model.TurnOutput) {
	entities := res.Entities

	ref, known := productRef(entities)
	if !known && entities.OrderItemName == nil {
		switch {
		case pending.ProductID != nil:
			ref, known = model.ProductRef{ID: *pending.ProductID, Name: pending.PendingProductName()}, true
		case pending.LastProduct != nil:
			ref, known = *pending.LastProduct, true
		}
	}

	if known {
		next := pending.Reset()
		next.ProductID = model.Ptr(ref.ID)
		next.ProductName = model.Ptr(ref.Name)
		next.LastProduct = &ref
		next.Quantity = entities.Quantity
		out.Pending = next
		out.NextFlowState = model.StateAwaitingVariantSelection
		out.SideEffects.ResolveVariant = true
		out.VariantFilters = entities
		out.Reply = &model.Reply{Message: fmt.Sprintf("Let me check the options for %s.", ref.Name)}
		return
	}

	if entities.Quantity != nil {
		if customerID == nil {
			out.Reply = &model.Reply{Message: "Please sign in to place an order."}
			return
		}
		if plan := e.planner.Plan(res.Intent, entities, pending, guard); plan != nil {
			e.attachPlan(out, plan)
			out.NextFlowState = model.StateOrderComplete
			out.Pending = pending.Reset()
			out.Reply = &model.Reply{Message: msgQuickOrder}
			return
		}
	}

	search := entities
	search.Quantity = nil
	e.attachPlan(out, e.planner.CatalogPlan(model.IntentProductSearch, search, cat))
	out.NextFlowState = model.StateShowingResults
	name := ""
	if entities.OrderItemName != nil {
		name = *entities.OrderItemName
	}
	out.Reply = &model.Reply{Message: fmt.Sprintf("Here's what I found for %q. Which one would you like to order?", name)}
}

func productRef(e model.EntitySet) (model.ProductRef, bool) {
	if e.ProductID == nil {
		return model.ProductRef{}, false
	}
	ref := model.ProductRef{ID: *e.ProductID}
	if e.ProductName != nil {
		ref.Name = *e.ProductName
	}
	if e.ProductSlug != nil {
		ref.Slug = *e.ProductSlug
	}
	return ref, true
}

// ResolveTags fills tag ids from the catalog. Unknown slugs keep id 0.
func ResolveTags(e model.EntitySet, cat catalog.Catalog) model.EntitySet {
	if len(e.Tags) == 0 || cat == nil {
		return e
	}
	out := e.Clone()
	for i, t := range out.Tags {
		if t.ID != 0 {
			continue
		}
		if id, ok := cat.LookupTag(t.Slug); ok {
			out.Tags[i].ID = id
		}
	}
	return out
}

func sizeListReply(cat catalog.Catalog) *model.Reply {
	var terms []model.Term
	if cat != nil {
		terms = cat.LookupAttributeTerms(model.AttrSize)
	}
	if len(terms) == 0 {
		return &model.Reply{Message: msgNoSizes}
	}
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return &model.Reply{Message: "We stock these sizes: " + strings.Join(names, ", ") + "."}
}

func catalogMessage(intent model.Intent, e model.EntitySet) string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	switch intent {
	case model.IntentCategoryBrowse:
		return fmt.Sprintf("Here are our %s products.", deref(e.CategoryName))
	case model.IntentCategoryList, model.IntentCatalogTypes:
		return "Here are our product categories."
	case model.IntentCouponInquiry:
		return msgCouponInquiry
	case model.IntentSaleProducts:
		return "Here's what's on sale right now."
	case model.IntentSampleRequest:
		return "Here are the samples available."
	case model.IntentChipCard:
		return "Here are our chip cards."
	case model.IntentQuickShip:
		return "These items are in stock and ready to ship."
	case model.IntentProductVariations:
		return fmt.Sprintf("Here are the options for %s.", deref(e.ProductName))
	case model.IntentRelatedProducts:
		return "Here are products that go well together."
	case model.IntentProductSearch:
		if e.ProductName != nil {
			return fmt.Sprintf("Here are the details for %s.", *e.ProductName)
		}
		return "Here's what I found."
	case model.IntentMosaicTrim:
		return "Here are our mosaics and trims."
	}
	var filters []string
	for _, v := range e.Attributes() {
		filters = append(filters, v)
	}
	if e.Application != nil {
		filters = append(filters, *e.Application)
	}
	if e.CollectionYear != nil {
		filters = append(filters, *e.CollectionYear)
	}
	if len(filters) == 0 {
		return "Here are some of our products."
	}
	sort.Strings(filters)
	return "Here are our " + strings.Join(filters, ", ") + " products."
}
