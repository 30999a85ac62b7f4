package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// ErrEmptyMessage is returned for a turn without any text.
var ErrEmptyMessage = errors.New("message is empty")

// TurnLogger persists a record of every handled turn.
type TurnLogger interface {
	LogTurn(ctx context.Context, rec *model.TurnRecord) error
}

const (
	msgNoCustomerAddress = "I don't have a shipping address on file. " + msgAskNewAddress
	msgCallFailed        = "Sorry, I couldn't reach the store just now. Please try again in a moment."
	msgPartialOrder      = "I found the product but couldn't place the order. Nothing was charged; please try again."
	msgNoProductFound    = "I couldn't find a product matching that name. Try searching for it first."
	msgVariantNotFound   = "Sorry, none of the options for %s are available right now."
	msgAlreadyOrdered    = "That order has already been placed."
	msgEmptyLastOrder    = "Your last order has no items I can repeat."
)

// ChatService runs the engine and carries out what it decided: side effects
// first, then the turn's plan.
type ChatService struct {
	engine    *Engine
	executor  *Executor
	sanitizer *Sanitizer
	turns     TurnLogger
	logger    zerolog.Logger
}

// NewChatService creates a chat service. turns may be nil.
func NewChatService(engine *Engine, executor *Executor, turns TurnLogger, logger zerolog.Logger) *ChatService {
	return &ChatService{
		engine:    engine,
		executor:  executor,
		sanitizer: NewSanitizer(),
		turns:     turns,
		logger:    logger,
	}
}

// EmitFunc receives progress events while a turn is handled.
type EmitFunc func(event string, data any) error

// Handle processes one inbound message end to end.
func (s *ChatService) Handle(ctx context.Context, in model.TurnInput) (*model.ChatResponse, error) {
	return s.HandleStream(ctx, in, nil)
}

// HandleStream is Handle with progress events: "turn" once the engine has
// decided, and "plan" right before a plan is executed. emit may be nil.
// Emit errors are logged and never stop the turn, since a plan may already be
// creating an order.
func (s *ChatService) HandleStream(ctx context.Context, in model.TurnInput, emit EmitFunc) (*model.ChatResponse, error) {
	start := time.Now()
	if strings.TrimSpace(in.Message) == "" {
		return nil, ErrEmptyMessage
	}
	send := func(event string, data any) {
		if emit == nil {
			return
		}
		if err := emit(event, data); err != nil {
			s.logger.Debug().Err(err).Str("event", event).Msg("failed to emit event")
		}
	}

	out := s.engine.HandleTurn(ctx, in)
	send("turn", out)
	ident := Identity{CustomerID: in.UserContext.CustomerID, SessionID: in.SessionID, TurnID: in.TurnID}

	resp := &model.ChatResponse{
		TurnID:        in.TurnID,
		Intent:        out.Intent,
		Confidence:    out.Confidence,
		Entities:      out.Entities,
		Verdict:       out.Verdict,
		Reply:         out.Reply,
		NextFlowState: out.NextFlowState,
		Pending:       out.Pending,
		SideEffects:   out.SideEffects,
		Plan:          out.Plan,
	}

	switch {
	case out.SideEffects.FetchCustomerAddress:
		s.fetchAddress(ctx, ident, resp)
	case out.SideEffects.ResolveVariant:
		s.resolveVariant(ctx, ident, out, resp)
	}

	if resp.Plan != nil {
		plan := resp.Plan
		if out.SideEffects.CreateOrder && out.SideEffects.UseExistingAddress {
			plan = s.withCustomerShipping(ctx, ident, plan)
		}
		send("plan", plan)
		s.runPlan(ctx, plan, ident, resp)
	}

	resp.TookMs = time.Since(start).Milliseconds()
	s.logTurn(in, out, resp.TookMs)
	return resp, nil
}

func (s *ChatService) runPlan(ctx context.Context, plan *model.Plan, ident Identity, resp *model.ChatResponse) {
	result, err := s.executor.Execute(ctx, plan, ident)
	resp.Result = result
	if err != nil {
		resp.Error = &model.CallFailure{Message: err.Error()}
		var dep *DependentCallError
		if errors.As(err, &dep) {
			resp.Partial = dep.Partial()
			resp.Error.Stage = dep.Stage
			resp.Error.Completed = len(dep.Completed)
		}
		resp.Reply = failureReply(err, resp.Partial)
		return
	}
	if result.Skipped {
		switch result.SkipReason {
		case skipReasonReplayed, SkipDuplicateOrder:
			resp.Reply = reply(msgAlreadyOrdered)
		case skipReasonEmptyOrder:
			resp.Reply = reply(msgEmptyLastOrder)
			resp.NextFlowState = model.StateAwaitingAnythingElse
		}
		return
	}
	if plan.CreatesOrder() {
		resp.Reply = orderPlacedReply(result.Last())
		resp.Pending = resp.Pending.Reset()
	}
}

func failureReply(err error, partial bool) *model.Reply {
	switch {
	case errors.Is(err, ErrNoCustomer):
		return reply(msgSignIn)
	case errors.Is(err, ErrNoProductMatch):
		return reply(msgNoProductFound)
	case partial:
		return reply(msgPartialOrder)
	}
	return reply(msgCallFailed)
}

func orderPlacedReply(data json.RawMessage) *model.Reply {
	obj, err := firstObject(data)
	if err != nil || obj == nil {
		return reply("Your order has been placed.", "Thanks", "Browse categories")
	}
	msg := "Your order has been placed."
	if id, ok := numberField(obj, "id"); ok {
		msg = fmt.Sprintf("Your order #%d has been placed.", id)
	}
	if total, ok := obj["total"].(string); ok && total != "" {
		msg += " Total: $" + total + "."
	}
	return reply(msg, "Thanks", "Browse categories")
}

// fetchAddress looks up the signed-in customer's shipping address for the
// confirmation step.
func (s *ChatService) fetchAddress(ctx context.Context, ident Identity, resp *model.ChatResponse) {
	addr, err := s.customerShipping(ctx, ident)
	if err != nil && !errors.Is(err, ErrNoCustomer) {
		s.logger.Warn().Err(err).Str("session_id", ident.SessionID).Msg("failed to fetch customer address")
	}
	if err != nil || addr.IsZero() {
		resp.NextFlowState = model.StateAwaitingNewAddress
		resp.Reply = reply(msgNoCustomerAddress)
		return
	}
	resp.NextFlowState = model.StateAwaitingShippingConfirm
	resp.Reply = reply(
		fmt.Sprintf("Ship to:\n%s\nShall I use this address?", FormatAddress(addr)),
		"Use this address", "Change address", "Cancel",
	)
}

func (s *ChatService) customerShipping(ctx context.Context, ident Identity) (model.ShippingAddress, error) {
	if ident.CustomerID == nil {
		return model.ShippingAddress{}, ErrNoCustomer
	}
	result, err := s.executor.Execute(ctx, s.engine.Planner().CustomerPlan(), ident)
	if err != nil {
		return model.ShippingAddress{}, err
	}
	var customer struct {
		Shipping model.ShippingAddress `json:"shipping"`
		Billing  model.ShippingAddress `json:"billing"`
	}
	if err := json.Unmarshal(result.Last(), &customer); err != nil {
		return model.ShippingAddress{}, fmt.Errorf("failed to decode customer: %w", err)
	}
	if customer.Shipping.IsZero() {
		return customer.Billing, nil
	}
	return customer.Shipping, nil
}

// withCustomerShipping copies plan with the customer's address on file set as
// the order's shipping block. The plan is returned unchanged when the lookup
// fails; the backend then falls back to the customer's defaults.
func (s *ChatService) withCustomerShipping(ctx context.Context, ident Identity, plan *model.Plan) *model.Plan {
	if plan.Empty() {
		return plan
	}
	addr, err := s.customerShipping(ctx, ident)
	if err != nil || addr.IsZero() {
		return plan
	}
	out := *plan
	out.Calls = append([]model.Call(nil), plan.Calls...)
	for i, c := range out.Calls {
		if !c.CreatesOrder {
			continue
		}
		body := make(map[string]any, len(c.Body)+1)
		for k, v := range c.Body {
			body[k] = v
		}
		body["shipping"] = addr
		out.Calls[i].Body = body
	}
	return &out
}

// FormatAddress renders an address over several lines.
func FormatAddress(a model.ShippingAddress) string {
	var lines []string
	if name := strings.TrimSpace(a.FirstName + " " + a.LastName); name != "" {
		lines = append(lines, name)
	}
	lines = append(lines, a.Address1)
	if a.Address2 != "" {
		lines = append(lines, a.Address2)
	}
	city := strings.TrimSpace(strings.Join(nonEmpty(a.City, strings.TrimSpace(a.State+" "+a.Postcode)), ", "))
	if city != "" {
		lines = append(lines, city)
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	return strings.Join(lines, "\n")
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveVariant fetches the pending product's variations and narrows them
// with the turn's filters and raw text.
func (s *ChatService) resolveVariant(ctx context.Context, ident Identity, out model.TurnOutput, resp *model.ChatResponse) {
	pending := resp.Pending
	if pending.ProductID == nil {
		resp.NextFlowState = model.StateIdle
		resp.Pending = pending.Reset()
		resp.Reply = DisambiguationMenu()
		return
	}
	name := pending.PendingProductName()

	cands, err := s.listVariations(ctx, ident, *pending.ProductID)
	if err != nil {
		metrics.RecordVariant("error")
		resp.Error = &model.CallFailure{Message: err.Error(), Stage: "list_variations"}
		resp.Reply = reply(msgCallFailed)
		return
	}

	chosen, err := ResolveVariant(cands, out.VariantFilters, out.RawText)
	var unresolved *VariantUnresolvedError
	switch {
	case err == nil:
		metrics.RecordVariant("resolved")
		pending.VariationID = model.Ptr(chosen.ID)
		resp.Pending = pending
		s.askQuantity(resp, fmt.Sprintf("%s (%s)", name, DescribeVariant(chosen)))

	case errors.Is(err, ErrSimpleProduct):
		metrics.RecordVariant("simple")
		pending.VariationID = nil
		resp.Pending = pending
		s.askQuantity(resp, name)

	case errors.As(err, &unresolved):
		metrics.RecordVariant("unresolved")
		resp.NextFlowState = model.StateAwaitingVariantSelection
		resp.Reply = variantMenu(name, unresolved.Remaining)

	default:
		metrics.RecordVariant("not_found")
		resp.NextFlowState = model.StateAwaitingAnythingElse
		resp.Pending = pending.Reset()
		resp.Reply = reply(fmt.Sprintf(msgVariantNotFound, name), "Browse categories", "No, that's all")
	}
}

func (s *ChatService) listVariations(ctx context.Context, ident Identity, productID int) ([]model.VariantCandidate, error) {
	result, err := s.executor.Execute(ctx, s.engine.Planner().VariationsPlan(productID), ident)
	if err != nil {
		return nil, err
	}
	return ParseVariations(result.Last())
}

// askQuantity moves to the quantity prompt, or straight to confirmation when
// the quantity was given earlier.
func (s *ChatService) askQuantity(resp *model.ChatResponse, label string) {
	if q := resp.Pending.Quantity; q != nil && *q > 0 {
		resp.NextFlowState = model.StateAwaitingOrderConfirm
		resp.Reply = reply(fmt.Sprintf("You'd like %d of %s. Shall I place the order?", *q, label), "Yes, place order", "Cancel")
		return
	}
	resp.NextFlowState = model.StateAwaitingQuantity
	resp.Reply = reply(fmt.Sprintf("How many of %s would you like?", label))
}

const maxVariantSuggestions = 6

func variantMenu(name string, cands []model.VariantCandidate) *model.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "%s comes in several options. Which one would you like?", name)
	space := model.AttributeSpace(cands)
	keys := make([]string, 0, len(space))
	for k := range space {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", DescribeKey(k), strings.Join(space[k], ", "))
	}
	var suggestions []string
	for i, c := range cands {
		if i == maxVariantSuggestions {
			break
		}
		suggestions = append(suggestions, DescribeVariant(c))
	}
	return &model.Reply{Message: b.String(), Suggestions: suggestions}
}

// ParseVariations decodes a variations listing into candidates. Attribute
// names are kept as the backend sends them.
func ParseVariations(data json.RawMessage) ([]model.VariantCandidate, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []struct {
		ID          int             `json:"id"`
		Purchasable *bool           `json:"purchasable"`
		Price       json.RawMessage `json:"price"`
		Attributes  []struct {
			Name   string `json:"name"`
			Slug   string `json:"slug"`
			Option string `json:"option"`
		} `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode variations: %w", err)
	}
	out := make([]model.VariantCandidate, 0, len(raw))
	for _, r := range raw {
		c := model.VariantCandidate{
			ID:          r.ID,
			Attributes:  make(map[string]string, len(r.Attributes)),
			Purchasable: r.Purchasable == nil || *r.Purchasable,
			Price:       priceString(r.Price),
		}
		for _, a := range r.Attributes {
			key := a.Name
			if a.Slug != "" {
				key = a.Slug
			}
			if key == "" || a.Option == "" {
				continue
			}
			c.Attributes[key] = a.Option
		}
		out = append(out, c)
	}
	return out, nil
}

func priceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func (s *ChatService) logTurn(in model.TurnInput, out model.TurnOutput, took int64) {
	if s.turns == nil {
		return
	}
	rec := &model.TurnRecord{
		SessionID:  in.SessionID,
		TurnID:     in.TurnID,
		Message:    s.sanitizer.Scrub(in.Message),
		Intent:     out.Intent.String(),
		Confidence: out.Confidence,
		Verdict:    out.Verdict,
		FlowState:  string(in.UserContext.FlowState.OrDefault()),
		NextState:  string(out.NextFlowState),
		Entities:   model.EntitiesToJSONMap(out.Entities),
		TookMs:     took,
		CreatedAt:  time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.turns.LogTurn(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("session_id", rec.SessionID).Msg("failed to log turn")
		}
	}()
}
