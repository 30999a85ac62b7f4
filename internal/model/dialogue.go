package model

// FlowState is the stage of a multi-turn flow. The caller persists it and
// echoes it back on every request.
type FlowState string

const (
	StateIdle                     FlowState = "idle"
	StateAwaitingIntentChoice     FlowState = "awaiting_intent_choice"
	StateAwaitingProductOrCat     FlowState = "awaiting_product_or_category"
	StateShowingResults           FlowState = "showing_results"
	StateAwaitingQuantity         FlowState = "awaiting_quantity"
	StateAwaitingOrderConfirm     FlowState = "awaiting_order_confirm"
	StateAwaitingShippingConfirm  FlowState = "awaiting_shipping_confirm"
	StateAwaitingNewAddress       FlowState = "awaiting_new_address"
	StateAwaitingAddressConfirm   FlowState = "awaiting_address_confirm"
	StateOrderComplete            FlowState = "order_complete"
	StateAwaitingAnythingElse     FlowState = "awaiting_anything_else"
	StateClosing                  FlowState = "closing"
	StateAwaitingVariantSelection FlowState = "awaiting_variant_selection"
)

var flowStates = map[FlowState]bool{
	StateIdle:                     true,
	StateAwaitingIntentChoice:     true,
	StateAwaitingProductOrCat:     true,
	StateShowingResults:           true,
	StateAwaitingQuantity:         true,
	StateAwaitingOrderConfirm:     true,
	StateAwaitingShippingConfirm:  true,
	StateAwaitingNewAddress:       true,
	StateAwaitingAddressConfirm:   true,
	StateOrderComplete:            true,
	StateAwaitingAnythingElse:     true,
	StateClosing:                  true,
	StateAwaitingVariantSelection: true,
}

// Valid reports whether s is one of the known flow states.
func (s FlowState) Valid() bool {
	return flowStates[s]
}

// OrDefault returns s, or idle when s is empty or unknown.
func (s FlowState) OrDefault() FlowState {
	if !s.Valid() {
		return StateIdle
	}
	return s
}

// ProductRef is a lightweight product reference kept between turns.
type ProductRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// PendingContext is the small piece of flow state the client echoes back.
// The engine keeps nothing between calls except what arrives here.
type PendingContext struct {
	ProductID       *int        `json:"pending_product_id,omitempty"`
	ProductName     *string     `json:"pending_product_name,omitempty"`
	Quantity        *int        `json:"pending_quantity,omitempty"`
	VariationID     *int        `json:"pending_variation_id,omitempty"`
	ShippingAddress *string     `json:"pending_shipping_address,omitempty"`
	LastProduct     *ProductRef `json:"last_product,omitempty"`
}

// IsZero reports whether nothing is pending.
func (p PendingContext) IsZero() bool {
	return p.ProductID == nil && p.ProductName == nil && p.Quantity == nil &&
		p.VariationID == nil && p.ShippingAddress == nil && p.LastProduct == nil
}

// Reset clears the order flow fields but keeps the last product reference
// so follow-up questions can still refer to it.
func (p PendingContext) Reset() PendingContext {
	return PendingContext{LastProduct: p.LastProduct}
}

// PendingProductName returns the best available name for the pending product.
func (p PendingContext) PendingProductName() string {
	if p.ProductName != nil && *p.ProductName != "" {
		return *p.ProductName
	}
	if p.LastProduct != nil && p.LastProduct.Name != "" {
		return p.LastProduct.Name
	}
	return "this item"
}

// SideEffects tell the caller which stateful action to perform before the
// turn's message is final.
type SideEffects struct {
	FetchCustomerAddress bool   `json:"fetch_customer_address,omitempty"`
	CreateOrder          bool   `json:"create_order,omitempty"`
	UseExistingAddress   bool   `json:"use_existing_address,omitempty"`
	UseNewAddress        bool   `json:"use_new_address,omitempty"`
	ResolveVariant       bool   `json:"resolve_variant,omitempty"`
	OverrideMessage      string `json:"override_message,omitempty"`
}

// Any reports whether at least one caller action is requested.
func (s SideEffects) Any() bool {
	return s.FetchCustomerAddress || s.CreateOrder || s.ResolveVariant || s.OverrideMessage != ""
}

// UserContext is the caller-supplied per-session context.
type UserContext struct {
	CustomerID *int      `json:"customer_id,omitempty"`
	FlowState  FlowState `json:"flow_state"`
	PendingContext
}

// TurnInput is one inbound message.
type TurnInput struct {
	Message     string      `json:"message" binding:"required"`
	SessionID   string      `json:"session_id" binding:"required"`
	TurnID      string      `json:"turn_id,omitempty"`
	UserContext UserContext `json:"user_context"`
}

// Reply is a user-visible bot message with optional quick replies.
type Reply struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// TurnOutput is everything the engine decided for one turn.
type TurnOutput struct {
	Intent         Intent         `json:"intent"`
	Entities       EntitySet      `json:"entities"`
	Confidence     float64        `json:"confidence"`
	Verdict        string         `json:"verdict,omitempty"`
	NextFlowState  FlowState      `json:"next_flow_state"`
	Pending        PendingContext `json:"pending_context"`
	Reply          *Reply         `json:"reply,omitempty"`
	SideEffects    SideEffects    `json:"side_effects"`
	Plan           *Plan          `json:"plan,omitempty"`
	SkippedPlans   []*Plan        `json:"skipped_plans,omitempty"`
	VariantFilters EntitySet      `json:"-"`
	RawText        string         `json:"-"`
}
