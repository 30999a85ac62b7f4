package model

// ChatResponse is the result of one handled turn, including what was
// executed against the commerce backend.
type ChatResponse struct {
	TurnID        string         `json:"turn_id"`
	Intent        Intent         `json:"intent"`
	Confidence    float64        `json:"confidence"`
	Entities      EntitySet      `json:"entities"`
	Verdict       string         `json:"verdict,omitempty"`
	Reply         *Reply         `json:"reply,omitempty"`
	NextFlowState FlowState      `json:"next_flow_state"`
	Pending       PendingContext `json:"pending_context"`
	SideEffects   SideEffects    `json:"side_effects"`
	Plan          *Plan          `json:"plan,omitempty"`
	Result        *PlanResult    `json:"result,omitempty"`
	Error         *CallFailure   `json:"error,omitempty"`
	Partial       bool           `json:"partial,omitempty"`
	TookMs        int64          `json:"took_ms"`
}

// CallFailure describes a backend call that stopped a plan. Completed is
// the number of steps that succeeded before it.
type CallFailure struct {
	Message   string `json:"message"`
	Stage     string `json:"stage,omitempty"`
	Completed int    `json:"completed"`
}

// ShippingAddress is the subset of a customer's shipping block an order needs.
type ShippingAddress struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
}

// IsZero reports whether no street address is on file.
func (a ShippingAddress) IsZero() bool {
	return a.Address1 == ""
}
