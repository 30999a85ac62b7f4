package model

import "encoding/json"

// CustomerPlaceholder stands in for the current customer's id inside a plan.
// It is replaced only immediately before the plan executes.
const CustomerPlaceholder = "{{current_customer}}"

// Binding says how a call takes a value produced by the previous call.
type Binding int

const (
	BindNone Binding = iota
	// BindProductFromSearch sets the first line item's product id from the
	// first element of the previous call's list response.
	BindProductFromSearch
	// BindLineItemsFromOrder copies the line items of the previous call's
	// order (or first order of a list) into this call's body.
	BindLineItemsFromOrder
)

func (b Binding) String() string {
	switch b {
	case BindProductFromSearch:
		return "product_from_search"
	case BindLineItemsFromOrder:
		return "line_items_from_order"
	default:
		return "none"
	}
}

// MarshalJSON encodes the binding by name.
func (b Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// Call describes one remote request against the commerce backend.
type Call struct {
	Stage        string            `json:"stage"`
	Method       string            `json:"method"`
	Endpoint     string            `json:"endpoint"`
	Params       map[string]string `json:"params,omitempty"`
	Body         map[string]any    `json:"body,omitempty"`
	Bind         Binding           `json:"bind"`
	CreatesOrder bool              `json:"creates_order,omitempty"`
}

// Plan is an ordered list of calls where call N+1 may depend on call N.
type Plan struct {
	Family     string `json:"family"`
	Calls      []Call `json:"calls"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// CreatesOrder reports whether any call in the plan creates an order.
func (p *Plan) CreatesOrder() bool {
	if p == nil {
		return false
	}
	for _, c := range p.Calls {
		if c.CreatesOrder {
			return true
		}
	}
	return false
}

// Empty reports whether there is nothing to execute.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Calls) == 0
}

// CallResponse is what the commerce transport returns for one call.
type CallResponse struct {
	Success bool            `json:"success"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StepResult records one executed call.
type StepResult struct {
	Stage    string          `json:"stage"`
	Endpoint string          `json:"endpoint"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// PlanResult is the outcome of a fully or partly executed plan.
type PlanResult struct {
	Family     string       `json:"family"`
	Steps      []StepResult `json:"steps"`
	Skipped    bool         `json:"skipped,omitempty"`
	SkipReason string       `json:"skip_reason,omitempty"`
}

// Last returns the data of the final executed step.
func (r *PlanResult) Last() json.RawMessage {
	if r == nil || len(r.Steps) == 0 {
		return nil
	}
	return r.Steps[len(r.Steps)-1].Data
}
