package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// Transport executes one call against the commerce backend.
type Transport interface {
	Execute(ctx context.Context, call model.Call) (model.CallResponse, error)
}

// OrderLedger records order creation per (session, turn) across requests,
// so a replayed request cannot create a second order. A claim whose order
// call failed is released so the caller may retry the turn.
type OrderLedger interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Executor failures.
var (
	ErrNoCustomer      = errors.New("plan needs a customer but none is signed in")
	ErrNoProductMatch  = errors.New("no product matched the search")
	ErrEmptyDependency = errors.New("previous call produced nothing to bind")
	ErrCallFailed      = errors.New("remote call failed")
)

const (
	skipReasonEmptyOrder = "previous order has no items"
	skipReasonReplayed   = "order already created for this turn"
)

// DependentCallError reports the stage of a plan that failed and what was
// completed before it.
type DependentCallError struct {
	Family    string
	Stage     string
	Step      int
	Completed []model.StepResult
	Cause     error
}

func (e *DependentCallError) Error() string {
	return fmt.Sprintf("%s plan failed at step %d (%s): %v", e.Family, e.Step, e.Stage, e.Cause)
}

func (e *DependentCallError) Unwrap() error {
	return e.Cause
}

// Partial reports whether some steps succeeded before the failure, e.g. the
// product was resolved but the order was not created.
func (e *DependentCallError) Partial() bool {
	return len(e.Completed) > 0
}

// Identity is who a plan runs for. It is applied only at execution time.
type Identity struct {
	CustomerID *int
	SessionID  string
	TurnID     string
}

// Executor runs plans step by step. It never retries; the first failure stops
// the plan.
type Executor struct {
	transport Transport
	ledger    OrderLedger
	logger    zerolog.Logger
}

// NewExecutor creates an executor. ledger may be nil.
func NewExecutor(transport Transport, ledger OrderLedger, logger zerolog.Logger) *Executor {
	return &Executor{transport: transport, ledger: ledger, logger: logger}
}

// Execute runs plan for ident.
func (x *Executor) Execute(ctx context.Context, plan *model.Plan, ident Identity) (*model.PlanResult, error) {
	if plan.Empty() {
		result := &model.PlanResult{Skipped: true}
		if plan != nil {
			result.Family, result.SkipReason = plan.Family, plan.SkipReason
		}
		metrics.RecordPlan(result.Family, "skipped")
		return result, nil
	}

	result := &model.PlanResult{Family: plan.Family}
	fail := func(step int, stage string, cause error) (*model.PlanResult, error) {
		outcome := "failure"
		if len(result.Steps) > 0 {
			outcome = "partial"
		}
		metrics.RecordPlan(plan.Family, outcome)
		x.logger.Warn().
			Err(cause).
			Str("family", plan.Family).
			Str("stage", stage).
			Int("completed", len(result.Steps)).
			Msg("plan step failed")
		return result, &DependentCallError{
			Family:    plan.Family,
			Stage:     stage,
			Step:      step,
			Completed: append([]model.StepResult(nil), result.Steps...),
			Cause:     cause,
		}
	}

	for i, planned := range plan.Calls {
		call, err := bindIdentity(planned, ident.CustomerID)
		if err != nil {
			return fail(i, planned.Stage, err)
		}

		if i > 0 && call.Bind != model.BindNone {
			prev := result.Steps[len(result.Steps)-1].Data
			if err := applyBinding(&call, prev); err != nil {
				if errors.Is(err, ErrEmptyDependency) && call.Bind == model.BindLineItemsFromOrder {
					result.Skipped, result.SkipReason = true, skipReasonEmptyOrder
					metrics.RecordPlan(plan.Family, "skipped")
					return result, nil
				}
				return fail(i, call.Stage, err)
			}
		}

		claimed := ""
		if call.CreatesOrder && x.ledger != nil && ident.TurnID != "" {
			key := ident.SessionID + ":" + ident.TurnID
			ok, err := x.ledger.Claim(ctx, key)
			if err != nil {
				return fail(i, call.Stage, fmt.Errorf("order ledger: %w", err))
			}
			if !ok {
				metrics.RecordDuplicateOrderBlocked()
				result.Skipped, result.SkipReason = true, skipReasonReplayed
				metrics.RecordPlan(plan.Family, "skipped")
				return result, nil
			}
			claimed = key
		}

		start := time.Now()
		resp, err := x.transport.Execute(ctx, call)
		if err == nil && !resp.Success {
			msg := resp.Error
			if msg == "" {
				msg = "status " + strconv.Itoa(resp.Status)
			}
			err = fmt.Errorf("%w: %s", ErrCallFailed, msg)
		}
		if err != nil {
			if claimed != "" {
				x.release(claimed)
			}
			return fail(i, call.Stage, err)
		}
		x.logger.Debug().
			Str("stage", call.Stage).
			Str("endpoint", call.Endpoint).
			Dur("took", time.Since(start)).
			Msg("plan step done")
		result.Steps = append(result.Steps, model.StepResult{Stage: call.Stage, Endpoint: call.Endpoint, Data: resp.Data})
	}

	metrics.RecordPlan(plan.Family, "success")
	return result, nil
}

// release frees a claim after its order call failed. It runs on a fresh
// context since the request context may be the reason the call failed.
func (x *Executor) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := x.ledger.Release(ctx, key); err != nil {
		x.logger.Error().Err(err).Str("key", key).Msg("failed to release order claim, retries of this turn will be refused")
	}
}

// bindIdentity returns a deep copy of c with every customer placeholder
// replaced by the real id.
func bindIdentity(c model.Call, customerID *int) (model.Call, error) {
	out := c
	needs := strings.Contains(c.Endpoint, model.CustomerPlaceholder)
	for _, v := range c.Params {
		if strings.Contains(v, model.CustomerPlaceholder) {
			needs = true
		}
	}
	if containsPlaceholder(c.Body) {
		needs = true
	}
	if needs && customerID == nil {
		return out, ErrNoCustomer
	}

	id := ""
	if customerID != nil {
		id = strconv.Itoa(*customerID)
	}
	out.Endpoint = strings.ReplaceAll(c.Endpoint, model.CustomerPlaceholder, id)
	if c.Params != nil {
		out.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = strings.ReplaceAll(v, model.CustomerPlaceholder, id)
		}
	}
	if c.Body != nil {
		out.Body, _ = substitute(c.Body, customerID).(map[string]any)
	}
	return out, nil
}

func containsPlaceholder(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.Contains(t, model.CustomerPlaceholder)
	case map[string]any:
		for _, x := range t {
			if containsPlaceholder(x) {
				return true
			}
		}
	case []map[string]any:
		for _, x := range t {
			if containsPlaceholder(x) {
				return true
			}
		}
	case []any:
		for _, x := range t {
			if containsPlaceholder(x) {
				return true
			}
		}
	}
	return false
}

// substitute copies v. A string that is exactly the placeholder becomes the
// numeric id; placeholders inside longer strings become its decimal form.
func substitute(v any, customerID *int) any {
	switch t := v.(type) {
	case string:
		if customerID == nil {
			return t
		}
		if t == model.CustomerPlaceholder {
			return *customerID
		}
		return strings.ReplaceAll(t, model.CustomerPlaceholder, strconv.Itoa(*customerID))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = substitute(x, customerID)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, x := range t {
			out[i], _ = substitute(x, customerID).(map[string]any)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = substitute(x, customerID)
		}
		return out
	default:
		return v
	}
}

// firstObject returns data itself when it is an object, or its first
// element when it is a list.
func firstObject(data json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []map[string]any
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to decode list response: %w", err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return list[0], nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode object response: %w", err)
	}
	return obj, nil
}

func applyBinding(call *model.Call, prev json.RawMessage) error {
	obj, err := firstObject(prev)
	if err != nil {
		return err
	}

	switch call.Bind {
	case model.BindProductFromSearch:
		if obj == nil {
			return ErrNoProductMatch
		}
		id, ok := numberField(obj, "id")
		if !ok {
			return ErrNoProductMatch
		}
		if call.Body == nil {
			call.Body = map[string]any{}
		}
		items, _ := call.Body["line_items"].([]map[string]any)
		if len(items) == 0 {
			items = []map[string]any{{"quantity": 1}}
		}
		items[0]["product_id"] = id
		call.Body["line_items"] = items
		return nil

	case model.BindLineItemsFromOrder:
		if obj == nil {
			return ErrEmptyDependency
		}
		raw, _ := obj["line_items"].([]any)
		var items []map[string]any
		for _, r := range raw {
			li, ok := r.(map[string]any)
			if !ok {
				continue
			}
			pid, ok := numberField(li, "product_id")
			if !ok || pid == 0 {
				continue
			}
			qty, ok := numberField(li, "quantity")
			if !ok || qty <= 0 {
				qty = 1
			}
			var variation *int
			if vid, ok := numberField(li, "variation_id"); ok {
				variation = &vid
			}
			items = append(items, lineItem(pid, qty, variation))
		}
		if len(items) == 0 {
			return ErrEmptyDependency
		}
		if call.Body == nil {
			call.Body = map[string]any{}
		}
		call.Body["line_items"] = items
		return nil
	}
	return nil
}

func numberField(obj map[string]any, key string) (int, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// MemoryLedger is an in-process OrderLedger.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryLedger creates a ledger whose claims expire after ttl.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Claim returns true the first time key is seen within ttl.
func (l *MemoryLedger) Claim(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if at, ok := l.seen[key]; ok && (l.ttl <= 0 || now.Sub(at) < l.ttl) {
		return false, nil
	}
	l.seen[key] = now
	return true, nil
}

// Release forgets key so it can be claimed again.
func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, key)
	return nil
}
