package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"orderbot/internal/catalog"
	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// Plan families.
const (
	FamilyLastOrder     = "last_order"
	FamilyOrderHistory  = "order_history"
	FamilyOrderStatus   = "order_status"
	FamilyReorder       = "reorder"
	FamilyQuickOrder    = "quick_order"
	FamilyDialogueOrder = "dialogue_order"
	FamilyCatalog       = "catalog"
	FamilyCustomer      = "customer"
	FamilyVariations    = "variations"
)

// SkipDuplicateOrder is the skip reason of a plan dropped by the turn guard.
const SkipDuplicateOrder = "order creation already scheduled for this turn"

// SkipFlowInProgress is the skip reason of an order plan the classifier
// proposed while the order flow is still collecting details.
const SkipFlowInProgress = "order flow in progress"

// TurnGuard records that an order-creating path has been scheduled in the
// current turn. A new guard is created for every turn.
type TurnGuard struct {
	mu        sync.Mutex
	claimedBy string
}

// Claim marks the turn as creating an order. It returns false when another
// path already claimed it.
func (g *TurnGuard) Claim(by string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimedBy != "" {
		return false
	}
	g.claimedBy = by
	return true
}

// ClaimedBy returns the path holding the claim, or "".
func (g *TurnGuard) ClaimedBy() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claimedBy
}

// Planner builds dependent call plans. Plans carry the customer placeholder;
// the real identity is only applied by the Executor.
type Planner struct {
	historyMax     int
	resultsPerPage int
}

// NewPlanner creates a planner. historyMax caps order history lookups.
func NewPlanner(historyMax, resultsPerPage int) *Planner {
	if historyMax <= 0 {
		historyMax = 10
	}
	if resultsPerPage <= 0 {
		resultsPerPage = 12
	}
	return &Planner{historyMax: historyMax, resultsPerPage: resultsPerPage}
}

// Plan returns the order-family plan for intent, or nil when intent has none.
// An order-creating plan is replaced by an empty, skipped plan when guard was
// already claimed this turn.
func (p *Planner) Plan(intent model.Intent, entities model.EntitySet, pending model.PendingContext, guard *TurnGuard) *model.Plan {
	var plan *model.Plan
	switch intent {
	case model.IntentLastOrder:
		plan = &model.Plan{Family: FamilyLastOrder, Calls: []model.Call{lastOrderCall()}}
	case model.IntentOrderHistory:
		plan = &model.Plan{Family: FamilyOrderHistory, Calls: []model.Call{p.historyCall(entities.OrderCount)}}
	case model.IntentOrderStatus, model.IntentOrderTracking:
		plan = &model.Plan{Family: FamilyOrderStatus, Calls: []model.Call{orderStatusCall(entities.OrderID)}}
	case model.IntentReorder:
		plan = &model.Plan{
			Family: FamilyReorder,
			Calls: []model.Call{
				lastOrderCall(),
				{
					Stage:        "create_order",
					Method:       "POST",
					Endpoint:     "orders",
					Body:         map[string]any{"customer_id": model.CustomerPlaceholder, "status": "pending"},
					Bind:         model.BindLineItemsFromOrder,
					CreatesOrder: true,
				},
			},
		}
	case model.IntentQuickOrder, model.IntentOrderItem, model.IntentPlaceOrder:
		plan = p.itemOrderPlan(entities, pending)
	}
	return guardPlan(plan, guard, "planner")
}

// PendingOrderPlan builds the order the dialogue's createOrder side effect
// asks for, from the echoed pending context.
func (p *Planner) PendingOrderPlan(pending model.PendingContext, effects model.SideEffects, guard *TurnGuard) *model.Plan {
	productID := pending.ProductID
	if productID == nil && pending.LastProduct != nil {
		productID = model.Ptr(pending.LastProduct.ID)
	}
	if productID == nil {
		return &model.Plan{Family: FamilyDialogueOrder, SkipReason: "no pending product"}
	}
	qty := 1
	if pending.Quantity != nil && *pending.Quantity > 0 {
		qty = *pending.Quantity
	}
	body := map[string]any{
		"customer_id": model.CustomerPlaceholder,
		"status":      "pending",
		"line_items":  []map[string]any{lineItem(*productID, qty, pending.VariationID)},
	}
	if effects.UseNewAddress && pending.ShippingAddress != nil {
		body["shipping"] = map[string]any{"address_1": *pending.ShippingAddress}
	}
	plan := &model.Plan{
		Family: FamilyDialogueOrder,
		Calls: []model.Call{{
			Stage:        "create_order",
			Method:       "POST",
			Endpoint:     "orders",
			Body:         body,
			CreatesOrder: true,
		}},
	}
	return guardPlan(plan, guard, "dialogue")
}

// CustomerPlan fetches the current customer's record (shipping address).
func (p *Planner) CustomerPlan() *model.Plan {
	return &model.Plan{
		Family: FamilyCustomer,
		Calls: []model.Call{{
			Stage:    "fetch_customer",
			Method:   "GET",
			Endpoint: "customers/" + model.CustomerPlaceholder,
		}},
	}
}

// VariationsPlan lists a product's variations.
func (p *Planner) VariationsPlan(productID int) *model.Plan {
	return &model.Plan{
		Family: FamilyVariations,
		Calls: []model.Call{{
			Stage:    "list_variations",
			Method:   "GET",
			Endpoint: fmt.Sprintf("products/%d/variations", productID),
			Params:   map[string]string{"per_page": "100"},
		}},
	}
}

func guardPlan(plan *model.Plan, guard *TurnGuard, by string) *model.Plan {
	if plan == nil || !plan.CreatesOrder() || guard == nil {
		return plan
	}
	if !guard.Claim(by) {
		metrics.RecordDuplicateOrderBlocked()
		return &model.Plan{Family: plan.Family, SkipReason: SkipDuplicateOrder}
	}
	return plan
}

func lastOrderCall() model.Call {
	return model.Call{
		Stage:    "lookup_last_order",
		Method:   "GET",
		Endpoint: "orders",
		Params: map[string]string{
			"customer": model.CustomerPlaceholder,
			"per_page": "1",
			"orderby":  "date",
			"order":    "desc",
		},
	}
}

func (p *Planner) historyCall(count *int) model.Call {
	n := 5
	if count != nil && *count > 0 {
		n = *count
	}
	if n > p.historyMax {
		n = p.historyMax
	}
	return model.Call{
		Stage:    "lookup_order_history",
		Method:   "GET",
		Endpoint: "orders",
		Params: map[string]string{
			"customer": model.CustomerPlaceholder,
			"per_page": strconv.Itoa(n),
			"orderby":  "date",
			"order":    "desc",
		},
	}
}

func orderStatusCall(orderID *int) model.Call {
	if orderID == nil {
		c := lastOrderCall()
		c.Stage = "lookup_order_status"
		return c
	}
	return model.Call{
		Stage:    "lookup_order_status",
		Method:   "GET",
		Endpoint: fmt.Sprintf("orders/%d", *orderID),
		Params:   map[string]string{"customer": model.CustomerPlaceholder},
	}
}

func lineItem(productID, qty int, variationID *int) map[string]any {
	item := map[string]any{"product_id": productID, "quantity": qty}
	if variationID != nil && *variationID > 0 {
		item["variation_id"] = *variationID
	}
	return item
}

// itemOrderPlan orders a product by cached reference when one exists, and
// otherwise searches for it by name first.
func (p *Planner) itemOrderPlan(entities model.EntitySet, pending model.PendingContext) *model.Plan {
	qty := 1
	switch {
	case entities.Quantity != nil && *entities.Quantity > 0:
		qty = *entities.Quantity
	case pending.Quantity != nil && *pending.Quantity > 0:
		qty = *pending.Quantity
	}

	create := model.Call{
		Stage:        "create_order",
		Method:       "POST",
		Endpoint:     "orders",
		CreatesOrder: true,
	}

	var cached *int
	switch {
	case entities.ProductID != nil:
		cached = entities.ProductID
	case pending.ProductID != nil:
		cached = pending.ProductID
	case pending.LastProduct != nil && entities.OrderItemName == nil:
		cached = model.Ptr(pending.LastProduct.ID)
	}
	if cached != nil {
		variation := pending.VariationID
		if entities.ProductID != nil && pending.ProductID != nil && *entities.ProductID != *pending.ProductID {
			variation = nil
		}
		create.Body = map[string]any{
			"customer_id": model.CustomerPlaceholder,
			"status":      "pending",
			"line_items":  []map[string]any{lineItem(*cached, qty, variation)},
		}
		return &model.Plan{Family: FamilyQuickOrder, Calls: []model.Call{create}}
	}

	name := ""
	switch {
	case entities.OrderItemName != nil:
		name = *entities.OrderItemName
	case entities.ProductName != nil:
		name = *entities.ProductName
	}
	if strings.TrimSpace(name) == "" {
		return nil
	}
	create.Body = map[string]any{
		"customer_id": model.CustomerPlaceholder,
		"status":      "pending",
		"line_items":  []map[string]any{{"quantity": qty}},
	}
	create.Bind = model.BindProductFromSearch
	return &model.Plan{
		Family: FamilyQuickOrder,
		Calls: []model.Call{
			{
				Stage:    "resolve_product",
				Method:   "GET",
				Endpoint: "products",
				Params:   map[string]string{"search": name, "per_page": "1", "status": "publish"},
			},
			create,
		},
	}
}

// CatalogPlan builds the single read-only call for a catalog intent, or nil
// when the intent is answered without the backend.
func (p *Planner) CatalogPlan(intent model.Intent, entities model.EntitySet, cat catalog.Catalog) *model.Plan {
	var call model.Call
	switch intent {
	case model.IntentCategoryList, model.IntentCatalogTypes:
		call = model.Call{
			Stage:    "list_categories",
			Method:   "GET",
			Endpoint: "products/categories",
			Params:   map[string]string{"per_page": "100", "hide_empty": "true"},
		}
	case model.IntentCouponInquiry:
		call = model.Call{Stage: "list_coupons", Method: "GET", Endpoint: "coupons", Params: map[string]string{"per_page": "10"}}
	case model.IntentProductVariations:
		if entities.ProductID == nil {
			return nil
		}
		return p.VariationsPlan(*entities.ProductID)
	case model.IntentProductSearch, model.IntentRelatedProducts:
		if entities.ProductID != nil {
			call = model.Call{Stage: "get_product", Method: "GET", Endpoint: fmt.Sprintf("products/%d", *entities.ProductID)}
			break
		}
		call = p.productQuery(entities, cat, "")
	case model.IntentSampleRequest:
		call = p.productQuery(entities, cat, "sample")
	case model.IntentMosaicTrim:
		call = p.productQuery(entities, cat, "mosaic")
	case model.IntentCategoryBrowse, model.IntentSaleProducts, model.IntentChipCard, model.IntentQuickShip,
		model.IntentFilterByFinish, model.IntentFilterBySize, model.IntentFilterByColor,
		model.IntentFilterByThickness, model.IntentFilterByOrigin, model.IntentFilterByApplication,
		model.IntentFilterByVisual, model.IntentFilterByCollectionYear, model.IntentProductList:
		call = p.productQuery(entities, cat, "")
	default:
		return nil
	}
	return &model.Plan{Family: FamilyCatalog, Calls: []model.Call{call}}
}

// attribute filters in the order they are tried; the backend takes one.
var queryAttributes = []struct {
	name string
	get  func(model.EntitySet) *string
}{
	{model.AttrFinish, func(e model.EntitySet) *string { return e.Finish }},
	{model.AttrSize, func(e model.EntitySet) *string { return e.Size }},
	{model.AttrColor, func(e model.EntitySet) *string { return e.Color }},
	{model.AttrThickness, func(e model.EntitySet) *string { return e.Thickness }},
	{model.AttrOrigin, func(e model.EntitySet) *string { return e.Origin }},
	{model.AttrApplication, func(e model.EntitySet) *string { return e.Application }},
	{model.AttrVisual, func(e model.EntitySet) *string { return e.Visual }},
	{model.AttrCollectionYear, func(e model.EntitySet) *string { return e.CollectionYear }},
}

func (p *Planner) productQuery(entities model.EntitySet, cat catalog.Catalog, keyword string) model.Call {
	params := map[string]string{
		"per_page": strconv.Itoa(p.resultsPerPage),
		"status":   "publish",
	}
	var search []string
	if entities.CategoryID != nil {
		params["category"] = strconv.Itoa(*entities.CategoryID)
	}
	var tagIDs []string
	for _, t := range entities.Tags {
		if t.ID > 0 {
			tagIDs = append(tagIDs, strconv.Itoa(t.ID))
		}
	}
	if len(tagIDs) > 0 {
		params["tag"] = strings.Join(tagIDs, ",")
	}
	if entities.OnSale != nil && *entities.OnSale {
		params["on_sale"] = "true"
	}

	attributeSet := false
	for _, qa := range queryAttributes {
		v := qa.get(entities)
		if v == nil || *v == "" {
			continue
		}
		if !attributeSet {
			if id, ok := termID(cat, qa.name, *v); ok {
				params["attribute"] = "pa_" + qa.name
				params["attribute_term"] = strconv.Itoa(id)
				attributeSet = true
				continue
			}
		}
		search = append(search, *v)
	}

	switch {
	case entities.ProductName != nil:
		search = append([]string{*entities.ProductName}, search...)
	case entities.OrderItemName != nil:
		search = append([]string{*entities.OrderItemName}, search...)
	}
	if keyword != "" {
		search = append(search, keyword)
	}
	if len(search) > 0 {
		params["search"] = strings.Join(search, " ")
	}
	return model.Call{Stage: "list_products", Method: "GET", Endpoint: "products", Params: params}
}

func termID(cat catalog.Catalog, attr, value string) (int, bool) {
	if cat == nil {
		return 0, false
	}
	for _, t := range cat.LookupAttributeTerms(attr) {
		if strings.EqualFold(t.Name, value) || strings.EqualFold(t.Slug, value) {
			return t.ID, true
		}
	}
	return 0, false
}
