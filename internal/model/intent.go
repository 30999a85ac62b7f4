package model

import (
	"encoding/json"
	"fmt"
)

// Intent is the closed set of actions a message can be classified into.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentGreeting
	IntentReorder
	IntentQuickOrder
	IntentOrderItem
	IntentPlaceOrder
	IntentOrderTracking
	IntentOrderStatus
	IntentOrderHistory
	IntentLastOrder
	IntentSaveForLater
	IntentCouponInquiry
	IntentSaleProducts
	IntentSampleRequest
	IntentChipCard
	IntentProductVariations
	IntentRelatedProducts
	IntentQuickShip
	IntentCategoryBrowse
	IntentCategoryList
	IntentFilterByFinish
	IntentFilterBySize
	IntentFilterByColor
	IntentFilterByThickness
	IntentFilterByOrigin
	IntentFilterByApplication
	IntentSizeList
	IntentFilterByVisual
	IntentFilterByCollectionYear
	IntentMosaicTrim
	IntentProductSearch
	IntentCatalogTypes
	IntentProductList

	intentCount
)

var intentNames = [...]string{
	IntentUnknown:                "unknown",
	IntentGreeting:               "greeting",
	IntentReorder:                "reorder",
	IntentQuickOrder:             "quick_order",
	IntentOrderItem:              "order_item",
	IntentPlaceOrder:             "place_order",
	IntentOrderTracking:          "order_tracking",
	IntentOrderStatus:            "order_status",
	IntentOrderHistory:           "order_history",
	IntentLastOrder:              "last_order",
	IntentSaveForLater:           "save_for_later",
	IntentCouponInquiry:          "coupon_inquiry",
	IntentSaleProducts:           "sale_products",
	IntentSampleRequest:          "sample_request",
	IntentChipCard:               "chip_card",
	IntentProductVariations:      "product_variations",
	IntentRelatedProducts:        "related_products",
	IntentQuickShip:              "quick_ship",
	IntentCategoryBrowse:         "category_browse",
	IntentCategoryList:           "category_list",
	IntentFilterByFinish:         "filter_by_finish",
	IntentFilterBySize:           "filter_by_size",
	IntentFilterByColor:          "filter_by_color",
	IntentFilterByThickness:      "filter_by_thickness",
	IntentFilterByOrigin:         "filter_by_origin",
	IntentFilterByApplication:    "filter_by_application",
	IntentSizeList:               "size_list",
	IntentFilterByVisual:         "filter_by_visual",
	IntentFilterByCollectionYear: "filter_by_collection_year",
	IntentMosaicTrim:             "mosaic_trim",
	IntentProductSearch:          "product_search",
	IntentCatalogTypes:           "catalog_types",
	IntentProductList:            "product_list",
}

func (i Intent) String() string {
	if i < 0 || i >= intentCount {
		return fmt.Sprintf("intent(%d)", int(i))
	}
	return intentNames[i]
}

// ParseIntent maps a canonical intent name back to its value.
func ParseIntent(name string) (Intent, bool) {
	for i, n := range intentNames {
		if n == name {
			return Intent(i), true
		}
	}
	return IntentUnknown, false
}

// AllIntents lists every intent in declaration order.
func AllIntents() []Intent {
	out := make([]Intent, 0, int(intentCount))
	for i := Intent(0); i < intentCount; i++ {
		out = append(out, i)
	}
	return out
}

// MarshalJSON encodes the intent by name.
func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON decodes a canonical intent name. Unrecognised names decode to IntentUnknown.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, _ := ParseIntent(name)
	*i = parsed
	return nil
}

// CreatesOrder reports whether the intent ends in a new order being created.
func (i Intent) CreatesOrder() bool {
	switch i {
	case IntentQuickOrder, IntentOrderItem, IntentPlaceOrder, IntentReorder:
		return true
	}
	return false
}

// NeedsItem reports whether the intent is an order-creation intent that
// must name the item to order.
func (i Intent) NeedsItem() bool {
	switch i {
	case IntentQuickOrder, IntentOrderItem, IntentPlaceOrder:
		return true
	}
	return false
}

// IsProductSearch reports whether the intent targets a specific product and
// therefore needs a product or category reference to be actionable.
func (i Intent) IsProductSearch() bool {
	switch i {
	case IntentProductSearch, IntentProductVariations, IntentRelatedProducts:
		return true
	}
	return false
}

// IsOrderLookup reports whether the intent reads the customer's orders.
func (i Intent) IsOrderLookup() bool {
	switch i {
	case IntentOrderTracking, IntentOrderStatus, IntentOrderHistory, IntentLastOrder:
		return true
	}
	return false
}

// ClassificationResult is the outcome of classifying one message.
// It is never mutated after being produced for a turn.
type ClassificationResult struct {
	Intent     Intent    `json:"intent"`
	Entities   EntitySet `json:"entities"`
	Confidence float64   `json:"confidence"`
	Rule       string    `json:"rule,omitempty"`
	Source     string    `json:"source,omitempty"` // "rules" or "fallback"
}
