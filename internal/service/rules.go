package service

import (
	"regexp"
	"strconv"

	"orderbot/internal/model"
)

var (
	greetingRe     = regexp.MustCompile(`^(?:hi|hello|hey|hiya|howdy|greetings|good (?:morning|afternoon|evening)|yo)(?: there| team| all)?[!.,\s]*$`)
	reorderRe      = regexp.MustCompile(`\b(?:reorder|re-order|order (?:it |that |the same )?again|buy (?:it |that )?again|same (?:order|as last time)|repeat (?:my )?(?:last |previous )?order)\b`)
	trackingRe     = regexp.MustCompile(`\b(?:track|tracking|where is my (?:order|package|parcel|delivery|shipment)|has my order shipped|when will my order (?:arrive|ship)|delivery status|shipping status)\b`)
	statusRe       = regexp.MustCompile(`\b(?:order status|status of (?:my |the )?order|check (?:on )?my order|is my order (?:ready|processing|complete))\b`)
	historyCountRe = regexp.MustCompile(`\b(?:last|past|previous|recent)\s+(\d+)\s+orders\b`)
	historyRe      = regexp.MustCompile(`\b(?:order history|my orders|past orders|previous orders|recent orders|all (?:of )?my orders|orders i (?:have )?(?:placed|made))\b`)
	lastOrderRe    = regexp.MustCompile(`\b(?:last|latest|most recent|previous) order\b`)
	saveLaterRe    = regexp.MustCompile(`\b(?:save (?:it |this |that |them )?for later|wish ?list|add to (?:my )?favou?rites|bookmark)\b`)
	couponRe       = regexp.MustCompile(`\b(?:coupons?|promo codes?|discount codes?|vouchers?)\b`)
	saleRe         = regexp.MustCompile(`\b(?:on sale|sale|clearance|discount(?:ed|s)?|deals?|promotions?|specials?|offers?)\b`)
	sampleRe       = regexp.MustCompile(`\b(?:samples?|swatch(?:es)?)\b`)
	chipCardRe     = regexp.MustCompile(`\b(?:chip ?cards?|chip-cards?|colou?r chips?)\b`)
	variationRe    = regexp.MustCompile(`\b(?:variations?|variants?|options for|what (?:sizes|colou?rs|finishes) (?:does|do|is|are)|come in|comes in|available in)\b`)
	variationWords = regexp.MustCompile(`\b(?:variations?|variants?)\b`)
	relatedRe      = regexp.MustCompile(`\b(?:goes? with|go well with|match(?:es)? with|pairs? (?:well )?with|complements?|related|similar|coordinating)\b`)
	quickShipRe    = regexp.MustCompile(`\b(?:quick ?ship|in stock|ready to ship|ships? (?:fast|quickly|today)|available now|fast shipping)\b`)
	categoryListRe = regexp.MustCompile(`\b(?:categor(?:y|ies)|departments|what do you (?:sell|carry|have)|browse)\b`)
	sizeListRe     = regexp.MustCompile(`\b(?:sizes|dimensions|what size|which size)\b`)
	mosaicTrimRe   = regexp.MustCompile(`\b(?:mosaics?|trims?|bullnose|pencil liners?|liners?|edging|borders?)\b`)
	searchRe       = regexp.MustCompile(`\b(?:search|find|looking for|look for|details|tell me about|info(?:rmation)? (?:on|about)|price of|how much)\b`)
	catalogTypesRe = regexp.MustCompile(`\b(?:types|kinds|catalog|catalogue|materials|product range|range)\b`)
	productListRe  = regexp.MustCompile(`\b(?:tiles?|products?|show me|list|everything|items|what do you have|options)\b`)
)

func textRule(re *regexp.Regexp) func(RuleInput) bool {
	return func(in RuleInput) bool { return re.MatchString(in.Text) }
}

// attrFilter fires when the attribute is set and no product was named, so a
// named-product question is not misread as a generic filter.
func attrFilter(get func(model.EntitySet) *string) func(RuleInput) bool {
	return func(in RuleInput) bool {
		return get(in.Entities) != nil && !in.Entities.HasProduct()
	}
}

func withTag(slug string) func(RuleInput) model.EntitySet {
	return func(in RuleInput) model.EntitySet { return in.Entities.WithTag(slug) }
}

// DefaultRules is the classification table in priority order. The first
// matching row wins; confidences are fixed per row.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "greeting", Intent: model.IntentGreeting, Confidence: 0.99,
			Match: textRule(greetingRe),
		},
		{
			Name: "reorder", Intent: model.IntentReorder, Confidence: 0.95,
			Match: textRule(reorderRe),
			Apply: func(in RuleInput) model.EntitySet {
				out := in.Entities.Clone()
				out.Reorder = model.Ptr(true)
				out.OrderCount = model.Ptr(1)
				return out
			},
		},
		{
			Name: "quick_order", Intent: model.IntentQuickOrder, Confidence: 0.90,
			Match: func(in RuleInput) bool {
				return in.Entities.OrderItemName != nil && !hasHistoryVocabulary(in.Text)
			},
		},
		{
			Name: "order_tracking", Intent: model.IntentOrderTracking, Confidence: 0.93,
			Match: textRule(trackingRe),
		},
		{
			Name: "order_status", Intent: model.IntentOrderStatus, Confidence: 0.92,
			Match: func(in RuleInput) bool {
				return statusRe.MatchString(in.Text) || in.Entities.OrderID != nil
			},
		},
		{
			Name: "order_history_count", Intent: model.IntentOrderHistory, Confidence: 0.92,
			Match: textRule(historyCountRe),
			Apply: func(in RuleInput) model.EntitySet {
				out := in.Entities.Clone()
				m := historyCountRe.FindStringSubmatch(in.Text)
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					out.OrderCount = model.Ptr(n)
				}
				return out
			},
		},
		{
			Name: "order_history", Intent: model.IntentOrderHistory, Confidence: 0.90,
			Match: textRule(historyRe),
		},
		{
			Name: "last_order", Intent: model.IntentLastOrder, Confidence: 0.90,
			Match: textRule(lastOrderRe),
			Apply: func(in RuleInput) model.EntitySet {
				out := in.Entities.Clone()
				out.OrderCount = model.Ptr(1)
				return out
			},
		},
		{
			Name: "save_for_later", Intent: model.IntentSaveForLater, Confidence: 0.90,
			Match: textRule(saveLaterRe),
		},
		{
			Name: "coupon", Intent: model.IntentCouponInquiry, Confidence: 0.90,
			Match: textRule(couponRe),
		},
		{
			Name: "sale", Intent: model.IntentSaleProducts, Confidence: 0.88,
			Match: textRule(saleRe),
			Apply: func(in RuleInput) model.EntitySet {
				out := in.Entities.Clone()
				out.OnSale = model.Ptr(true)
				return out
			},
		},
		{
			Name: "sample_request", Intent: model.IntentSampleRequest, Confidence: 0.90,
			Match: textRule(sampleRe),
		},
		{
			Name: "chip_card", Intent: model.IntentChipCard, Confidence: 0.88,
			Match: textRule(chipCardRe),
			Apply: withTag("chip-card"),
		},
		{
			Name: "product_variations", Intent: model.IntentProductVariations, Confidence: 0.85,
			Match: func(in RuleInput) bool {
				return variationWords.MatchString(in.Text) ||
					(in.Entities.HasProduct() && variationRe.MatchString(in.Text))
			},
		},
		{
			Name: "related_products", Intent: model.IntentRelatedProducts, Confidence: 0.85,
			Match: textRule(relatedRe),
		},
		{
			Name: "quick_ship", Intent: model.IntentQuickShip, Confidence: 0.88,
			Match: textRule(quickShipRe),
			Apply: withTag("quick-ship"),
		},
		{
			Name: "category_browse", Intent: model.IntentCategoryBrowse, Confidence: 0.94,
			Match: func(in RuleInput) bool { return in.Entities.CategoryID != nil },
		},
		{
			Name: "category_list", Intent: model.IntentCategoryList, Confidence: 0.90,
			Match: textRule(categoryListRe),
		},
		{
			Name: "filter_finish", Intent: model.IntentFilterByFinish, Confidence: 0.86,
			Match: attrFilter(func(e model.EntitySet) *string { return e.Finish }),
		},
		{
			Name: "filter_size", Intent: model.IntentFilterBySize, Confidence: 0.85,
			Match: attrFilter(func(e model.EntitySet) *string { return e.Size }),
		},
		{
			Name: "filter_color", Intent: model.IntentFilterByColor, Confidence: 0.85,
			Match: attrFilter(func(e model.EntitySet) *string { return e.Color }),
		},
		{
			Name: "filter_thickness", Intent: model.IntentFilterByThickness, Confidence: 0.84,
			Match: attrFilter(func(e model.EntitySet) *string { return e.Thickness }),
		},
		{
			Name: "filter_origin", Intent: model.IntentFilterByOrigin, Confidence: 0.84,
			Match: attrFilter(func(e model.EntitySet) *string { return e.Origin }),
		},
		{
			Name: "filter_application", Intent: model.IntentFilterByApplication, Confidence: 0.84,
			Match: attrFilter(func(e model.EntitySet) *string { return e.Application }),
		},
		{
			Name: "size_list", Intent: model.IntentSizeList, Confidence: 0.85,
			Match: textRule(sizeListRe),
		},
		{
			Name: "filter_visual", Intent: model.IntentFilterByVisual, Confidence: 0.84,
			Match: func(in RuleInput) bool { return in.Entities.Visual != nil },
		},
		{
			Name: "filter_collection_year", Intent: model.IntentFilterByCollectionYear, Confidence: 0.84,
			Match: func(in RuleInput) bool { return in.Entities.CollectionYear != nil },
		},
		{
			Name: "mosaic_trim", Intent: model.IntentMosaicTrim, Confidence: 0.85,
			Match: textRule(mosaicTrimRe),
		},
		{
			Name: "product_search", Intent: model.IntentProductSearch, Confidence: 0.90,
			Match: func(in RuleInput) bool { return in.Entities.HasProduct() },
		},
		{
			Name: "product_search_keywords", Intent: model.IntentProductSearch, Confidence: 0.80,
			Match: textRule(searchRe),
		},
		{
			Name: "catalog_types", Intent: model.IntentCatalogTypes, Confidence: 0.80,
			Match: textRule(catalogTypesRe),
		},
		{
			Name: "product_list", Intent: model.IntentProductList, Confidence: 0.75,
			Match: textRule(productListRe),
		},
	}
}
