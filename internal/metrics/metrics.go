// Package metrics exposes prometheus counters for the dialogue engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_turns_total",
		Help: "Inbound turns by flow state on arrival",
	}, []string{"flow_state"})

	intentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_intents_total",
		Help: "Classified intents by source",
	}, []string{"intent", "source"}) // source=rules|fallback

	gateVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_gate_verdicts_total",
		Help: "Confidence gate verdicts",
	}, []string{"verdict"}) // verdict=proceed|disambiguate|escalate

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_fallback_total",
		Help: "Generative fallback attempts by outcome",
	}, []string{"outcome"}) // outcome=intent_resolved|entity_extracted|conversational|failure|disabled

	fallbackTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_fallback_tokens_total",
		Help: "Tokens consumed by the generative fallback",
	}, []string{"direction"}) // direction=input|output

	planOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_plan_outcomes_total",
		Help: "Executed call plans by family and outcome",
	}, []string{"family", "outcome"}) // outcome=success|partial|failure|skipped

	variantOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_variant_outcomes_total",
		Help: "Variant resolution outcomes",
	}, []string{"outcome"}) // outcome=resolved|unresolved|not_found|simple

	duplicateOrdersBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbot_duplicate_orders_blocked_total",
		Help: "Order-creating calls skipped by the duplicate-creation guard",
	})

	catalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_catalog_refresh_total",
		Help: "Catalog snapshot refreshes by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	catalogProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderbot_catalog_products",
		Help: "Products in the current catalog snapshot",
	})

	commerceCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderbot_commerce_call_duration_seconds",
		Help:    "Commerce backend call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"}) // status=2xx|4xx|5xx|error
)

// RecordTurn counts an inbound turn.
func RecordTurn(flowState string) {
	turnsTotal.WithLabelValues(flowState).Inc()
}

// RecordIntent counts a classification result.
func RecordIntent(intent, source string) {
	intentsTotal.WithLabelValues(intent, source).Inc()
}

// RecordGateVerdict counts a gate decision.
func RecordGateVerdict(verdict string) {
	gateVerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordFallback counts a fallback attempt and the tokens it used.
func RecordFallback(outcome string, inputTokens, outputTokens int) {
	fallbackTotal.WithLabelValues(outcome).Inc()
	if inputTokens > 0 {
		fallbackTokens.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		fallbackTokens.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// RecordPlan counts an executed plan.
func RecordPlan(family, outcome string) {
	planOutcomesTotal.WithLabelValues(family, outcome).Inc()
}

// RecordVariant counts a variant resolution outcome.
func RecordVariant(outcome string) {
	variantOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordDuplicateOrderBlocked counts a skipped order-creating call.
func RecordDuplicateOrderBlocked() {
	duplicateOrdersBlocked.Inc()
}

// RecordCatalogRefresh counts a refresh and updates the product gauge on success.
func RecordCatalogRefresh(err error, products int) {
	if err != nil {
		catalogRefreshTotal.WithLabelValues("failure").Inc()
		return
	}
	catalogRefreshTotal.WithLabelValues("success").Inc()
	catalogProducts.Set(float64(products))
}

// ObserveCommerceCall records the latency of one backend call. status is the
// HTTP status code, or 0 when the request never completed.
func ObserveCommerceCall(method string, status int, seconds float64) {
	class := "error"
	if status > 0 {
		class = fmt.Sprintf("%dxx", status/100)
	}
	commerceCallDuration.WithLabelValues(method, class).Observe(seconds)
}
