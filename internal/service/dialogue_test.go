package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/model"
)

func orderPending() model.PendingContext {
	return model.PendingContext{
		ProductID:   model.Ptr(501),
		ProductName: model.Ptr("Calacatta Gold"),
		LastProduct: &model.ProductRef{ID: 501, Name: "Calacatta Gold"},
	}
}

func TestMachine_Transitions(t *testing.T) {
	m := NewMachine()

	tests := []struct {
		name        string
		state       model.FlowState
		msg         string
		pending     model.PendingContext
		wantState   model.FlowState
		wantEffects model.SideEffects
		wantPass    bool
	}{
		{"choice product", model.StateAwaitingIntentChoice, "Search for a product", model.PendingContext{}, model.StateAwaitingProductOrCat, model.SideEffects{}, false},
		{"choice category", model.StateAwaitingIntentChoice, "Browse categories", model.PendingContext{}, model.StateIdle, model.SideEffects{OverrideMessage: browseCategoriesText}, true},
		{"choice order", model.StateAwaitingIntentChoice, "Place an order", model.PendingContext{}, model.StateAwaitingProductOrCat, model.SideEffects{}, false},
		{"quantity number", model.StateAwaitingQuantity, "5", orderPending(), model.StateAwaitingOrderConfirm, model.SideEffects{}, false},
		{"quantity reprompt", model.StateAwaitingQuantity, "hmm not sure", orderPending(), model.StateAwaitingQuantity, model.SideEffects{}, false},
		{"quantity cancel", model.StateAwaitingQuantity, "cancel", orderPending(), model.StateAwaitingAnythingElse, model.SideEffects{}, false},
		{"confirm yes", model.StateAwaitingOrderConfirm, "yes please", orderPending(), model.StateAwaitingShippingConfirm, model.SideEffects{FetchCustomerAddress: true}, true},
		{"confirm cancel wins", model.StateAwaitingOrderConfirm, "no, cancel", orderPending(), model.StateAwaitingAnythingElse, model.SideEffects{}, false},
		{"confirm reprompt", model.StateAwaitingOrderConfirm, "what?", orderPending(), model.StateAwaitingOrderConfirm, model.SideEffects{}, false},
		{"shipping use", model.StateAwaitingShippingConfirm, "use this address", orderPending(), model.StateOrderComplete, model.SideEffects{CreateOrder: true, UseExistingAddress: true}, true},
		{"shipping change", model.StateAwaitingShippingConfirm, "change address", orderPending(), model.StateAwaitingNewAddress, model.SideEffects{}, false},
		{"shipping cancel", model.StateAwaitingShippingConfirm, "cancel", orderPending(), model.StateAwaitingAnythingElse, model.SideEffects{}, false},
		{"address entered", model.StateAwaitingNewAddress, "12 Main St, Springfield", orderPending(), model.StateAwaitingAddressConfirm, model.SideEffects{}, false},
		{"address cancel", model.StateAwaitingNewAddress, "cancel", orderPending(), model.StateAwaitingAnythingElse, model.SideEffects{}, false},
		{"address confirm", model.StateAwaitingAddressConfirm, "yes", orderPending(), model.StateOrderComplete, model.SideEffects{CreateOrder: true, UseNewAddress: true}, true},
		{"address reenter", model.StateAwaitingAddressConfirm, "re-enter", orderPending(), model.StateAwaitingNewAddress, model.SideEffects{}, false},
		{"anything else no", model.StateAwaitingAnythingElse, "no thanks", model.PendingContext{}, model.StateClosing, model.SideEffects{}, false},
		{"anything else yes", model.StateAwaitingAnythingElse, "yes", model.PendingContext{}, model.StateAwaitingIntentChoice, model.SideEffects{}, false},
		{"anything else sign-off", model.StateAwaitingAnythingElse, "no that's all, thanks", model.PendingContext{}, model.StateClosing, model.SideEffects{}, false},
		{"order complete thanks", model.StateOrderComplete, "thank you!", orderPending(), model.StateAwaitingAnythingElse, model.SideEffects{}, false},
		{"variant pick", model.StateAwaitingVariantSelection, "the polished one", orderPending(), model.StateAwaitingVariantSelection, model.SideEffects{ResolveVariant: true}, true},
		{"variant cancel", model.StateAwaitingVariantSelection, "never mind", orderPending(), model.StateAwaitingAnythingElse, model.SideEffects{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Transition(tt.state, tt.msg, tt.pending)
			require.True(t, ok)
			assert.Equal(t, tt.wantState, got.NextState)
			assert.Equal(t, tt.wantEffects, got.SideEffects)
			assert.Equal(t, tt.wantPass, got.PassThrough)
		})
	}
}

func TestMachine_FallThrough(t *testing.T) {
	m := NewMachine()

	tests := []struct {
		name  string
		state model.FlowState
		msg   string
	}{
		{"idle", model.StateIdle, "show me tiles"},
		{"unknown state", model.FlowState("bogus"), "yes"},
		{"empty state", "", "yes"},
		{"showing results", model.StateShowingResults, "order 3 of these"},
		{"product or category", model.StateAwaitingProductOrCat, "calacatta gold"},
		{"intent choice unrecognised", model.StateAwaitingIntentChoice, "wood look tiles"},
		{"anything else new query", model.StateAwaitingAnythingElse, "yes, show me wall tiles in white"},
		{"anything else query with no", model.StateAwaitingAnythingElse, "i have no idea which tile, show me wall tiles"},
		{"order complete new query", model.StateOrderComplete, "show my order history"},
		{"variant topic change", model.StateAwaitingVariantSelection, "browse categories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := m.Transition(tt.state, tt.msg, orderPending())
			assert.False(t, ok)
		})
	}
}

func TestMachine_QuantityReplyNamesProduct(t *testing.T) {
	got, ok := NewMachine().Transition(model.StateAwaitingQuantity, "12", orderPending())
	require.True(t, ok)
	require.NotNil(t, got.Pending.Quantity)
	assert.Equal(t, 12, *got.Pending.Quantity)
	assert.Contains(t, got.Reply.Message, "12 of Calacatta Gold")
}

func TestMachine_AddressKeptVerbatim(t *testing.T) {
	got, ok := NewMachine().Transition(model.StateAwaitingNewAddress, "  12 Main St, Springfield IL 62701 ", orderPending())
	require.True(t, ok)
	require.NotNil(t, got.Pending.ShippingAddress)
	assert.Equal(t, "12 Main St, Springfield IL 62701", *got.Pending.ShippingAddress)
	assert.Contains(t, got.Reply.Message, "12 Main St, Springfield IL 62701")
}

func TestMachine_ReenterClearsAddress(t *testing.T) {
	p := orderPending()
	p.ShippingAddress = model.Ptr("wrong place")
	got, ok := NewMachine().Transition(model.StateAwaitingAddressConfirm, "that's wrong", p)
	require.True(t, ok)
	assert.Equal(t, model.StateAwaitingNewAddress, got.NextState)
	assert.Nil(t, got.Pending.ShippingAddress)
	assert.Equal(t, 501, *got.Pending.ProductID)
}

func TestMachine_CancelResetsPendingButKeepsLastProduct(t *testing.T) {
	got, ok := NewMachine().Transition(model.StateAwaitingOrderConfirm, "cancel", orderPending())
	require.True(t, ok)
	assert.Nil(t, got.Pending.ProductID)
	assert.Nil(t, got.Pending.Quantity)
	require.NotNil(t, got.Pending.LastProduct)
	assert.Equal(t, 501, got.Pending.LastProduct.ID)
}

func TestMachine_Deterministic(t *testing.T) {
	m := NewMachine()
	a, okA := m.Transition(model.StateAwaitingOrderConfirm, "yes", orderPending())
	b, okB := m.Transition(model.StateAwaitingOrderConfirm, "yes", orderPending())
	assert.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}
