package service

import (
	"fmt"
	"strings"

	"orderbot/internal/model"
	"orderbot/internal/utils"
)

// Transition is the dialogue machine's answer for one turn. PassThrough means
// the caller still has work to do (the side effects) and the classifier may
// still run.
type Transition struct {
	NextState   model.FlowState
	Pending     model.PendingContext
	SideEffects model.SideEffects
	PassThrough bool
	Reply       *model.Reply
}

// Keyword buckets. Matching is on word boundaries of the normalised message.
var (
	choiceProductWords  = []string{"product", "products", "info", "information", "search", "find"}
	choiceCategoryWords = []string{"category", "categories", "browse"}
	choiceOrderWords    = []string{"order", "place", "buy", "purchase"}
	restartWords        = []string{"yes", "yeah", "yep", "start again", "start over", "restart", "menu"}
	confirmWords        = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "confirmed", "correct", "proceed", "go ahead", "sounds good", "place it", "place order", "place the order", "do it", "use this", "use that", "that's fine", "looks good", "right"}
	cancelWords         = []string{"cancel", "stop", "no", "nope", "never mind", "nevermind", "abort", "forget it"}
	changeAddressWords  = []string{"change", "new address", "different address", "another address", "update address", "other address"}
	reenterWords        = []string{"re-enter", "reenter", "re enter", "wrong", "incorrect", "edit", "fix", "try again", "change"}
	negativeWords       = []string{"no", "nope", "nothing", "that's all", "thats all", "that's it", "i'm done", "im done", "bye", "goodbye", "no thanks", "all good"}
	affirmativeWords    = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "please", "yes please"}
	thanksWords         = []string{"thank", "thanks", "thank you", "thx", "cheers", "ty"}
	topicChangeWords    = []string{"browse", "category", "categories", "my orders", "order status", "track", "tracking", "order history", "last order", "hello", "hi", "hey", "start over", "main menu", "something else"}
)

// Messages shown by the machine.
const (
	msgAskProduct        = "Sure. Which product or category are you interested in?"
	msgAskOrderProduct   = "Happy to help you order. Which product would you like?"
	msgCancelled         = "No problem, I've cancelled that. Is there anything else I can help you with?"
	msgFetchingAddress   = "Great, let me check your shipping address."
	msgPlacingOrder      = "Placing your order now."
	msgAskNewAddress     = "Please type the full shipping address you'd like to use."
	msgFarewell          = "Thanks for shopping with us. Goodbye!"
	msgYoureWelcome      = "You're welcome! Is there anything else I can help you with?"
	msgReenterAddress    = "No problem. Please type the correct shipping address."
	msgConfirmOrRetry    = "Please reply \"yes\" to confirm or \"cancel\" to stop."
	msgShippingReprompt  = "Reply \"yes\" to ship to this address, \"change\" to use a new one, or \"cancel\"."
	msgAddressReprompt   = "Reply \"yes\" if the address is correct, \"re-enter\" to fix it, or \"cancel\"."
	browseCategoriesText = "show me all categories"
)

type stateHandler func(text string, pending model.PendingContext) *Transition

// Machine is the dialogue state machine. It is a deterministic function of
// (state, message, pending) and keeps nothing between calls.
type Machine struct {
	handlers map[model.FlowState]stateHandler
}

// NewMachine returns the standard transition table.
func NewMachine() *Machine {
	return &Machine{
		handlers: map[model.FlowState]stateHandler{
			model.StateAwaitingIntentChoice:     onIntentChoice,
			model.StateAwaitingQuantity:         onQuantity,
			model.StateAwaitingOrderConfirm:     onOrderConfirm,
			model.StateAwaitingShippingConfirm:  onShippingConfirm,
			model.StateAwaitingNewAddress:       onNewAddress,
			model.StateAwaitingAddressConfirm:   onAddressConfirm,
			model.StateAwaitingAnythingElse:     onAnythingElse,
			model.StateOrderComplete:            onOrderComplete,
			model.StateAwaitingVariantSelection: onVariantSelection,
		},
	}
}

// Transition returns the next step for state. ok is false when the machine
// does not handle the message and the turn falls through to the classifier
// from idle.
func (m *Machine) Transition(state model.FlowState, message string, pending model.PendingContext) (Transition, bool) {
	h, found := m.handlers[state.OrDefault()]
	if !found {
		return Transition{}, false
	}
	t := h(utils.Normalize(message), pending)
	if t == nil {
		return Transition{}, false
	}
	// address entry keeps the customer's original casing
	if state == model.StateAwaitingNewAddress && t.NextState == model.StateAwaitingAddressConfirm {
		addr := strings.TrimSpace(message)
		t.Pending.ShippingAddress = &addr
		t.Reply = addressConfirmReply(addr)
	}
	return *t, true
}

func reply(msg string, suggestions ...string) *model.Reply {
	return &model.Reply{Message: msg, Suggestions: suggestions}
}

func cancelled(pending model.PendingContext) *Transition {
	return &Transition{
		NextState: model.StateAwaitingAnythingElse,
		Pending:   pending.Reset(),
		Reply:     reply(msgCancelled, "Browse categories", "No, that's all"),
	}
}

func menu(pending model.PendingContext) *Transition {
	return &Transition{
		NextState: model.StateAwaitingIntentChoice,
		Pending:   pending.Reset(),
		Reply:     DisambiguationMenu(),
	}
}

func onIntentChoice(text string, pending model.PendingContext) *Transition {
	switch {
	case utils.ContainsAny(text, choiceProductWords...):
		return &Transition{NextState: model.StateAwaitingProductOrCat, Pending: pending, Reply: reply(msgAskProduct)}
	case utils.ContainsAny(text, choiceCategoryWords...):
		return &Transition{
			NextState:   model.StateIdle,
			Pending:     pending,
			PassThrough: true,
			SideEffects: model.SideEffects{OverrideMessage: browseCategoriesText},
		}
	case utils.ContainsAny(text, choiceOrderWords...):
		return &Transition{NextState: model.StateAwaitingProductOrCat, Pending: pending, Reply: reply(msgAskOrderProduct)}
	case utils.ContainsAny(text, restartWords...):
		return menu(pending)
	}
	return nil
}

func onQuantity(text string, pending model.PendingContext) *Transition {
	if n, ok := BareNumber(text); ok {
		next := pending
		next.Quantity = model.Ptr(n)
		return &Transition{
			NextState: model.StateAwaitingOrderConfirm,
			Pending:   next,
			Reply: reply(
				fmt.Sprintf("You'd like %d of %s. Shall I place the order?", n, pending.PendingProductName()),
				"Yes, place order", "Cancel",
			),
		}
	}
	if utils.ContainsAny(text, cancelWords...) {
		return cancelled(pending)
	}
	return &Transition{
		NextState: model.StateAwaitingQuantity,
		Pending:   pending,
		Reply:     reply(fmt.Sprintf("How many of %s would you like? Please reply with a number.", pending.PendingProductName())),
	}
}

func onOrderConfirm(text string, pending model.PendingContext) *Transition {
	switch {
	case utils.ContainsAny(text, cancelWords...):
		return cancelled(pending)
	case utils.ContainsAny(text, confirmWords...):
		return &Transition{
			NextState:   model.StateAwaitingShippingConfirm,
			Pending:     pending,
			PassThrough: true,
			SideEffects: model.SideEffects{FetchCustomerAddress: true},
			Reply:       reply(msgFetchingAddress),
		}
	}
	return &Transition{NextState: model.StateAwaitingOrderConfirm, Pending: pending, Reply: reply(msgConfirmOrRetry, "Yes", "Cancel")}
}

func onShippingConfirm(text string, pending model.PendingContext) *Transition {
	switch {
	case utils.ContainsAny(text, changeAddressWords...):
		return &Transition{NextState: model.StateAwaitingNewAddress, Pending: pending, Reply: reply(msgAskNewAddress)}
	case utils.ContainsAny(text, cancelWords...):
		return cancelled(pending)
	case utils.ContainsAny(text, confirmWords...):
		return &Transition{
			NextState:   model.StateOrderComplete,
			Pending:     pending,
			PassThrough: true,
			SideEffects: model.SideEffects{CreateOrder: true, UseExistingAddress: true},
			Reply:       reply(msgPlacingOrder),
		}
	}
	return &Transition{
		NextState: model.StateAwaitingShippingConfirm,
		Pending:   pending,
		Reply:     reply(msgShippingReprompt, "Use this address", "Change address", "Cancel"),
	}
}

func onNewAddress(text string, pending model.PendingContext) *Transition {
	if utils.ContainsAny(text, cancelWords...) && len(strings.Fields(text)) <= 3 {
		return cancelled(pending)
	}
	if text == "" {
		return &Transition{NextState: model.StateAwaitingNewAddress, Pending: pending, Reply: reply(msgAskNewAddress)}
	}
	// the verbatim address is attached by Transition
	return &Transition{NextState: model.StateAwaitingAddressConfirm, Pending: pending}
}

func addressConfirmReply(addr string) *model.Reply {
	return reply(fmt.Sprintf("Ship to:\n%s\nIs this correct?", addr), "Yes", "Re-enter address", "Cancel")
}

func onAddressConfirm(text string, pending model.PendingContext) *Transition {
	switch {
	case utils.ContainsAny(text, reenterWords...):
		next := pending
		next.ShippingAddress = nil
		return &Transition{NextState: model.StateAwaitingNewAddress, Pending: next, Reply: reply(msgReenterAddress)}
	case utils.ContainsAny(text, cancelWords...):
		return cancelled(pending)
	case utils.ContainsAny(text, confirmWords...):
		return &Transition{
			NextState:   model.StateOrderComplete,
			Pending:     pending,
			PassThrough: true,
			SideEffects: model.SideEffects{CreateOrder: true, UseNewAddress: true},
			Reply:       reply(msgPlacingOrder),
		}
	}
	return &Transition{NextState: model.StateAwaitingAddressConfirm, Pending: pending, Reply: reply(msgAddressReprompt, "Yes", "Re-enter address", "Cancel")}
}

func onAnythingElse(text string, pending model.PendingContext) *Transition {
	switch {
	case isShortNegative(text):
		return &Transition{NextState: model.StateClosing, Pending: pending.Reset(), Reply: reply(msgFarewell)}
	case isShortAffirmative(text):
		return menu(pending)
	}
	return nil
}

func onOrderComplete(text string, pending model.PendingContext) *Transition {
	if utils.ContainsAny(text, thanksWords...) {
		return &Transition{
			NextState: model.StateAwaitingAnythingElse,
			Pending:   pending.Reset(),
			Reply:     reply(msgYoureWelcome, "Browse categories", "No, that's all"),
		}
	}
	return nil
}

func onVariantSelection(text string, pending model.PendingContext) *Transition {
	switch {
	case utils.ContainsAny(text, "cancel", "stop", "never mind", "nevermind", "forget it"):
		return cancelled(pending)
	case utils.ContainsAny(text, topicChangeWords...):
		return nil
	}
	return &Transition{
		NextState:   model.StateAwaitingVariantSelection,
		Pending:     pending,
		PassThrough: true,
		SideEffects: model.SideEffects{ResolveVariant: true},
	}
}

// isShortAffirmative avoids reading "yes, show me wall tiles" as a bare yes;
// longer messages are treated as a fresh query.
func isShortAffirmative(text string) bool {
	return utils.ContainsAny(text, affirmativeWords...) && len(strings.Fields(text)) <= 3
}

// isShortNegative matches a brief sign-off. A longer message that merely
// contains "no" is a new query.
func isShortNegative(text string) bool {
	return utils.ContainsAny(text, negativeWords...) && len(strings.Fields(text)) <= 4
}
