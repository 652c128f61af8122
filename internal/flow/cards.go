package flow

import (
	"fmt"
	"strings"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

const (
	SlotCardType     = "card_type"
	SlotDebitAction  = "debit_action"
	SlotCreditAction = "credit_action"
	SlotCardLast4    = "card_last4"
	SlotBillAmount   = "bill_amount"
)

var cardTypes = map[string]ledger.CardType{
	"Debit card":  ledger.CardDebit,
	"Credit card": ledger.CardCredit,
}

var (
	debitActions = []session.Choice{
		{Key: "1", Label: "Block card"},
		{Key: "2", Label: "Unblock card"},
		{Key: "3", Label: "View status"},
		{Key: "4", Label: "Request new card"},
		{Key: "5", Label: "Report lost or stolen"},
	}
	creditActions = []session.Choice{
		{Key: "1", Label: "Block card"},
		{Key: "2", Label: "Unblock card"},
		{Key: "3", Label: "View status"},
		{Key: "4", Label: "Apply for a card"},
		{Key: "5", Label: "View statement"},
		{Key: "6", Label: "Pay bill"},
	}
	cardActions = map[string]ledger.CardAction{
		"Block card":            ledger.CardBlock,
		"Unblock card":          ledger.CardUnblock,
		"View status":           ledger.CardStatus,
		"Request new card":      ledger.CardApply,
		"Apply for a card":      ledger.CardApply,
		"Report lost or stolen": ledger.CardReportLost,
		"View statement":        ledger.CardStatement,
		"Pay bill":              ledger.CardPayBill,
	}
)

var last4 = digits(4, 4, "Please enter exactly the last 4 digits of your card.")

func showLast4(v string) string {
	return "ending in " + v
}

// cardOrder reads the chosen card and action from the slots.
func cardOrder(env Env) (ledger.CardType, ledger.CardAction) {
	card := cardTypes[env.Slots[SlotCardType]]
	slot := SlotDebitAction
	if card == ledger.CardCredit {
		slot = SlotCreditAction
	}
	return card, cardActions[env.Slots[slot]]
}

// afterAction skips the security check for new card requests.
func afterAction(v string, _ Env) Transition {
	if cardActions[v] == ledger.CardApply {
		return Goto(SlotConfirm)
	}
	return Goto(SlotCardLast4)
}

// Cards services debit and credit cards. Every action except a new card request needs the
// last 4 digits of the card; read-only actions skip the confirmation.
func Cards() *Definition {
	return &Definition{
		Name:            "cards",
		Title:           "Card service",
		Intro:           "Sure, I can help with your cards.",
		RequiresAccount: true,
		Steps: []Step{
			{
				Slot:   SlotCardType,
				Label:  "Card",
				Prompt: "Which card do you need help with?",
				Shape:  router.ShapeMenu,
				Choices: []session.Choice{
					{Key: "1", Label: "Debit card"},
					{Key: "2", Label: "Credit card"},
				},
				Validate: chosen,
				Then: func(v string, _ Env) Transition {
					if cardTypes[v] == ledger.CardCredit {
						return Goto(SlotCreditAction)
					}
					return Next()
				},
			},
			{
				Slot:     SlotDebitAction,
				Label:    "Service",
				Prompt:   "What would you like to do with your debit card?",
				Shape:    router.ShapeMenu,
				Choices:  debitActions,
				Validate: chosen,
				Then:     afterAction,
			},
			{
				Slot:     SlotCreditAction,
				Label:    "Service",
				Prompt:   "What would you like to do with your credit card?",
				Shape:    router.ShapeMenu,
				Choices:  creditActions,
				Validate: chosen,
				Then:     afterAction,
			},
			{
				Slot:     SlotCardLast4,
				Label:    "Card number",
				Prompt:   "Security check: please enter the last 4 digits of your card.",
				Shape:    router.ShapeText,
				Validate: last4,
				Display:  showLast4,
				Then: func(_ string, env Env) Transition {
					_, action := cardOrder(env)
					switch {
					case action.ReadOnly():
						return Submit()
					case action == ledger.CardPayBill:
						return Next()
					}
					return Goto(SlotConfirm)
				},
			},
			{
				Slot:     SlotBillAmount,
				Label:    "Payment amount",
				Prompt:   "How much would you like to pay towards your credit card bill?",
				Shape:    router.ShapeAmount,
				Validate: amountUpTo(MaxTransfer),
				Display:  showAmount,
			},
			{
				Slot:     SlotConfirm,
				Prompt:   "Shall I go ahead with this request? (yes/no)",
				Shape:    router.ShapeConfirm,
				Validate: confirmation,
				Then:     submitOnYes,
				Review:   true,
			},
		},
		Request: func(env Env) (ledger.Request, error) {
			card, action := cardOrder(env)
			if card == "" || action == "" {
				return ledger.Request{}, errIncomplete
			}
			return ledger.Request{
				Kind: ledger.KindCardService,
				Card: &ledger.CardOrder{
					AccountID: env.Profile.AccountID,
					Card:      card,
					Action:    action,
					Last4:     env.Slots[SlotCardLast4],
					Amount:    slotAmount(env.Slots[SlotBillAmount]),
				},
			}, nil
		},
		Complete: cardDone,
	}
}

func cardDone(env Env, res ledger.Result) reply.FlowCompleted {
	card, action := cardOrder(env)
	name := strings.ToLower(string(card)) + " card"
	which := fmt.Sprintf("Your %s ending in %s", name, env.Slots[SlotCardLast4])

	var headline string
	switch action {
	case ledger.CardBlock:
		headline = which + " has been blocked."
	case ledger.CardUnblock:
		headline = which + " is active again."
	case ledger.CardStatus:
		headline = fmt.Sprintf("%s is %s.", which, strings.ToLower(res.Receipt.Status))
	case ledger.CardApply:
		headline = fmt.Sprintf("Your %s request has been logged.", name)
	case ledger.CardReportLost:
		headline = which + " has been reported lost and permanently blocked."
	case ledger.CardStatement:
		headline = fmt.Sprintf("Here is the statement for your %s ending in %s.", name, env.Slots[SlotCardLast4])
	case ledger.CardPayBill:
		headline = fmt.Sprintf("Payment of %s received for your %s ending in %s.", showAmount(env.Slots[SlotBillAmount]), name, env.Slots[SlotCardLast4])
	default:
		headline = "Your card request is complete."
	}
	return reply.FlowCompleted{
		Headline: headline,
		Details:  receiptDetails(res.Receipt),
		Footer:   strings.Join(res.Receipt.Notes, "\n"),
	}
}

// receiptDetails lists the reference and card state when the ledger returned them.
func receiptDetails(r ledger.Receipt) []reply.Detail {
	var out []reply.Detail
	if r.Reference != "" {
		out = append(out, reply.Detail{Label: "Reference", Value: r.Reference})
	}
	if r.Status != "" {
		out = append(out, reply.Detail{Label: "Card status", Value: r.Status})
	}
	return out
}
