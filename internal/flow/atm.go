package flow

import (
	"strings"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

const SlotATMService = "atm_service"

var atmTasks = map[string]ledger.ATMTask{
	"ATM locator":               ledger.ATMLocate,
	"Withdrawal limits":         ledger.ATMLimits,
	"Dispute a cash withdrawal": ledger.ATMDispute,
	"Card retained by ATM":      ledger.ATMRetained,
	"PIN help":                  ledger.ATMPin,
}

var atmHeadlines = map[ledger.ATMTask]string{
	ledger.ATMLocate:   "Here are the Bank of Trust ATMs nearest to you.",
	ledger.ATMLimits:   "Here are the ATM limits on your card.",
	ledger.ATMDispute:  "A dispute has been raised for your cash withdrawal.",
	ledger.ATMRetained: "We have logged your card as retained by the ATM and blocked it.",
	ledger.ATMPin:      "Here is how to manage your PIN.",
}

// ATM covers the ATM network services. The locator needs nothing else; the other services
// check the card, and only a dispute or a retained card asks for confirmation.
func ATM() *Definition {
	return &Definition{
		Name:            "atm",
		Title:           "ATM service",
		Intro:           "Sure, here are our ATM services.",
		RequiresAccount: true,
		Steps: []Step{
			{
				Slot:   SlotATMService,
				Label:  "Service",
				Prompt: "What do you need help with?",
				Shape:  router.ShapeMenu,
				Choices: []session.Choice{
					{Key: "1", Label: "ATM locator"},
					{Key: "2", Label: "Withdrawal limits"},
					{Key: "3", Label: "Dispute a cash withdrawal"},
					{Key: "4", Label: "Card retained by ATM"},
					{Key: "5", Label: "PIN help"},
				},
				Validate: chosen,
				Then: func(v string, _ Env) Transition {
					if atmTasks[v] == ledger.ATMLocate {
						return Submit()
					}
					return Next()
				},
			},
			{
				Slot:     SlotCardLast4,
				Label:    "Card number",
				Prompt:   "Please enter the last 4 digits of the card you used.",
				Shape:    router.ShapeText,
				Validate: last4,
				Display:  showLast4,
				Then: func(_ string, env Env) Transition {
					switch atmTasks[env.Slots[SlotATMService]] {
					case ledger.ATMDispute, ledger.ATMRetained:
						return Next()
					}
					return Submit()
				},
			},
			{
				Slot:     SlotConfirm,
				Prompt:   "Shall I raise this with our ATM team? (yes/no)",
				Shape:    router.ShapeConfirm,
				Validate: confirmation,
				Then:     submitOnYes,
				Review:   true,
			},
		},
		Request: func(env Env) (ledger.Request, error) {
			task, ok := atmTasks[env.Slots[SlotATMService]]
			if !ok {
				return ledger.Request{}, errIncomplete
			}
			return ledger.Request{
				Kind: ledger.KindATMService,
				ATM: &ledger.ATMOrder{
					AccountID: env.Profile.AccountID,
					Task:      task,
					Last4:     env.Slots[SlotCardLast4],
				},
			}, nil
		},
		Complete: func(env Env, res ledger.Result) reply.FlowCompleted {
			return reply.FlowCompleted{
				Headline: atmHeadlines[atmTasks[env.Slots[SlotATMService]]],
				Details:  receiptDetails(res.Receipt),
				Footer:   strings.Join(res.Receipt.Notes, "\n"),
			}
		},
	}
}
