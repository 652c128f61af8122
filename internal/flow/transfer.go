package flow

import (
	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

// MaxTransfer is the per-transfer limit.
var MaxTransfer = money.Rupees(1000000)

const (
	SlotRecipient = "to_account"
	SlotMode      = "mode"
	SlotAmount    = "amount"
	SlotConfirm   = "confirm"
)

var recipientDigits = digits(6, 16, "Please enter a valid account number (6 to 16 digits).")

func recipientAccount(in router.Input, env Env) (string, error) {
	acct, err := recipientDigits(in, env)
	if err != nil {
		return "", err
	}
	if acct == env.Profile.AccountID {
		return "", invalid("You can't transfer money to your own account. Please enter a different account number.")
	}
	return acct, nil
}

func Transfer() *Definition {
	return &Definition{
		Name:            "transfer",
		Title:           "Fund transfer",
		Intro:           "Sure, let's transfer money.",
		RequiresAccount: true,
		Steps: []Step{
			{
				Slot:      SlotRecipient,
				Label:     "Recipient account",
				Prompt:    "Please enter the recipient's account number.",
				Shape:     router.ShapeText,
				Validate:  recipientAccount,
				Sensitive: true,
			},
			{
				Slot:   SlotMode,
				Label:  "Payment mode",
				Prompt: "How would you like to send the money?",
				Shape:  router.ShapeMenu,
				Choices: []session.Choice{
					{Key: "1", Label: string(ledger.ModeUPI)},
					{Key: "2", Label: string(ledger.ModeBankTransfer)},
				},
				Validate: chosen,
			},
			{
				Slot:     SlotAmount,
				Label:    "Amount",
				Prompt:   "How much would you like to transfer?",
				Shape:    router.ShapeAmount,
				Validate: amountUpTo(MaxTransfer),
				Display:  showAmount,
			},
			{
				Slot:     SlotConfirm,
				Prompt:   "Shall I go ahead with this transfer? (yes/no)",
				Shape:    router.ShapeConfirm,
				Validate: confirmation,
				Then:     submitOnYes,
				Review:   true,
			},
		},
		Request: func(env Env) (ledger.Request, error) {
			return ledger.Request{
				Kind: ledger.KindTransfer,
				Transfer: &ledger.TransferOrder{
					From:   env.Profile.AccountID,
					To:     env.Slots[SlotRecipient],
					Amount: slotAmount(env.Slots[SlotAmount]),
					Mode:   ledger.Mode(env.Slots[SlotMode]),
				},
			}, nil
		},
		Complete: func(env Env, res ledger.Result) reply.FlowCompleted {
			return reply.FlowCompleted{
				Headline: "Transfer successful.",
				Details: []reply.Detail{
					{Label: "Reference", Value: res.Receipt.Reference},
					{Label: "Amount", Value: showAmount(env.Slots[SlotAmount])},
					{Label: "To account", Value: money.MaskDigits(env.Slots[SlotRecipient])},
					{Label: "Payment mode", Value: env.Slots[SlotMode]},
				},
			}
		},
	}
}
