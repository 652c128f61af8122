package flow

import (
	"fmt"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

const (
	SlotFullName    = "full_name"
	SlotAccountType = "account_type"
	SlotAddress     = "address"
	SlotGovtID      = "govt_id"
)

// KYC onboards a new customer. It does not need an existing account.
func KYC() *Definition {
	return &Definition{
		Name:  "kyc",
		Title: "Account opening",
		Intro: "Happy to help you open an account. I'll need a few details.",
		Steps: []Step{
			{
				Slot:     SlotFullName,
				Label:    "Full name",
				Prompt:   "What is your full name?",
				Shape:    router.ShapeText,
				Validate: personName,
			},
			{
				Slot:     SlotAge,
				Label:    "Age",
				Prompt:   "What is your age?",
				Shape:    router.ShapeText,
				Validate: ageInYears,
				Then: func(v string, _ Env) Transition {
					if slotInt(v) < ledger.MinLoanAge {
						return Abort(fmt.Sprintf("You must be at least %d years old to open an account.", ledger.MinLoanAge))
					}
					return Next()
				},
			},
			{
				Slot:   SlotAccountType,
				Label:  "Account type",
				Prompt: "Which account would you like to open?",
				Shape:  router.ShapeMenu,
				Choices: []session.Choice{
					{Key: "1", Label: "Savings"},
					{Key: "2", Label: "Current"},
				},
				Validate: chosen,
			},
			{
				Slot:     SlotAddress,
				Label:    "Address",
				Prompt:   "Please enter your residential address.",
				Shape:    router.ShapeText,
				Validate: minText(10, "Please enter your full address (at least 10 characters)."),
			},
			{
				Slot:      SlotGovtID,
				Label:     "Aadhaar number",
				Prompt:    "Please enter your 12-digit Aadhaar number.",
				Shape:     router.ShapeText,
				Validate:  digits(12, 12, "An Aadhaar number has exactly 12 digits."),
				Sensitive: true,
			},
			{
				Slot:     SlotConfirm,
				Prompt:   "Shall I open the account with these details? (yes/no)",
				Shape:    router.ShapeConfirm,
				Validate: confirmation,
				Then:     submitOnYes,
				Review:   true,
			},
		},
		Request: func(env Env) (ledger.Request, error) {
			return ledger.Request{
				Kind: ledger.KindOpenAccount,
				Application: &ledger.Application{
					FullName:    env.Slots[SlotFullName],
					Age:         slotInt(env.Slots[SlotAge]),
					AccountType: env.Slots[SlotAccountType],
					Address:     env.Slots[SlotAddress],
					GovtID:      env.Slots[SlotGovtID],
				},
			}, nil
		},
		Complete: func(env Env, res ledger.Result) reply.FlowCompleted {
			return reply.FlowCompleted{
				Headline: "Your account has been opened successfully.",
				Details: []reply.Detail{
					{Label: "Account number", Value: res.Receipt.AccountID},
					{Label: "Account type", Value: env.Slots[SlotAccountType]},
					{Label: "Reference", Value: res.Receipt.Reference},
				},
				Footer: fmt.Sprintf("Welcome to Bank of Trust, %s!", env.Slots[SlotFullName]),
			}
		},
	}
}
