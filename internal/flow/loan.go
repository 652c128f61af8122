package flow

import (
	"fmt"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

const (
	// LoanTenureMonths and LoanBaseRate are used for the indicative EMI.
	LoanTenureMonths = 60
	LoanBaseRate     = 0.085
)

// IncomeSkipEmployment is the monthly income from which employment type is not asked.
var IncomeSkipEmployment = money.Rupees(50000)

const (
	SlotCategory    = "category"
	SlotSecured     = "secured_product"
	SlotUnsecured   = "unsecured_product"
	SlotCommercial  = "commercial_product"
	SlotAge         = "age"
	SlotIncome      = "monthly_income"
	SlotEmployment  = "employment"
	SlotCreditScore = "credit_score"
)

var ageInYears = integer(1, 100, "Please enter your age in years, for example 30.")

// productSlots maps a loan category to the step listing its products.
var productSlots = map[string]string{
	"Secured":    SlotSecured,
	"Unsecured":  SlotUnsecured,
	"Commercial": SlotCommercial,
}

func productStep(slot, category string, products ...string) Step {
	choices := make([]session.Choice, len(products))
	for i, p := range products {
		choices[i] = session.Choice{Key: fmt.Sprint(i + 1), Label: p}
	}
	return Step{
		Slot:     slot,
		Label:    "Loan product",
		Prompt:   fmt.Sprintf("Which %s loan are you interested in?", category),
		Shape:    router.ShapeMenu,
		Choices:  choices,
		Validate: chosen,
		Then:     func(string, Env) Transition { return Goto(SlotAge) },
	}
}

// loanProduct returns the product picked under the chosen category.
func loanProduct(env Env) string {
	return env.Slots[productSlots[env.Slots[SlotCategory]]]
}

func LoanEligibility() *Definition {
	return &Definition{
		Name:            "loan_eligibility",
		Title:           "Loan eligibility check",
		Intro:           "Let's check your loan eligibility.",
		RequiresAccount: true,
		Steps: []Step{
			{
				Slot:   SlotCategory,
				Label:  "Loan category",
				Prompt: "Which type of loan are you interested in?",
				Shape:  router.ShapeMenu,
				Choices: []session.Choice{
					{Key: "1", Label: "Secured"},
					{Key: "2", Label: "Unsecured"},
					{Key: "3", Label: "Commercial"},
				},
				Validate: chosen,
				Then: func(v string, _ Env) Transition {
					if slot, ok := productSlots[v]; ok {
						return Goto(slot)
					}
					return Abort(reasonIncomplete)
				},
			},
			productStep(SlotSecured, "secured", "Home Loan", "Auto Loan", "Property Loan (LAP)", "Gold Loan", "FD Overdraft"),
			productStep(SlotUnsecured, "unsecured", "Personal Loan", "Education Loan", "Credit Line", "Debt Consolidation"),
			productStep(SlotCommercial, "commercial", "Term Loan", "Working Capital", "Equipment Finance", "Invoice Discounting", "Business OD"),
			{
				Slot:     SlotAge,
				Label:    "Age",
				Prompt:   "What is your age?",
				Shape:    router.ShapeText,
				Validate: ageInYears,
				Then: func(v string, _ Env) Transition {
					if slotInt(v) < ledger.MinLoanAge {
						return Abort(fmt.Sprintf("You must be at least %d years old to apply for a loan.", ledger.MinLoanAge))
					}
					return Next()
				},
			},
			{
				Slot:     SlotIncome,
				Label:    "Monthly income",
				Prompt:   "What is your monthly income?",
				Shape:    router.ShapeAmount,
				Validate: amountUpTo(0),
				Display:  showAmount,
				Then: func(v string, _ Env) Transition {
					income := slotAmount(v)
					switch {
					case income < ledger.MinMonthlyIncome:
						return Abort(fmt.Sprintf("A minimum monthly income of %s is required.", ledger.MinMonthlyIncome))
					case income >= IncomeSkipEmployment:
						return Goto(SlotCreditScore)
					}
					return Next()
				},
			},
			{
				Slot:   SlotEmployment,
				Label:  "Employment",
				Prompt: "What is your employment type?",
				Shape:  router.ShapeMenu,
				Choices: []session.Choice{
					{Key: "1", Label: "Salaried"},
					{Key: "2", Label: "Self-employed"},
				},
				Validate: chosen,
			},
			{
				Slot:     SlotCreditScore,
				Label:    "Credit score",
				Prompt:   "What is your credit score? (300-900)",
				Shape:    router.ShapeText,
				Validate: integer(300, 900, "Please enter a credit score between 300 and 900."),
				Then: func(v string, _ Env) Transition {
					if slotInt(v) < ledger.MinCreditScore {
						return Abort(fmt.Sprintf("A credit score of at least %d is required.", ledger.MinCreditScore))
					}
					return Next()
				},
			},
			{
				Slot:     SlotConfirm,
				Prompt:   "Shall I check your eligibility with these details? (yes/no)",
				Shape:    router.ShapeConfirm,
				Validate: confirmation,
				Then:     submitOnYes,
				Review:   true,
			},
		},
		Request: func(env Env) (ledger.Request, error) {
			return ledger.Request{
				Kind: ledger.KindLoanEligibility,
				Loan: &ledger.LoanProfile{
					AccountID:     env.Profile.AccountID,
					Category:      env.Slots[SlotCategory],
					Product:       loanProduct(env),
					Age:           slotInt(env.Slots[SlotAge]),
					MonthlyIncome: slotAmount(env.Slots[SlotIncome]),
					Employment:    env.Slots[SlotEmployment],
					CreditScore:   slotInt(env.Slots[SlotCreditScore]),
				},
			}, nil
		},
		Complete: loanDecision,
	}
}

func loanDecision(env Env, res ledger.Result) reply.FlowCompleted {
	if res.Eligibility == nil || !res.Eligibility.Eligible {
		reason := "The application does not meet our criteria."
		if res.Eligibility != nil && res.Eligibility.Reason != "" {
			reason = res.Eligibility.Reason
		}
		return reply.FlowCompleted{
			Headline: "Your loan eligibility check is complete.",
			Details: []reply.Detail{
				{Label: "Result", Value: "Not eligible"},
				{Label: "Reason", Value: reason},
			},
		}
	}

	limit := res.Eligibility.Limit
	details := []reply.Detail{
		{Label: "Loan category", Value: env.Slots[SlotCategory]},
		{Label: "Loan product", Value: loanProduct(env)},
		{Label: "Approved limit", Value: limit.String()},
		{Label: "Tenure", Value: fmt.Sprintf("%d months", LoanTenureMonths)},
	}
	if emi, err := money.EMI(limit, LoanBaseRate, LoanTenureMonths); err == nil {
		details = append(details, reply.Detail{
			Label: "Indicative EMI",
			Value: fmt.Sprintf("%s per month at %.1f%% p.a.", emi, LoanBaseRate*100),
		})
	}
	return reply.FlowCompleted{
		Headline: "Good news! You are eligible for this loan.",
		Details:  details,
		Footer:   "A loan officer will contact you to complete the application.",
	}
}
