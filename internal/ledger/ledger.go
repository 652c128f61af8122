// Package ledger declares the collaborators the dialogue core consumes: the account ledger
// and the user profile service. The core never moves money itself; it hands a Request to
// the transport, which runs it through Execute after its own authorization checks.
package ledger

import (
	"context"
	"errors"

	"github.com/bank-of-trust/bankbot-core/internal/money"
)

// Sentinel failures a Ledger implementation may report.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("self-transfer is not permitted")
	ErrUnauthorized      = errors.New("request not authorized for this session")
	ErrCardNotFound      = errors.New("no card with those digits on this account")
	ErrCardLost          = errors.New("card was reported lost")
)

// Mode is the payment rail chosen for a transfer.
type Mode string

const (
	ModeUPI          Mode = "UPI"
	ModeBankTransfer Mode = "Bank Transfer"
)

// Profile is the read-only view of the authenticated user used for templating.
type Profile struct {
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
}

// Known reports whether the profile service returned an identified customer.
func (p Profile) Known() bool {
	return p.AccountID != ""
}

// Profiles looks up the user behind an already-authenticated session.
type Profiles interface {
	Lookup(ctx context.Context, sessionID string) (Profile, error)
}

// LoanProfile is what the loan eligibility flow collects.
type LoanProfile struct {
	AccountID     string       `json:"account_id"`
	Category      string       `json:"category"`
	Product       string       `json:"product"`
	Age           int          `json:"age"`
	MonthlyIncome money.Amount `json:"monthly_income"`
	Employment    string       `json:"employment"`
	CreditScore   int          `json:"credit_score"`
}

// Eligibility is the ledger's loan decision.
type Eligibility struct {
	Eligible bool         `json:"eligible"`
	Reason   string       `json:"reason,omitempty"`
	Limit    money.Amount `json:"limit"`
}

// Application is the KYC onboarding payload.
type Application struct {
	FullName    string `json:"full_name"`
	Age         int    `json:"age"`
	AccountType string `json:"account_type"`
	Address     string `json:"address"`
	GovtID      string `json:"govt_id"`
}

// Receipt acknowledges a completed ledger action. Status is the state of a serviced card;
// Notes are informational lines for the customer.
type Receipt struct {
	Reference string   `json:"reference,omitempty"`
	AccountID string   `json:"account_id,omitempty"`
	Status    string   `json:"status,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// Ledger is the account service.
type Ledger interface {
	GetBalance(ctx context.Context, accountID string) (money.Amount, error)
	Transfer(ctx context.Context, from, to string, amount money.Amount, mode Mode) (Receipt, error)
	CheckLoanEligibility(ctx context.Context, p LoanProfile) (Eligibility, error)
	OpenAccount(ctx context.Context, a Application) (Receipt, error)
	ServiceCard(ctx context.Context, o CardOrder) (Receipt, error)
	ServiceATM(ctx context.Context, o ATMOrder) (Receipt, error)
}

// Executor is implemented by ledgers that run whole requests themselves, typically to
// answer a repeated request id with the result of its first execution.
type Executor interface {
	Execute(ctx context.Context, req Request) Result
}
