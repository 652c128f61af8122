// Package mock provides test doubles for the ledger collaborators using function fields.
package mock

import (
	"context"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/money"
)

// Interface compliance checks.
var (
	_ ledger.Ledger   = (*Ledger)(nil)
	_ ledger.Profiles = (*Profiles)(nil)
)

// Ledger is a test double for ledger.Ledger.
// Set the function fields for the methods you need.
type Ledger struct {
	GetBalanceFn           func(ctx context.Context, accountID string) (money.Amount, error)
	TransferFn             func(ctx context.Context, from, to string, amount money.Amount, mode ledger.Mode) (ledger.Receipt, error)
	CheckLoanEligibilityFn func(ctx context.Context, p ledger.LoanProfile) (ledger.Eligibility, error)
	OpenAccountFn          func(ctx context.Context, a ledger.Application) (ledger.Receipt, error)
	ServiceCardFn          func(ctx context.Context, o ledger.CardOrder) (ledger.Receipt, error)
	ServiceATMFn           func(ctx context.Context, o ledger.ATMOrder) (ledger.Receipt, error)
}

// GetBalance delegates to GetBalanceFn.
func (l *Ledger) GetBalance(ctx context.Context, accountID string) (money.Amount, error) {
	return l.GetBalanceFn(ctx, accountID)
}

// Transfer delegates to TransferFn.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount money.Amount, mode ledger.Mode) (ledger.Receipt, error) {
	return l.TransferFn(ctx, from, to, amount, mode)
}

// CheckLoanEligibility delegates to CheckLoanEligibilityFn.
func (l *Ledger) CheckLoanEligibility(ctx context.Context, p ledger.LoanProfile) (ledger.Eligibility, error) {
	return l.CheckLoanEligibilityFn(ctx, p)
}

// OpenAccount delegates to OpenAccountFn.
func (l *Ledger) OpenAccount(ctx context.Context, a ledger.Application) (ledger.Receipt, error) {
	return l.OpenAccountFn(ctx, a)
}

// ServiceCard delegates to ServiceCardFn.
func (l *Ledger) ServiceCard(ctx context.Context, o ledger.CardOrder) (ledger.Receipt, error) {
	return l.ServiceCardFn(ctx, o)
}

// ServiceATM delegates to ServiceATMFn.
func (l *Ledger) ServiceATM(ctx context.Context, o ledger.ATMOrder) (ledger.Receipt, error) {
	return l.ServiceATMFn(ctx, o)
}

// Profiles is a test double for ledger.Profiles.
type Profiles struct {
	LookupFn func(ctx context.Context, sessionID string) (ledger.Profile, error)
}

// Lookup delegates to LookupFn.
func (p *Profiles) Lookup(ctx context.Context, sessionID string) (ledger.Profile, error) {
	return p.LookupFn(ctx, sessionID)
}
