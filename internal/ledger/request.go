package ledger

import (
	"context"
	"fmt"

	"github.com/bank-of-trust/bankbot-core/internal/money"
)

// Kind names the collaborator call a Request maps onto.
type Kind string

const (
	KindTransfer        Kind = "transfer"
	KindLoanEligibility Kind = "loan_eligibility"
	KindOpenAccount     Kind = "open_account"
	KindCardService     Kind = "card_service"
	KindATMService      Kind = "atm_service"
)

// TransferOrder is the money-moving payload of a transfer request.
type TransferOrder struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Amount money.Amount `json:"amount"`
	Mode   Mode         `json:"mode"`
}

// Request is a side effect emitted by a completed flow step. Exactly one payload is set.
type Request struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Kind        Kind           `json:"kind"`
	Flow        string         `json:"flow"`
	Transfer    *TransferOrder `json:"transfer,omitempty"`
	Loan        *LoanProfile   `json:"loan,omitempty"`
	Application *Application   `json:"application,omitempty"`
	Card        *CardOrder     `json:"card,omitempty"`
	ATM         *ATMOrder      `json:"atm,omitempty"`
}

// Result carries the collaborator outcome for a Request back into the conversation.
type Result struct {
	RequestID   string
	Receipt     Receipt
	Eligibility *Eligibility
	Err         error
}

// Execute runs a request against the ledger, one call per request kind. Ledgers that
// implement Executor run the request themselves.
func Execute(ctx context.Context, l Ledger, req Request) Result {
	if x, ok := l.(Executor); ok {
		return x.Execute(ctx, req)
	}
	return dispatch(ctx, l, req)
}

func dispatch(ctx context.Context, l Ledger, req Request) Result {
	res := Result{RequestID: req.ID}
	switch req.Kind {
	case KindTransfer:
		if req.Transfer == nil {
			res.Err = fmt.Errorf("transfer request %s has no order", req.ID)
			return res
		}
		o := req.Transfer
		res.Receipt, res.Err = l.Transfer(ctx, o.From, o.To, o.Amount, o.Mode)
	case KindLoanEligibility:
		if req.Loan == nil {
			res.Err = fmt.Errorf("loan request %s has no profile", req.ID)
			return res
		}
		e, err := l.CheckLoanEligibility(ctx, *req.Loan)
		if err == nil {
			res.Eligibility = &e
		}
		res.Err = err
	case KindOpenAccount:
		if req.Application == nil {
			res.Err = fmt.Errorf("open account request %s has no application", req.ID)
			return res
		}
		res.Receipt, res.Err = l.OpenAccount(ctx, *req.Application)
	case KindCardService:
		if req.Card == nil {
			res.Err = fmt.Errorf("card request %s has no order", req.ID)
			return res
		}
		res.Receipt, res.Err = l.ServiceCard(ctx, *req.Card)
	case KindATMService:
		if req.ATM == nil {
			res.Err = fmt.Errorf("atm request %s has no order", req.ID)
			return res
		}
		res.Receipt, res.Err = l.ServiceATM(ctx, *req.ATM)
	default:
		res.Err = fmt.Errorf("unknown request kind %q", req.Kind)
	}
	return res
}
