package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bank-of-trust/bankbot-core/internal/money"
)

// Loan rules applied by the sandbox, matching the bank's published criteria.
const (
	MinLoanAge         = 18
	MinMonthlyIncome   = money.Amount(15000 * 100)
	MinCreditScore     = 700
	LoanIncomeMultiple = 20
)

type sandboxCard struct {
	Last4       string
	State       string
	Outstanding money.Amount
}

type sandboxAccount struct {
	Name    string
	Balance money.Amount
	Cards   map[CardType]*sandboxCard
}

// Sandbox is an in-memory Ledger and Profiles used by the terminal demo and tests.
// Requests run through Execute are idempotent per request id.
type Sandbox struct {
	mu       sync.Mutex
	accounts map[string]*sandboxAccount
	sessions map[string]string
	nextAcct int

	execMu   sync.Mutex
	executed map[string]Result
}

// NewSandbox seeds the demo customers.
func NewSandbox() *Sandbox {
	return &Sandbox{
		accounts: map[string]*sandboxAccount{
			"100001": {Name: "Sai Rajesh", Balance: money.Rupees(2500000), Cards: map[CardType]*sandboxCard{
				CardDebit:  {Last4: "4321", State: CardStateActive},
				CardCredit: {Last4: "8765", State: CardStateActive, Outstanding: money.Rupees(12450)},
			}},
			"100002": {Name: "Suriya V", Balance: money.Rupees(2420000), Cards: map[CardType]*sandboxCard{
				CardDebit: {Last4: "1111", State: CardStateActive},
			}},
			"100003": {Name: "Bhaskar L", Balance: money.Rupees(300000), Cards: map[CardType]*sandboxCard{
				CardDebit:  {Last4: "2222", State: CardStateActive},
				CardCredit: {Last4: "3333", State: CardStateBlocked},
			}},
		},
		sessions: make(map[string]string),
		nextAcct: 100004,
		executed: make(map[string]Result),
	}
}

// Execute runs req once per id. A repeated id gets the result of its first successful
// execution without touching balances again; failed attempts may be retried.
func (s *Sandbox) Execute(ctx context.Context, req Request) Result {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	if req.ID != "" {
		if res, ok := s.executed[req.ID]; ok {
			return res
		}
	}
	res := dispatch(ctx, s, req)
	if req.ID != "" && res.Err == nil {
		s.executed[req.ID] = res
	}
	return res
}

// Bind associates a session with an account, standing in for the transport's login.
func (s *Sandbox) Bind(sessionID, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = accountID
}

func (s *Sandbox) Lookup(_ context.Context, sessionID string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.sessions[sessionID]
	if !ok {
		return Profile{}, nil
	}
	a, ok := s.accounts[acct]
	if !ok {
		return Profile{}, ErrAccountNotFound
	}
	return Profile{Name: a.Name, AccountID: acct}, nil
}

func (s *Sandbox) GetBalance(_ context.Context, accountID string) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return a.Balance, nil
}

func (s *Sandbox) Transfer(_ context.Context, from, to string, amount money.Amount, mode Mode) (Receipt, error) {
	if from == to {
		return Receipt{}, ErrSelfTransfer
	}
	if amount <= 0 {
		return Receipt{}, money.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.accounts[from]
	if !ok {
		return Receipt{}, fmt.Errorf("sender %s: %w", from, ErrAccountNotFound)
	}
	dst, ok := s.accounts[to]
	if !ok {
		return Receipt{}, fmt.Errorf("receiver %s: %w", to, ErrAccountNotFound)
	}
	if src.Balance < amount {
		return Receipt{}, ErrInsufficientFunds
	}
	src.Balance -= amount
	dst.Balance += amount
	return Receipt{Reference: reference()}, nil
}

func (s *Sandbox) CheckLoanEligibility(_ context.Context, p LoanProfile) (Eligibility, error) {
	switch {
	case p.Age < MinLoanAge:
		return Eligibility{Reason: fmt.Sprintf("Minimum age is %d years.", MinLoanAge)}, nil
	case p.MonthlyIncome < MinMonthlyIncome:
		return Eligibility{Reason: fmt.Sprintf("Minimum income requirement is %s.", MinMonthlyIncome)}, nil
	case p.CreditScore < MinCreditScore:
		return Eligibility{Reason: fmt.Sprintf("Credit score is below the %d threshold.", MinCreditScore)}, nil
	}
	return Eligibility{Eligible: true, Limit: p.MonthlyIncome.Mul(LoanIncomeMultiple)}, nil
}

func (s *Sandbox) OpenAccount(_ context.Context, a Application) (Receipt, error) {
	if a.Age < MinLoanAge {
		return Receipt{}, fmt.Errorf("applicant must be %d or older", MinLoanAge)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := fmt.Sprintf("%d", s.nextAcct)
	s.nextAcct++
	s.accounts[acct] = &sandboxAccount{Name: a.FullName}
	return Receipt{Reference: reference(), AccountID: acct}, nil
}

func (s *Sandbox) ServiceCard(_ context.Context, o CardOrder) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[o.AccountID]
	if !ok {
		return Receipt{}, ErrAccountNotFound
	}
	if o.Action == CardApply {
		note := "Your new debit card will be dispatched within 7 working days."
		if o.Card == CardCredit {
			note = "Our cards team will contact you within 2 working days."
		}
		return Receipt{Reference: reference(), Notes: []string{note}}, nil
	}

	card, ok := acct.Cards[o.Card]
	if !ok || card.Last4 != o.Last4 {
		return Receipt{}, ErrCardNotFound
	}
	switch o.Action {
	case CardBlock:
		if card.State == CardStateLost {
			return Receipt{}, ErrCardLost
		}
		card.State = CardStateBlocked
	case CardUnblock:
		if card.State == CardStateLost {
			return Receipt{}, ErrCardLost
		}
		card.State = CardStateActive
	case CardReportLost:
		card.State = CardStateLost
		return Receipt{Reference: reference(), Status: card.State, Notes: []string{"A replacement card can be requested from the card services menu."}}, nil
	case CardStatus:
		return Receipt{Status: card.State}, nil
	case CardStatement:
		if o.Card != CardCredit {
			return Receipt{}, fmt.Errorf("statements are only issued for credit cards")
		}
		return Receipt{Status: card.State, Notes: []string{
			fmt.Sprintf("Outstanding amount: %s", card.Outstanding),
			"Due date: 5th of next month",
		}}, nil
	case CardPayBill:
		if o.Card != CardCredit {
			return Receipt{}, fmt.Errorf("bill payment is only available for credit cards")
		}
		if o.Amount <= 0 {
			return Receipt{}, money.ErrInvalidAmount
		}
		if acct.Balance < o.Amount {
			return Receipt{}, ErrInsufficientFunds
		}
		acct.Balance -= o.Amount
		card.Outstanding = max(card.Outstanding-o.Amount, 0)
		return Receipt{Reference: reference(), Status: card.State, Notes: []string{
			fmt.Sprintf("Remaining outstanding: %s", card.Outstanding),
		}}, nil
	default:
		return Receipt{}, fmt.Errorf("unknown card action %q", o.Action)
	}
	return Receipt{Reference: reference(), Status: card.State}, nil
}

func (s *Sandbox) ServiceATM(_ context.Context, o ATMOrder) (Receipt, error) {
	if o.Task == ATMLocate {
		return Receipt{Notes: []string{
			"Bank of Trust ATM, MG Road (0.4 km)",
			"Bank of Trust ATM, Brigade Road (1.1 km)",
			"Bank of Trust ATM, Indiranagar 100 Feet Road (3.2 km)",
		}}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[o.AccountID]
	if !ok {
		return Receipt{}, ErrAccountNotFound
	}
	var card *sandboxCard
	for _, c := range acct.Cards {
		if c.Last4 == o.Last4 {
			card = c
		}
	}
	if card == nil {
		return Receipt{}, ErrCardNotFound
	}

	switch o.Task {
	case ATMLimits:
		return Receipt{Status: card.State, Notes: []string{
			fmt.Sprintf("Daily cash withdrawal limit: %s", ATMDailyWithdrawal),
			fmt.Sprintf("Daily POS limit: %s", ATMDailyPOS),
		}}, nil
	case ATMDispute:
		return Receipt{Reference: "ATM" + reference()[3:9], Notes: []string{"The dispute will be resolved within 48 hours."}}, nil
	case ATMRetained:
		if card.State != CardStateLost {
			card.State = CardStateBlocked
		}
		return Receipt{Reference: reference(), Status: card.State, Notes: []string{
			"Please visit your home branch with a photo ID to collect the card.",
		}}, nil
	case ATMPin:
		return Receipt{Status: card.State, Notes: []string{
			"For security, PINs can only be set or reset in the Bank of Trust mobile app.",
		}}, nil
	default:
		return Receipt{}, fmt.Errorf("unknown atm task %q", o.Task)
	}
}

// reference mimics the bank's "BOT" + 10 character transaction ids.
func reference() string {
	return "BOT" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

var (
	_ Ledger   = (*Sandbox)(nil)
	_ Executor = (*Sandbox)(nil)
	_ Profiles = (*Sandbox)(nil)
)
