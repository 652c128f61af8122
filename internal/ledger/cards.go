package ledger

import "github.com/bank-of-trust/bankbot-core/internal/money"

// CardType distinguishes the two card products.
type CardType string

const (
	CardDebit  CardType = "Debit"
	CardCredit CardType = "Credit"
)

// CardAction is a card servicing operation.
type CardAction string

const (
	CardBlock      CardAction = "block"
	CardUnblock    CardAction = "unblock"
	CardStatus     CardAction = "status"
	CardApply      CardAction = "apply"
	CardReportLost CardAction = "report_lost"
	CardStatement  CardAction = "statement"
	CardPayBill    CardAction = "pay_bill"
)

// ReadOnly reports whether the action only reads card state.
func (a CardAction) ReadOnly() bool {
	return a == CardStatus || a == CardStatement
}

// CardOrder is the payload of a card service request. Last4 is empty only for CardApply;
// Amount is set only for CardPayBill.
type CardOrder struct {
	AccountID string       `json:"account_id"`
	Card      CardType     `json:"card"`
	Action    CardAction   `json:"action"`
	Last4     string       `json:"last4,omitempty"`
	Amount    money.Amount `json:"amount,omitempty"`
}

// ATMTask is an ATM network service.
type ATMTask string

const (
	ATMLocate   ATMTask = "locate"
	ATMLimits   ATMTask = "limits"
	ATMDispute  ATMTask = "dispute"
	ATMRetained ATMTask = "retained"
	ATMPin      ATMTask = "pin"
)

// ATMOrder is the payload of an ATM service request. Last4 is empty only for ATMLocate.
type ATMOrder struct {
	AccountID string  `json:"account_id"`
	Task      ATMTask `json:"task"`
	Last4     string  `json:"last4,omitempty"`
}

// Card states reported in receipts.
const (
	CardStateActive  = "Active"
	CardStateBlocked = "Blocked"
	CardStateLost    = "Reported lost"
)

// ATM limits quoted by the bank.
var (
	ATMDailyWithdrawal = money.Rupees(40000)
	ATMDailyPOS        = money.Rupees(100000)
)
