package flow

import (
	"context"
	"testing"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settleWith executes the submitted request against the sandbox and settles it.
func (h *harness) settleWith(sb *ledger.Sandbox, res Result) string {
	h.t.Helper()
	require.NotNil(h.t, res.Request)
	settled, err := h.e.Settle(h.sess, ledger.Execute(context.Background(), sb, *res.Request), customer)
	require.NoError(h.t, err)
	return text(settled.Outcome)
}

func TestCards_BlockDebitCard(t *testing.T) {
	h := newHarness(t)
	res := h.start("cards")
	assert.Contains(t, text(res.Outcome), "Which card do you need help with?\n1. Debit card\n2. Credit card")

	res = h.say("1")
	assert.Contains(t, text(res.Outcome), "What would you like to do with your debit card?")
	res = h.sayAll("Block card", "4321")
	summary := text(res.Outcome)
	assert.Contains(t, summary, "- Card: Debit card")
	assert.Contains(t, summary, "- Card number: ending in 4321")
	assert.Contains(t, summary, "Shall I go ahead with this request? (yes/no)")
	assertNoSlotIDs(t, summary)

	res = h.say("yes")
	require.NotNil(t, res.Request)
	assert.Equal(t, ledger.KindCardService, res.Request.Kind)
	assert.Equal(t, &ledger.CardOrder{AccountID: "100001", Card: ledger.CardDebit, Action: ledger.CardBlock, Last4: "4321"}, res.Request.Card)

	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "Your debit card ending in 4321 has been blocked.")
	assert.Contains(t, done, "- Card status: Blocked")
}

func TestCards_StatementNeedsNoConfirmation(t *testing.T) {
	h := newHarness(t)
	h.start("cards")
	res := h.sayAll("2", "5", "8765")
	assert.Equal(t, EventSubmitted, res.Event)
	assert.NotContains(t, h.sess.Slots, SlotConfirm)

	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "Here is the statement for your credit card ending in 8765.")
	assert.Contains(t, done, "Outstanding amount: ₹12,450")
}

func TestCards_PayCreditCardBill(t *testing.T) {
	sb := ledger.NewSandbox()
	h := newHarness(t)
	h.start("cards")
	res := h.sayAll("2", "Pay bill", "8765")
	assert.Contains(t, text(res.Outcome), "How much would you like to pay towards your credit card bill?")

	res = h.sayAll("2000", "yes")
	require.NotNil(t, res.Request)
	assert.Equal(t, money.Rupees(2000), res.Request.Card.Amount)

	done := h.settleWith(sb, res)
	assert.Contains(t, done, "Payment of ₹2,000 received for your credit card ending in 8765.")
	assert.Contains(t, done, "Remaining outstanding: ₹10,450")

	bal, err := sb.GetBalance(context.Background(), "100001")
	require.NoError(t, err)
	assert.Equal(t, money.Rupees(2498000), bal)
}

func TestCards_NewCardSkipsSecurityCheck(t *testing.T) {
	h := newHarness(t)
	h.start("cards")
	res := h.sayAll("1", "4")
	assert.Contains(t, text(res.Outcome), "Shall I go ahead with this request?")
	assert.NotContains(t, h.sess.Slots, SlotCardLast4)

	res = h.say("yes")
	require.NotNil(t, res.Request)
	assert.Equal(t, ledger.CardApply, res.Request.Card.Action)
	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "Your debit card request has been logged.")
	assert.Contains(t, done, "dispatched within 7 working days")
}

func TestCards_WrongDigitsAskAgain(t *testing.T) {
	h := newHarness(t)
	h.start("cards")
	res := h.sayAll("1", "3", "9999")
	require.NotNil(t, res.Request)

	settled, err := h.e.Settle(h.sess, ledger.Execute(context.Background(), ledger.NewSandbox(), *res.Request), customer)
	require.NoError(t, err)
	assert.Equal(t, EventRetry, settled.Event)
	msg := text(settled.Outcome)
	assert.Contains(t, msg, "no card ending in those digits is linked to your account")
	assert.Contains(t, msg, "Security check: please enter the last 4 digits of your card.")
	assert.NotContains(t, msg, "Reply yes")
	assert.NotContains(t, h.sess.Slots, SlotCardLast4)

	res = h.say("4321")
	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "Your debit card ending in 4321 is active.")
}

func TestCards_RejectsShortDigits(t *testing.T) {
	h := newHarness(t)
	h.start("cards")
	res := h.sayAll("1", "1", "43")
	assert.Equal(t, EventRetry, res.Event)
	assert.Contains(t, text(res.Outcome), "Please enter exactly the last 4 digits of your card.")
}

func TestATM_LocatorSubmitsAtOnce(t *testing.T) {
	h := newHarness(t)
	h.start("atm")
	res := h.say("1")
	require.NotNil(t, res.Request)
	assert.Equal(t, ledger.KindATMService, res.Request.Kind)
	assert.Equal(t, ledger.ATMLocate, res.Request.ATM.Task)

	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "Here are the Bank of Trust ATMs nearest to you.")
	assert.Contains(t, done, "MG Road (0.4 km)")
}

func TestATM_DisputeAsksForConfirmation(t *testing.T) {
	h := newHarness(t)
	h.start("atm")
	res := h.sayAll("Dispute a cash withdrawal", "4321")
	assert.Contains(t, text(res.Outcome), "Shall I raise this with our ATM team? (yes/no)")

	res = h.say("yes")
	require.NotNil(t, res.Request)
	assert.Equal(t, &ledger.ATMOrder{AccountID: "100001", Task: ledger.ATMDispute, Last4: "4321"}, res.Request.ATM)
	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "A dispute has been raised for your cash withdrawal.")
	assert.Contains(t, done, "- Reference: ATM")
	assert.Contains(t, done, "within 48 hours")
}

func TestATM_LimitsSkipConfirmation(t *testing.T) {
	h := newHarness(t)
	h.start("atm")
	res := h.sayAll("2", "8765")
	require.NotNil(t, res.Request)
	done := h.settleWith(ledger.NewSandbox(), res)
	assert.Contains(t, done, "Daily cash withdrawal limit: ₹40,000")
}
