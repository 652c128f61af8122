package router

import (
	"testing"

	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/session"
	"github.com/stretchr/testify/assert"
)

var modeMenu = []session.Choice{{Key: "1", Label: "UPI"}, {Key: "2", Label: "Bank Transfer"}}

func TestRoute_ControlTokensWinEverywhere(t *testing.T) {
	views := []View{
		{},
		{ActiveFlow: "transfer", Expect: ShapeMenu, Menu: modeMenu},
		{ActiveFlow: "transfer", Expect: ShapeAmount},
		{ActiveFlow: "transfer", Expect: ShapeConfirm},
		{ActiveFlow: "kyc", Expect: ShapeText},
	}
	cases := map[string]Token{
		"cancel":     Cancel,
		"STOP":       Cancel,
		"abort.":     Cancel,
		"quit":       Cancel,
		"help":       Help,
		"?":          Help,
		"menu":       Menu,
		"Main Menu":  Menu,
		"start over": Menu,
	}
	for _, v := range views {
		for raw, want := range cases {
			in := Route(raw, v)
			assert.Equal(t, Control, in.Kind, "%q in %v", raw, v.Expect)
			assert.Equal(t, want, in.Control, raw)
		}
	}
}

func TestRoute_NoFlowIsFreeText(t *testing.T) {
	for _, raw := range []string{"1", "yes", "₹500", "what is my balance"} {
		in := Route(raw, View{})
		assert.Equal(t, FreeText, in.Kind, raw)
		assert.Equal(t, raw, in.Raw)
	}
}

func TestRoute_MenuStep(t *testing.T) {
	v := View{ActiveFlow: "transfer", Expect: ShapeMenu, Menu: modeMenu}

	in := Route("1", v)
	assert.Equal(t, MenuChoice, in.Kind)
	assert.Equal(t, modeMenu[0], in.Choice)

	in = Route(" bank transfer ", v)
	assert.Equal(t, MenuChoice, in.Kind)
	assert.Equal(t, "2", in.Choice.Key)

	assert.Equal(t, FreeText, Route("3", v).Kind)
	assert.Equal(t, FreeText, Route("upi please", v).Kind)
}

func TestRoute_AmountStep(t *testing.T) {
	v := View{ActiveFlow: "transfer", Expect: ShapeAmount}

	in := Route("1", v)
	assert.Equal(t, Amount, in.Kind)
	assert.Equal(t, money.Rupees(1), in.Amount)

	in = Route("Rs. 2,50,000", v)
	assert.Equal(t, Amount, in.Kind)
	assert.Equal(t, money.Rupees(250000), in.Amount)

	assert.Equal(t, FreeText, Route("a lot", v).Kind)
	assert.Equal(t, FreeText, Route("0", v).Kind)
	assert.Equal(t, FreeText, Route("-5", v).Kind)
}

func TestRoute_ConfirmStep(t *testing.T) {
	v := View{ActiveFlow: "transfer", Expect: ShapeConfirm}

	in := Route("Yes!", v)
	assert.Equal(t, Confirmation, in.Kind)
	assert.True(t, in.Confirmed)

	in = Route("no", v)
	assert.Equal(t, Confirmation, in.Kind)
	assert.False(t, in.Confirmed)

	assert.Equal(t, FreeText, Route("maybe later", v).Kind)
}

func TestRoute_TextStepIsFreeText(t *testing.T) {
	v := View{ActiveFlow: "kyc", Expect: ShapeText}
	in := Route("Sai Rajesh", v)
	assert.Equal(t, FreeText, in.Kind)
	assert.Equal(t, "sai rajesh", in.Text)
}

func TestParseToken(t *testing.T) {
	tok, ok := ParseToken("Cancel")
	assert.True(t, ok)
	assert.Equal(t, Cancel, tok)

	_, ok = ParseToken("transfer")
	assert.False(t, ok)
}
