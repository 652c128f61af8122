// Package router decides, before any classification, what kind of input the user typed
// given the step the session is on. It is rule based and never consults the classifier.
package router

import (
	"strings"
	"unicode"

	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

type Kind int

const (
	FreeText Kind = iota
	MenuChoice
	Amount
	Confirmation
	Control
)

func (k Kind) String() string {
	switch k {
	case MenuChoice:
		return "menu_choice"
	case Amount:
		return "amount"
	case Confirmation:
		return "confirmation"
	case Control:
		return "control"
	default:
		return "free_text"
	}
}

// Token is a global control command.
type Token string

const (
	Cancel Token = "cancel"
	Help   Token = "help"
	Menu   Token = "menu"
)

// Shape is what the current flow step expects.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeMenu
	ShapeAmount
	ShapeText
	ShapeConfirm
)

func (s Shape) String() string {
	switch s {
	case ShapeMenu:
		return "menu"
	case ShapeAmount:
		return "amount"
	case ShapeText:
		return "text"
	case ShapeConfirm:
		return "confirm"
	default:
		return "none"
	}
}

// View is the slice of session state the router needs.
type View struct {
	ActiveFlow string
	Expect     Shape
	Menu       []session.Choice
}

// Input is a routed utterance.
type Input struct {
	Kind Kind
	// Raw is the utterance as typed; Text is it trimmed and lower-cased.
	Raw  string
	Text string

	Choice    session.Choice
	Amount    money.Amount
	Confirmed bool
	Control   Token
}

var controls = map[string]Token{
	"cancel":     Cancel,
	"stop":       Cancel,
	"abort":      Cancel,
	"quit":       Cancel,
	"help":       Help,
	"?":          Help,
	"menu":       Menu,
	"main menu":  Menu,
	"start over": Menu,
}

var (
	affirmative = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true,
		"confirm": true, "confirmed": true, "proceed": true, "go ahead": true, "continue": true,
		"yes please": true, "correct": true,
	}
	negative = map[string]bool{
		"no": true, "n": true, "nope": true, "nah": true, "don't": true, "do not": true,
		"no thanks": true, "not now": true, "decline": true,
	}
)

// ParseToken maps a control word to its token.
func ParseToken(s string) (Token, bool) {
	t, ok := controls[clean(s)]
	return t, ok
}

// Route classifies raw against the expectations in v.
func Route(raw string, v View) Input {
	in := Input{Kind: FreeText, Raw: raw, Text: clean(raw)}

	if tok, ok := controls[in.Text]; ok {
		in.Kind = Control
		in.Control = tok
		return in
	}
	if v.ActiveFlow == "" {
		return in
	}

	switch v.Expect {
	case ShapeMenu:
		if c, ok := matchChoice(in.Text, v.Menu); ok {
			in.Kind = MenuChoice
			in.Choice = c
		}
	case ShapeAmount:
		if a, err := money.Parse(in.Text); err == nil {
			in.Kind = Amount
			in.Amount = a
		}
	case ShapeConfirm:
		switch {
		case affirmative[in.Text]:
			in.Kind = Confirmation
			in.Confirmed = true
		case negative[in.Text]:
			in.Kind = Confirmation
		}
	}
	return in
}

func matchChoice(text string, menu []session.Choice) (session.Choice, bool) {
	for _, c := range menu {
		if text == strings.ToLower(c.Key) {
			return c, true
		}
	}
	for _, c := range menu {
		if text == strings.ToLower(c.Label) {
			return c, true
		}
	}
	return session.Choice{}, false
}

// clean lower-cases, trims and drops trailing sentence punctuation, keeping a lone "?".
func clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "?" {
		return s
	}
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}
