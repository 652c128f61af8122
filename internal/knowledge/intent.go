package knowledge

import (
	"strings"

	"github.com/bank-of-trust/bankbot-core/internal/router"
)

// Reserved labels produced by the classifier itself. Datasets may not use them.
const (
	LabelEmpty   = "empty"
	LabelUnknown = "unknown"
)

// AttrBalance asks the responder to fetch the caller's balance before rendering.
const AttrBalance = "balance"

// Intent is the resolved meaning of a label. The concrete type decides how a turn is handled:
// FlowIntent starts a flow, AnswerIntent renders a canned reply and ControlIntent behaves like the
// matching control word.
type Intent interface {
	Label() string
	isIntent()
}

type FlowIntent struct {
	Name string
	Flow string
}

func (f FlowIntent) Label() string { return f.Name }
func (FlowIntent) isIntent()       {}

type AnswerIntent struct {
	Name       string
	Responses  []string
	Attributes []string
	// exact maps a folded training utterance to the response paired with it.
	exact map[string]string
}

func (a AnswerIntent) Label() string { return a.Name }
func (AnswerIntent) isIntent()       {}

// Wants reports whether the response templates need the named attribute.
func (a AnswerIntent) Wants(attr string) bool {
	for _, x := range a.Attributes {
		if x == attr {
			return true
		}
	}
	return false
}

// Respond picks the response paired with an exact training utterance, otherwise rotates
// through the responses by turn so the choice is reproducible.
func (a AnswerIntent) Respond(query string, turn int) string {
	if r, ok := a.exact[fold(query)]; ok && r != "" {
		return r
	}
	if len(a.Responses) == 0 {
		return ""
	}
	if turn < 0 {
		turn = -turn
	}
	return a.Responses[turn%len(a.Responses)]
}

type ControlIntent struct {
	Name  string
	Token router.Token
}

func (c ControlIntent) Label() string { return c.Name }
func (ControlIntent) isIntent()       {}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
