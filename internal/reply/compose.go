package reply

import (
	"fmt"
	"strings"

	"github.com/bank-of-trust/bankbot-core/internal/session"
)

// Reply is what the transport shows: text plus the menu choices, if any.
type Reply struct {
	Text    string
	Choices []session.Choice
}

const (
	notUnderstoodText = "Sorry, I didn't quite understand that. You can ask about your balance, " +
		"transfers, loans or opening an account, or type 'help'."
	modelUnavailableText   = "Sorry, I can't answer questions right now. Please try again in a moment."
	serviceUnavailableText = "Sorry, our banking service is not responding right now. Please try again later."
	emptyText              = "Please type a message. Type 'help' to see what I can do."
)

// capabilities are the phrases listed by help and the main menu.
var capabilities = []string{
	"Check balance: \"what is my balance\"",
	"Transfer money: \"transfer money\"",
	"Loan eligibility: \"check loan eligibility\"",
	"Open an account: \"open a new account\"",
	"Card services: \"block my card\", \"pay my credit card bill\"",
	"ATM services: \"find an atm near me\", \"atm withdrawal limit\"",
}

// Compose renders an outcome. The returned text is never empty.
func Compose(o Outcome) Reply {
	r := compose(o)
	if strings.TrimSpace(r.Text) == "" {
		r.Text = notUnderstoodText
	}
	return r
}

func compose(o Outcome) Reply {
	switch o := o.(type) {
	case FlowPrompt:
		var b strings.Builder
		line(&b, o.Intro)
		if len(o.Details) > 0 {
			line(&b, "Please review the details:")
			details(&b, o.Details)
		}
		line(&b, o.Prompt)
		choices(&b, o.Choices)
		return Reply{Text: b.String(), Choices: o.Choices}

	case FlowError:
		var b strings.Builder
		line(&b, o.Message)
		if o.Remaining == 1 {
			line(&b, "This is your last attempt.")
		}
		line(&b, o.Prompt)
		choices(&b, o.Choices)
		return Reply{Text: b.String(), Choices: o.Choices}

	case FlowPending:
		var b strings.Builder
		if o.Note != "" {
			line(&b, o.Note)
		} else {
			line(&b, fmt.Sprintf("Submitting your %s request...", lower(o.Title)))
		}
		details(&b, o.Details)
		return Reply{Text: b.String()}

	case FlowCompleted:
		var b strings.Builder
		line(&b, o.Headline)
		details(&b, o.Details)
		line(&b, o.Footer)
		line(&b, "Is there anything else I can help you with?")
		return Reply{Text: b.String()}

	case FlowAborted:
		var b strings.Builder
		title := o.Title
		if title == "" {
			title = "Request"
		}
		line(&b, title+" cancelled.")
		line(&b, o.Reason)
		line(&b, "Type 'menu' to see what I can do.")
		return Reply{Text: b.String()}

	case IntentReply:
		return Reply{Text: o.Text}

	case Fallback:
		switch o.Reason {
		case ModelUnavailable:
			return Reply{Text: modelUnavailableText}
		case ServiceUnavailable:
			return Reply{Text: serviceUnavailableText}
		default:
			return Reply{Text: notUnderstoodText}
		}

	case Help:
		var b strings.Builder
		if o.Flow != "" {
			line(&b, fmt.Sprintf("You're in the middle of %s.", lower(o.Flow)))
			line(&b, o.Prompt)
			choices(&b, o.Choices)
			line(&b, "Type 'cancel' to stop.")
			return Reply{Text: b.String(), Choices: o.Choices}
		}
		line(&b, "I can help you with:")
		bullets(&b, capabilities)
		return Reply{Text: b.String()}

	case MainMenu:
		var b strings.Builder
		line(&b, "Main menu. You can say:")
		bullets(&b, capabilities)
		return Reply{Text: b.String()}

	case Empty:
		if o.Prompt == "" {
			return Reply{Text: emptyText}
		}
		var b strings.Builder
		line(&b, o.Prompt)
		choices(&b, o.Choices)
		return Reply{Text: b.String(), Choices: o.Choices}

	case Notice:
		inner := Compose(o.Then)
		if o.Text == "" {
			return inner
		}
		return Reply{Text: o.Text + "\n" + inner.Text, Choices: inner.Choices}
	}
	return Reply{}
}

func line(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(s)
}

func details(b *strings.Builder, ds []Detail) {
	for _, d := range ds {
		line(b, fmt.Sprintf("- %s: %s", d.Label, d.Value))
	}
}

func choices(b *strings.Builder, cs []session.Choice) {
	for _, c := range cs {
		line(b, fmt.Sprintf("%s. %s", c.Key, c.Label))
	}
}

func bullets(b *strings.Builder, items []string) {
	for _, s := range items {
		line(b, "- "+s)
	}
}

func lower(s string) string {
	if s == "" {
		return "your"
	}
	return strings.ToLower(s)
}
