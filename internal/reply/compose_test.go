package reply

import (
	"testing"

	"github.com/bank-of-trust/bankbot-core/internal/session"
	"github.com/stretchr/testify/assert"
)

var modes = []session.Choice{{Key: "1", Label: "UPI"}, {Key: "2", Label: "Bank Transfer"}}

func TestCompose_NeverEmpty(t *testing.T) {
	outcomes := []Outcome{
		FlowPrompt{},
		FlowError{},
		FlowPending{},
		FlowCompleted{},
		FlowAborted{},
		IntentReply{},
		Fallback{},
		Fallback{Reason: ModelUnavailable},
		Fallback{Reason: ServiceUnavailable},
		Help{},
		Help{Flow: "Fund transfer"},
		MainMenu{},
		Empty{},
		Notice{Then: IntentReply{}},
		nil,
	}
	for _, o := range outcomes {
		assert.NotEmpty(t, Compose(o).Text, "%#v", o)
	}
}

func TestCompose_FlowPromptWithMenu(t *testing.T) {
	r := Compose(FlowPrompt{Prompt: "How would you like to send the money?", Choices: modes})
	assert.Equal(t, "How would you like to send the money?\n1. UPI\n2. Bank Transfer", r.Text)
	assert.Equal(t, modes, r.Choices)
}

func TestCompose_ConfirmationSummary(t *testing.T) {
	r := Compose(FlowPrompt{
		Prompt:  "Shall I go ahead? (yes/no)",
		Details: []Detail{{Label: "Recipient account", Value: "XX 0002"}, {Label: "Amount", Value: "₹1,500"}},
	})
	assert.Equal(t, "Please review the details:\n- Recipient account: XX 0002\n- Amount: ₹1,500\nShall I go ahead? (yes/no)", r.Text)
}

func TestCompose_FlowErrorLastAttempt(t *testing.T) {
	r := Compose(FlowError{Message: "Please enter a valid amount.", Prompt: "How much?", Remaining: 1})
	assert.Equal(t, "Please enter a valid amount.\nThis is your last attempt.\nHow much?", r.Text)

	r = Compose(FlowError{Message: "Please enter a valid amount.", Prompt: "How much?", Remaining: 2})
	assert.NotContains(t, r.Text, "last attempt")
}

func TestCompose_Pending(t *testing.T) {
	details := []Detail{{Label: "Amount", Value: "₹1,500"}}
	r := Compose(FlowPending{Title: "Fund transfer", Details: details})
	assert.Equal(t, "Submitting your fund transfer request...\n- Amount: ₹1,500", r.Text)

	r = Compose(FlowPending{Title: "Fund transfer", Note: "Your fund transfer request is already being processed.", Details: details})
	assert.Equal(t, "Your fund transfer request is already being processed.\n- Amount: ₹1,500", r.Text)
}

func TestCompose_Completed(t *testing.T) {
	r := Compose(FlowCompleted{
		Headline: "Transfer successful.",
		Details:  []Detail{{Label: "Reference", Value: "BOT1234567890"}, {Label: "Amount", Value: "₹1,500"}},
	})
	assert.Equal(t, "Transfer successful.\n- Reference: BOT1234567890\n- Amount: ₹1,500\nIs there anything else I can help you with?", r.Text)
	assert.Empty(t, r.Choices)
}

func TestCompose_AbortedAndNotice(t *testing.T) {
	r := Compose(Notice{
		Text: "Your previous request timed out.",
		Then: FlowAborted{Title: "Fund transfer", Reason: "Too many invalid attempts."},
	})
	assert.Equal(t, "Your previous request timed out.\nFund transfer cancelled.\nToo many invalid attempts.\nType 'menu' to see what I can do.", r.Text)
}

func TestCompose_HelpInFlow(t *testing.T) {
	r := Compose(Help{Flow: "Fund transfer", Prompt: "How would you like to send the money?", Choices: modes})
	assert.Contains(t, r.Text, "You're in the middle of fund transfer.")
	assert.Contains(t, r.Text, "2. Bank Transfer")
	assert.Contains(t, r.Text, "Type 'cancel' to stop.")
	assert.Equal(t, modes, r.Choices)
}
