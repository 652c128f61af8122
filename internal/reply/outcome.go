// Package reply turns the outcome of a turn into the text shown to the user. Composition is
// pure: the same outcome always renders the same reply.
package reply

import "github.com/bank-of-trust/bankbot-core/internal/session"

// Detail is one labelled line of a summary.
type Detail struct {
	Label string
	Value string
}

// Outcome is the closed set of things a turn can produce.
type Outcome interface {
	outcome()
}

// FlowPrompt asks for the input of the current step.
type FlowPrompt struct {
	Title   string
	Intro   string
	Prompt  string
	Choices []session.Choice
	// Details is the summary shown before a confirmation.
	Details []Detail
}

// FlowError rejects an input and asks again.
type FlowError struct {
	Message   string
	Prompt    string
	Choices   []session.Choice
	Remaining int
}

// FlowPending acknowledges a submitted request that awaits the collaborator. Note replaces
// the submission line, e.g. when a cancel arrives too late.
type FlowPending struct {
	Title   string
	Note    string
	Details []Detail
}

// FlowCompleted closes a flow. Headline is the confirmation line.
type FlowCompleted struct {
	Title    string
	Headline string
	Details  []Detail
	Footer   string
}

type FlowAborted struct {
	Title  string
	Reason string
}

// IntentReply is a rendered knowledge base answer.
type IntentReply struct {
	Text string
}

type FallbackReason int

const (
	NotUnderstood FallbackReason = iota
	ModelUnavailable
	ServiceUnavailable
)

type Fallback struct {
	Reason FallbackReason
}

// Help explains the current step, or what the assistant can do when no flow is active.
type Help struct {
	Flow    string
	Prompt  string
	Choices []session.Choice
}

type MainMenu struct{}

// Empty answers a blank message. Inside a flow it carries the step prompt.
type Empty struct {
	Prompt  string
	Choices []session.Choice
}

// Notice prefixes another outcome with a one-line notice, e.g. an expired flow.
type Notice struct {
	Text string
	Then Outcome
}

func (FlowPrompt) outcome()    {}
func (FlowError) outcome()     {}
func (FlowPending) outcome()   {}
func (FlowCompleted) outcome() {}
func (FlowAborted) outcome()   {}
func (IntentReply) outcome()   {}
func (Fallback) outcome()      {}
func (Help) outcome()          {}
func (MainMenu) outcome()      {}
func (Empty) outcome()         {}
func (Notice) outcome()        {}
