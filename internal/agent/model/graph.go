package model

import (
	"github.com/bank-of-trust/bankbot-core/internal/flow"
	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/nlu"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

// TurnState stores per-invocation diagnostics for the turn graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Written only inside state post-handlers and read with compose.ProcessState,
//     which eino serializes, so it needs no lock.
type TurnState struct {
	SessionID  string
	Route      string
	Handler    string
	Intent     string
	Confidence float64
	Fallback   bool
	Flow       string
	FlowEvent  string
}

// Turn is the payload that flows through the turn graph. The dialogue manager owns the
// session lock for as long as a Turn is in flight.
type Turn struct {
	SessionID  string
	Text       string
	Context    *session.Context
	Profile    ledger.Profile
	Generation *nlu.Generation
	// Notice is prefixed to the reply, e.g. when an idle flow expired.
	Notice string

	Routed    router.Input
	Intent    *nlu.Result
	FlowEvent flow.Event
	Fallback  bool
	Outcome   reply.Outcome
	Request   *ledger.Request

	Reply reply.Reply
	Trace TurnState
}
