package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
	"github.com/google/uuid"
)

var (
	ErrUnknownFlow     = errors.New("unknown flow")
	ErrNoPending       = errors.New("no pending request")
	ErrRequestMismatch = errors.New("result does not match the pending request")
)

// Event summarizes what a flow call did, for logging and metrics.
type Event string

const (
	EventPrompted  Event = "prompted"
	EventRetry     Event = "retry"
	EventSubmitted Event = "submitted"
	EventWaiting   Event = "waiting"
	EventCompleted Event = "completed"
	EventAborted   Event = "aborted"
)

type Result struct {
	Event   Event
	Outcome reply.Outcome
	// Request is set when the flow submitted a side effect this turn.
	Request *ledger.Request
}

const (
	reasonTooManyAttempts = "Too many invalid attempts. Please start again when you're ready."
	reasonCancelled       = "Cancelled at your request."
	reasonIncomplete      = "Some details were missing. Please start again."
)

// Engine advances flows stored in session contexts. It keeps no state of its own.
type Engine struct {
	flows       *Registry
	maxFailures int
	newID       func() string
}

func NewEngine(flows *Registry, maxFailures int) *Engine {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &Engine{flows: flows, maxFailures: maxFailures, newID: uuid.NewString}
}

func (e *Engine) Flows() *Registry { return e.flows }

// current returns the active definition and step, or false when the context names
// something the registry does not know.
func (e *Engine) current(sess *session.Context) (*Definition, int, bool) {
	def, ok := e.flows.Get(sess.ActiveFlow)
	if !ok {
		return nil, 0, false
	}
	idx := sess.FlowStep - 1
	if idx < 0 || idx >= len(def.Steps) {
		return nil, 0, false
	}
	return def, idx, true
}

// View tells the router what the current step expects.
func (e *Engine) View(sess *session.Context) router.View {
	if !sess.InFlow() {
		return router.View{}
	}
	def, idx, ok := e.current(sess)
	if !ok {
		return router.View{}
	}
	return router.View{ActiveFlow: def.Name, Expect: def.Steps[idx].Shape, Menu: sess.LastMenu}
}

// Title is the human name of the active flow, or "" when none is running.
func (e *Engine) Title(sess *session.Context) string {
	if def, _, ok := e.current(sess); ok {
		return def.Title
	}
	return ""
}

// Sensitive reports whether the current step collects an identifier that must be masked
// wherever the raw input is kept.
func (e *Engine) Sensitive(sess *session.Context) bool {
	if !sess.InFlow() {
		return false
	}
	def, idx, ok := e.current(sess)
	return ok && def.Steps[idx].Sensitive
}

// Prompt returns the question of the current step.
func (e *Engine) Prompt(sess *session.Context) (string, []session.Choice) {
	def, idx, ok := e.current(sess)
	if !ok {
		return "", nil
	}
	step := def.Steps[idx]
	return step.Prompt, step.Choices
}

// Start enters the named flow at its first step, replacing whatever flow was running.
func (e *Engine) Start(sess *session.Context, name string, profile ledger.Profile) (Result, error) {
	def, ok := e.flows.Get(name)
	if !ok {
		return Result{}, ErrUnknownFlow
	}
	if def.RequiresAccount && !profile.Known() {
		return Result{
			Event:   EventAborted,
			Outcome: reply.FlowAborted{Title: def.Title, Reason: "Please sign in to your account to continue."},
		}, nil
	}
	first := def.Steps[0]
	sess.Enter(def.Name, first.Choices)
	return Result{
		Event:   EventPrompted,
		Outcome: reply.FlowPrompt{Title: def.Title, Intro: def.Intro, Prompt: first.Prompt, Choices: first.Choices},
	}, nil
}

// Advance feeds one routed input to the current step.
func (e *Engine) Advance(sess *session.Context, in router.Input, profile ledger.Profile) Result {
	def, idx, ok := e.current(sess)
	if !ok || !sess.InFlow() {
		sess.Clear()
		return Result{Event: EventAborted, Outcome: reply.FlowAborted{Reason: reasonIncomplete}}
	}
	env := Env{Profile: profile, Slots: sess.Slots}
	step := def.Steps[idx]

	if sess.Pending != nil {
		return Result{Event: EventWaiting, Outcome: reply.FlowPending{Title: def.Title, Details: def.summary(env)}}
	}
	if strings.TrimSpace(in.Raw) == "" {
		return Result{Event: EventPrompted, Outcome: reply.Empty{Prompt: step.Prompt, Choices: step.Choices}}
	}
	if !accepts(step.Shape, in.Kind) {
		return e.fail(sess, def, step, shapeHint(step.Shape))
	}
	value, err := step.Validate(in, env)
	if err != nil {
		msg := "That doesn't look right."
		var ve *ValidationError
		if errors.As(err, &ve) {
			msg = ve.Message
		}
		return e.fail(sess, def, step, msg)
	}

	sess.Slots[step.Slot] = value
	sess.Failures = 0
	t := step.then(value, env)
	switch {
	case t.abort != "":
		return e.abort(sess, def, t.abort)
	case t.submit:
		return e.submit(sess, def, env)
	}

	next := idx + 1
	if t.target != "" {
		next = def.index(t.target)
	}
	if next <= idx || next >= len(def.Steps) {
		return e.abort(sess, def, reasonIncomplete)
	}
	return e.moveTo(sess, def, next, env)
}

func (e *Engine) moveTo(sess *session.Context, def *Definition, idx int, env Env) Result {
	step := def.Steps[idx]
	sess.MoveTo(idx+1, step.Choices)
	p := reply.FlowPrompt{Title: def.Title, Prompt: step.Prompt, Choices: step.Choices}
	if step.Review {
		p.Details = def.summary(env)
	}
	return Result{Event: EventPrompted, Outcome: p}
}

func (e *Engine) fail(sess *session.Context, def *Definition, step Step, msg string) Result {
	sess.Failures++
	if sess.Failures >= e.maxFailures {
		return e.abort(sess, def, reasonTooManyAttempts)
	}
	return Result{
		Event: EventRetry,
		Outcome: reply.FlowError{
			Message:   msg,
			Prompt:    step.Prompt,
			Choices:   step.Choices,
			Remaining: e.maxFailures - sess.Failures,
		},
	}
}

func (e *Engine) abort(sess *session.Context, def *Definition, reason string) Result {
	sess.Finish(session.StatusAborted)
	return Result{Event: EventAborted, Outcome: reply.FlowAborted{Title: def.Title, Reason: reason}}
}

func (e *Engine) submit(sess *session.Context, def *Definition, env Env) Result {
	if _, err := def.Path(env); err != nil {
		return e.abort(sess, def, reasonIncomplete)
	}
	req, err := def.Request(env)
	if err != nil {
		return e.abort(sess, def, reasonIncomplete)
	}
	req.ID = e.newID()
	req.SessionID = sess.SessionID
	req.Flow = def.Name
	sess.Pending = &req
	out := req
	return Result{
		Event:   EventSubmitted,
		Outcome: reply.FlowPending{Title: def.Title, Details: def.summary(env)},
		Request: &out,
	}
}

// Cancel aborts the active flow from any step. A flow whose request is already with the
// ledger cannot be cancelled; its result still has to be settled.
func (e *Engine) Cancel(sess *session.Context) Result {
	title := e.Title(sess)
	if !sess.InFlow() {
		return Result{Event: EventAborted, Outcome: reply.FlowAborted{Title: title, Reason: "There was nothing in progress."}}
	}
	if sess.Pending != nil {
		var details []reply.Detail
		if def, _, ok := e.current(sess); ok {
			details = def.summary(Env{Slots: sess.Slots})
		}
		return Result{Event: EventWaiting, Outcome: reply.FlowPending{
			Title:   title,
			Note:    fmt.Sprintf("Your %s request is already being processed and can no longer be cancelled.", strings.ToLower(title)),
			Details: details,
		}}
	}
	sess.Finish(session.StatusAborted)
	return Result{Event: EventAborted, Outcome: reply.FlowAborted{Title: title, Reason: reasonCancelled}}
}

// Settle applies the collaborator's answer to the pending request.
func (e *Engine) Settle(sess *session.Context, res ledger.Result, profile ledger.Profile) (Result, error) {
	if sess.Pending == nil || !sess.InFlow() {
		return Result{}, ErrNoPending
	}
	if res.RequestID != sess.Pending.ID {
		return Result{}, ErrRequestMismatch
	}
	def, idx, ok := e.current(sess)
	if !ok {
		sess.Clear()
		return Result{}, ErrUnknownFlow
	}
	sess.Pending = nil
	env := Env{Profile: profile, Slots: sess.Slots}

	if res.Err != nil {
		step := def.Steps[idx]
		delete(sess.Slots, step.Slot)
		sess.Retries++
		msg := failureMessage(res.Err)
		if sess.Retries >= e.maxFailures {
			return e.abort(sess, def, msg+" Please try again later."), nil
		}
		if step.Shape == router.ShapeConfirm {
			msg += " Reply yes to try again or no to cancel."
		}
		return Result{
			Event: EventRetry,
			Outcome: reply.FlowError{
				Message:   msg,
				Prompt:    step.Prompt,
				Choices:   step.Choices,
				Remaining: e.maxFailures - sess.Retries,
			},
		}, nil
	}

	done := def.Complete(env, res)
	done.Title = def.Title
	sess.Finish(session.StatusCompleted)
	return Result{Event: EventCompleted, Outcome: done}, nil
}

func accepts(shape router.Shape, kind router.Kind) bool {
	switch shape {
	case router.ShapeMenu:
		return kind == router.MenuChoice
	case router.ShapeAmount:
		return kind == router.Amount
	case router.ShapeConfirm:
		return kind == router.Confirmation
	default:
		return kind == router.FreeText
	}
}

func shapeHint(shape router.Shape) string {
	switch shape {
	case router.ShapeMenu:
		return "Please choose one of the options by its number or name."
	case router.ShapeAmount:
		return "Please enter a valid amount, for example 1500 or ₹1,500."
	case router.ShapeConfirm:
		return "Please reply yes to confirm or no to cancel."
	default:
		return "Please type your answer."
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "Sorry, your account does not have enough balance for this."
	case errors.Is(err, ledger.ErrAccountNotFound):
		return "Sorry, the account could not be found."
	case errors.Is(err, ledger.ErrSelfTransfer):
		return "Sorry, you can't transfer money to your own account."
	case errors.Is(err, ledger.ErrUnauthorized):
		return "Sorry, this request could not be authorized."
	case errors.Is(err, ledger.ErrCardNotFound):
		return "Sorry, no card ending in those digits is linked to your account."
	case errors.Is(err, ledger.ErrCardLost):
		return "Sorry, this card was reported lost and can't be used again. You can request a new card instead."
	default:
		return "Sorry, our banking service could not process the request."
	}
}
