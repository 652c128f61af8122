// Package flow runs the guided, deterministic multi-step conversations: transfers, loan
// eligibility, KYC onboarding and card and ATM servicing. A flow only ever collects
// validated values; the money-moving call it leads to leaves the engine as a ledger.Request.
package flow

import (
	"errors"
	"fmt"
	"slices"

	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
)

// Env is what validators and transitions may look at.
type Env struct {
	Profile ledger.Profile
	Slots   map[string]string
}

// Validator turns a routed input into the slot value, or returns a *ValidationError.
type Validator func(in router.Input, env Env) (string, error)

// ValidationError carries the message shown to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return errx.ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Transition says where a flow goes once a step holds a valid value.
type Transition struct {
	target string
	abort  string
	submit bool
}

// Next moves to the following step.
func Next() Transition { return Transition{} }

// Goto jumps forward to the step filling slot.
func Goto(slot string) Transition { return Transition{target: slot} }

// Abort ends the flow with a reason shown to the user.
func Abort(reason string) Transition { return Transition{abort: reason} }

// Submit completes collection and emits the request.
func Submit() Transition { return Transition{submit: true} }

type Step struct {
	Slot   string
	Label  string
	Prompt string
	Shape  router.Shape
	// Choices are shown as a numbered menu for ShapeMenu steps.
	Choices  []session.Choice
	Validate Validator
	// Then picks the transition for a valid value; nil means Next.
	Then func(value string, env Env) Transition
	// Display formats the value for summaries.
	Display   func(value string) string
	Sensitive bool
	// Review shows the collected values above the prompt.
	Review bool
}

func (s Step) then(value string, env Env) Transition {
	if s.Then == nil {
		return Next()
	}
	return s.Then(value, env)
}

func (s Step) display(value string) string {
	if s.Sensitive {
		return money.MaskDigits(value)
	}
	if s.Display != nil {
		return s.Display(value)
	}
	return value
}

// Definition is a static flow registered at startup.
type Definition struct {
	Name  string
	Title string
	Intro string
	// RequiresAccount refuses to start for sessions without an identified customer.
	RequiresAccount bool
	Steps           []Step
	// Request builds the side effect from the collected slots.
	Request func(env Env) (ledger.Request, error)
	// Complete summarizes a settled request.
	Complete func(env Env, res ledger.Result) reply.FlowCompleted
}

var errIncomplete = errors.New("flow path incomplete")

func (d *Definition) index(slot string) int {
	return slices.IndexFunc(d.Steps, func(s Step) bool { return s.Slot == slot })
}

// Path replays the transitions from the first step over the collected slots and returns the
// step indexes visited. It fails unless every step on the path holds a value and the path
// ends in Submit.
func (d *Definition) Path(env Env) ([]int, error) {
	var path []int
	i := 0
	for len(path) <= len(d.Steps) {
		if i < 0 || i >= len(d.Steps) {
			return nil, fmt.Errorf("%w: %s runs past its last step", errIncomplete, d.Name)
		}
		step := d.Steps[i]
		v, ok := env.Slots[step.Slot]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no value for %s", errIncomplete, d.Name, step.Slot)
		}
		path = append(path, i)
		t := step.then(v, env)
		switch {
		case t.abort != "":
			return nil, fmt.Errorf("%w: %s aborts at %s", errIncomplete, d.Name, step.Slot)
		case t.submit:
			return path, nil
		case t.target != "":
			i = d.index(t.target)
		default:
			i++
		}
	}
	return nil, fmt.Errorf("%w: %s loops", errIncomplete, d.Name)
}

// summary lists the collected values along the path, in order, under their human labels.
func (d *Definition) summary(env Env) []reply.Detail {
	var out []reply.Detail
	i := 0
	for n := 0; n < len(d.Steps) && i >= 0 && i < len(d.Steps); n++ {
		step := d.Steps[i]
		v, ok := env.Slots[step.Slot]
		if !ok {
			break
		}
		if step.Label != "" {
			out = append(out, reply.Detail{Label: step.Label, Value: step.display(v)})
		}
		t := step.then(v, env)
		if t.abort != "" || t.submit {
			break
		}
		if t.target != "" {
			i = d.index(t.target)
		} else {
			i++
		}
	}
	return out
}

func (d *Definition) validate() error {
	if d.Name == "" || len(d.Steps) == 0 {
		return fmt.Errorf("flow %q: no steps", d.Name)
	}
	if d.Request == nil || d.Complete == nil {
		return fmt.Errorf("flow %q: request and completion are required", d.Name)
	}
	seen := map[string]bool{}
	for _, s := range d.Steps {
		if s.Slot == "" || seen[s.Slot] {
			return fmt.Errorf("flow %q: missing or duplicate slot %q", d.Name, s.Slot)
		}
		seen[s.Slot] = true
		if s.Validate == nil {
			return fmt.Errorf("flow %q: step %q has no validator", d.Name, s.Slot)
		}
		if s.Shape == router.ShapeMenu && len(s.Choices) == 0 {
			return fmt.Errorf("flow %q: menu step %q has no choices", d.Name, s.Slot)
		}
	}
	return nil
}

// Registry holds the flow definitions by name.
type Registry struct {
	defs  map[string]*Definition
	names []string
}

func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("flow %q registered twice", d.Name)
		}
		r.defs[d.Name] = d
		r.names = append(r.names, d.Name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Builtin registers the bank's standard flows.
func Builtin() *Registry {
	r, err := NewRegistry(Transfer(), LoanEligibility(), KYC(), Cards(), ATM())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered flow names, sorted.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}
