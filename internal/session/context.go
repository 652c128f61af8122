// Package session holds the per-conversation dialogue state and the stores that keep it
// between turns. Only the dialogue manager mutates a Context, and only while it holds the
// session lock.
package session

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
)

// Status is the lifecycle state of the active flow.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Choice is one option of a menu shown to the user.
type Choice struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Context is the mutable state of one conversation.
type Context struct {
	SessionID  string            `json:"session_id"`
	ActiveFlow string            `json:"active_flow,omitempty"`
	FlowStep   int               `json:"flow_step,omitempty"`
	Status     Status            `json:"status,omitempty"`
	Slots      map[string]string `json:"slots,omitempty"`
	LastMenu   []Choice          `json:"last_menu,omitempty"`
	Failures   int               `json:"failures,omitempty"`
	Retries    int               `json:"retries,omitempty"`
	Pending    *ledger.Request   `json:"pending,omitempty"`
	TurnCount  int               `json:"turn_count"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// New returns an empty context with no active flow.
func New(sessionID string) *Context {
	return &Context{SessionID: sessionID, Slots: map[string]string{}}
}

// InFlow reports whether a flow is running and still accepting input.
func (c *Context) InFlow() bool {
	return c.ActiveFlow != "" && c.Status == StatusActive
}

// Terminal reports whether the flow ended during the previous turn and awaits clearing.
func (c *Context) Terminal() bool {
	return c.ActiveFlow != "" && (c.Status == StatusCompleted || c.Status == StatusAborted)
}

// Enter starts a flow at its first step.
func (c *Context) Enter(flow string, menu []Choice) {
	c.ActiveFlow = flow
	c.FlowStep = 1
	c.Status = StatusActive
	c.Slots = map[string]string{}
	c.LastMenu = slices.Clone(menu)
	c.Failures = 0
	c.Retries = 0
	c.Pending = nil
}

// MoveTo positions the flow at the given 1-based step.
func (c *Context) MoveTo(step int, menu []Choice) {
	c.FlowStep = step
	c.LastMenu = slices.Clone(menu)
	c.Failures = 0
}

// Finish marks the flow terminal. The flow stays visible until Clear at the next turn.
func (c *Context) Finish(s Status) {
	c.Status = s
	c.Pending = nil
	c.LastMenu = nil
}

// Clear drops every piece of flow state and returns the session to free-text mode.
func (c *Context) Clear() {
	c.ActiveFlow = ""
	c.FlowStep = 0
	c.Status = ""
	c.Slots = map[string]string{}
	c.LastMenu = nil
	c.Failures = 0
	c.Retries = 0
	c.Pending = nil
}

// Validate checks the flow_step/active_flow invariant.
func (c *Context) Validate() error {
	if (c.ActiveFlow == "") != (c.FlowStep == 0) {
		return fmt.Errorf("session %s: active flow %q with step %d", c.SessionID, c.ActiveFlow, c.FlowStep)
	}
	if c.ActiveFlow == "" && c.Pending != nil {
		return fmt.Errorf("session %s: pending request without a flow", c.SessionID)
	}
	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	out.Slots = maps.Clone(c.Slots)
	if out.Slots == nil {
		out.Slots = map[string]string{}
	}
	out.LastMenu = slices.Clone(c.LastMenu)
	if c.Pending != nil {
		p := *c.Pending
		out.Pending = &p
	}
	return &out
}
