package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	"github.com/bank-of-trust/bankbot-core/internal/flow"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/nlu"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
)

// BalanceReader is the read-only slice of the ledger answer templates need.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountID string) (money.Amount, error)
}

// NewRouterPreHandler seeds the graph state for a new turn.
func NewRouterPreHandler() func(context.Context, *model.Turn, *model.TurnState) (*model.Turn, error) {
	return func(ctx context.Context, in *model.Turn, s *model.TurnState) (*model.Turn, error) {
		if in == nil || in.Context == nil {
			return nil, fmt.Errorf("turn has no session context")
		}
		s.SessionID = in.SessionID
		return in, nil
	}
}

// NewRouterNode classifies the raw text by shape against what the current step expects.
func NewRouterNode(engine *flow.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		t.Routed = router.Route(t.Text, engine.View(t.Context))
		return t, nil
	})
}

func NewRouterPostHandler() func(context.Context, *model.Turn, *model.TurnState) (*model.Turn, error) {
	return func(ctx context.Context, out *model.Turn, s *model.TurnState) (*model.Turn, error) {
		s.Route = out.Routed.Kind.String()
		logx.Debug().
			Str("session_id", s.SessionID).
			Str("route", s.Route).
			Str("flow", out.Context.ActiveFlow).
			Msg("Input routed")
		return out, nil
	}
}

// NewRouteCondition picks the handler: control words always win, an active flow consumes
// everything else, and only free text outside a flow reaches the classifier.
func NewRouteCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch {
		case t.Routed.Kind == router.Control:
			return NodeControl, nil
		case t.Context.InFlow():
			return NodeFlow, nil
		default:
			return NodeClassify, nil
		}
	}
}

// NewFlowPreHandler remembers which flow the turn started in; the handler may finish it.
func NewFlowPreHandler() func(context.Context, *model.Turn, *model.TurnState) (*model.Turn, error) {
	return func(ctx context.Context, in *model.Turn, s *model.TurnState) (*model.Turn, error) {
		s.Flow = in.Context.ActiveFlow
		return in, nil
	}
}

// NewFlowNode hands the routed input to the active step.
func NewFlowNode(engine *flow.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		res := engine.Advance(t.Context, t.Routed, t.Profile)
		t.FlowEvent, t.Outcome, t.Request = res.Event, res.Outcome, res.Request
		return t, nil
	})
}

// NewControlNode handles cancel, help and menu regardless of the active step.
func NewControlNode(engine *flow.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		handleControl(engine, t, t.Routed.Control)
		return t, nil
	})
}

// NewHandlerPostHandler records the handler outcome for the composer and the transcript.
func NewHandlerPostHandler(node string) func(context.Context, *model.Turn, *model.TurnState) (*model.Turn, error) {
	return func(ctx context.Context, out *model.Turn, s *model.TurnState) (*model.Turn, error) {
		s.Handler = node
		if s.Flow == "" {
			s.Flow = out.Context.ActiveFlow
		}
		s.FlowEvent = string(out.FlowEvent)
		s.Fallback = out.Fallback
		if out.Intent != nil {
			s.Intent = out.Intent.Label
			s.Confidence = out.Intent.Confidence
		}
		logx.Debug().
			Str("session_id", s.SessionID).
			Str("node", node).
			Str("flow", s.Flow).
			Str("flow_event", s.FlowEvent).
			Str("intent", s.Intent).
			Float64("confidence", s.Confidence).
			Bool("fallback", s.Fallback).
			Msg("Turn handled")
		return out, nil
	}
}

func handleControl(engine *flow.Engine, t *model.Turn, tok router.Token) {
	sess := t.Context
	inFlow := sess.InFlow()
	switch tok {
	case router.Cancel:
		res := engine.Cancel(sess)
		t.Outcome = res.Outcome
		if inFlow {
			t.FlowEvent = res.Event
		}
	case router.Help:
		if !inFlow {
			t.Outcome = reply.Help{}
			return
		}
		prompt, choices := engine.Prompt(sess)
		t.Outcome = reply.Help{Flow: engine.Title(sess), Prompt: prompt, Choices: choices}
	case router.Menu:
		if !inFlow {
			t.Outcome = reply.MainMenu{}
			return
		}
		title := engine.Title(sess)
		res := engine.Cancel(sess)
		t.FlowEvent = res.Event
		if res.Event == flow.EventWaiting {
			t.Outcome = res.Outcome
			return
		}
		t.Outcome = reply.Notice{Text: title + " cancelled.", Then: reply.MainMenu{}}
	default:
		t.Outcome = reply.Fallback{Reason: reply.NotUnderstood}
	}
}

// NewClassifyNode resolves free text outside a flow through the generation pinned for
// this turn.
func NewClassifyNode(engine *flow.Engine, balances BalanceReader, threshold float64) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		if strings.TrimSpace(t.Text) == "" {
			t.Intent = &nlu.Result{Label: knowledge.LabelEmpty, Confidence: 1}
			t.Outcome = reply.Empty{}
			return t, nil
		}
		if t.Generation == nil {
			logx.Warn().Str("session_id", t.SessionID).Err(errx.ErrModelUnavailable).Msg("No intent model loaded")
			t.Fallback = true
			t.Outcome = reply.Fallback{Reason: reply.ModelUnavailable}
			return t, nil
		}

		res, err := t.Generation.Classify(t.Text).Accept(threshold)
		t.Intent = &res
		if err != nil {
			// below threshold
			t.Fallback = true
			t.Outcome = reply.Fallback{Reason: reply.NotUnderstood}
			return t, nil
		}

		switch in := res.Intent.(type) {
		case nil:
			// empty text is the only accepted label without an intent
			t.Outcome = reply.Empty{}
		case knowledge.FlowIntent:
			r, err := engine.Start(t.Context, in.Flow, t.Profile)
			if err != nil {
				logx.Error().Err(err).Str("flow", in.Flow).Str("intent", in.Name).Msg("Intent names an unknown flow")
				t.Fallback = true
				t.Outcome = reply.Fallback{Reason: reply.NotUnderstood}
				return t, nil
			}
			t.FlowEvent, t.Outcome = r.Event, r.Outcome
		case knowledge.AnswerIntent:
			out, err := renderAnswer(ctx, balances, in, t)
			if err != nil {
				logx.Error().Err(err).Str("session_id", t.SessionID).Str("intent", in.Name).Msg("Failed to render answer")
				t.Fallback = true
				reason := reply.NotUnderstood
				if errors.Is(err, errx.ErrCollaborator) {
					reason = reply.ServiceUnavailable
				}
				t.Outcome = reply.Fallback{Reason: reason}
				return t, nil
			}
			t.Outcome = out
		case knowledge.ControlIntent:
			handleControl(engine, t, in.Token)
		default:
			t.Fallback = true
			t.Outcome = reply.Fallback{Reason: reply.NotUnderstood}
		}
		return t, nil
	})
}

// NewComposeNode renders the handler outcome and copies the turn diagnostics out of the
// graph state.
func NewComposeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		out := t.Outcome
		if out == nil {
			t.Fallback = true
			out = reply.Fallback{Reason: reply.NotUnderstood}
		}
		if t.Notice != "" {
			out = reply.Notice{Text: t.Notice, Then: out}
		}
		t.Outcome = out
		t.Reply = reply.Compose(out)

		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			t.Trace = *s
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return t, nil
	})
}
