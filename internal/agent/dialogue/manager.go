// Package dialogue runs turns: it owns the session lock for the whole turn, prepares the
// context, runs the turn graph and persists the result.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bank-of-trust/bankbot-core/internal/agent/graph"
	"github.com/bank-of-trust/bankbot-core/internal/agent/graph/conversations"
	"github.com/bank-of-trust/bankbot-core/internal/agent/graph/nodes"
	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	"github.com/bank-of-trust/bankbot-core/internal/flow"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/nlu"
	"github.com/bank-of-trust/bankbot-core/internal/observability"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/bank-of-trust/bankbot-core/internal/session"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
)

// Deps are the collaborators of a Manager. Transcript and Metrics are optional.
type Deps struct {
	Store      session.Store
	Profiles   ledger.Profiles
	Balances   nodes.BalanceReader
	Classifier *nlu.Classifier
	Flows      *flow.Registry
	Transcript *conversations.MessagesManager
	Metrics    *observability.Metrics
}

// Response is what the transport receives for a turn.
type Response struct {
	Reply reply.Reply
	// Request, when set, must be executed by the transport and reported back with Settle.
	Request    *ledger.Request
	Intent     string
	Confidence float64
	Fallback   bool
	Route      string
}

type Manager struct {
	cfg        model.DialogueConfig
	store      session.Store
	profiles   ledger.Profiles
	classifier *nlu.Classifier
	engine     *flow.Engine
	runner     graph.Runner
	transcript *conversations.MessagesManager
	metrics    *observability.Metrics
	now        func() time.Time
}

func New(ctx context.Context, cfg model.DialogueConfig, deps Deps) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("session store is nil")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile service is nil")
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier is nil")
	}
	flows := deps.Flows
	if flows == nil {
		flows = flow.Builtin()
	}
	engine := flow.NewEngine(flows, cfg.MaxFailures)

	runner, err := graph.BuildTurnGraph(ctx, &graph.GraphConfig{
		Engine:    engine,
		Balances:  deps.Balances,
		Threshold: cfg.Threshold,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:        cfg,
		store:      deps.Store,
		profiles:   deps.Profiles,
		classifier: deps.Classifier,
		engine:     engine,
		runner:     runner,
		transcript: deps.Transcript,
		metrics:    deps.Metrics,
		now:        time.Now,
	}, nil
}

// Flows lists the names of the registered flows.
func (m *Manager) Flows() []string {
	return m.engine.Flows().Names()
}

// Handle runs one user turn. Turns of the same session are serialized; turns of different
// sessions run in parallel. The only errors are store failures and lock timeouts; every
// other problem is answered with reply text.
func (m *Manager) Handle(ctx context.Context, sessionID, raw string) (Response, error) {
	start := m.now()
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return Response{}, err
	}
	defer unlock()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Response{}, fmt.Errorf("load session: %w", err)
	}
	notice := m.prepare(sess)
	sess.TurnCount++
	sensitive := m.engine.Sensitive(sess)

	// the graph works on a copy; a failed turn leaves the flow where it was
	turn := &model.Turn{
		SessionID:  sessionID,
		Text:       raw,
		Context:    sess.Clone(),
		Profile:    m.profile(ctx, sessionID),
		Generation: m.classifier.Current(),
		Notice:     notice,
	}
	out, err := m.runner.Invoke(ctx, turn)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("Turn graph failed")
		out = &model.Turn{SessionID: sessionID, Text: raw, Context: sess, Fallback: true}
		out.Outcome = reply.Fallback{Reason: reply.NotUnderstood}
		if notice != "" {
			out.Outcome = reply.Notice{Text: notice, Then: out.Outcome}
		}
		out.Reply = reply.Compose(out.Outcome)
	}
	sess = out.Context

	if err := m.store.Put(ctx, sess); err != nil {
		return Response{}, fmt.Errorf("save session: %w", err)
	}

	resp := Response{
		Reply:    out.Reply,
		Request:  out.Request,
		Fallback: out.Fallback,
		Route:    out.Trace.Route,
	}
	if out.Intent != nil {
		resp.Intent = out.Intent.Label
		resp.Confidence = out.Intent.Confidence
	}

	m.record(ctx, sessionID, transcriptText(raw, sensitive), resp)
	m.observe(out, resp, m.now().Sub(start))
	return resp, nil
}

// Settle applies the result of executing a Request previously returned by Handle.
// It fails with flow.ErrNoPending when the request was cancelled or already settled.
func (m *Manager) Settle(ctx context.Context, sessionID string, res ledger.Result) (Response, error) {
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return Response{}, err
	}
	defer unlock()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Response{}, fmt.Errorf("load session: %w", err)
	}
	name := sess.ActiveFlow
	r, err := m.engine.Settle(sess, res, m.profile(ctx, sessionID))
	if err != nil {
		return Response{}, err
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return Response{}, fmt.Errorf("save session: %w", err)
	}

	resp := Response{Reply: reply.Compose(r.Outcome)}
	if res.Err != nil {
		logx.Warn().Err(res.Err).Str("session_id", sessionID).Str("flow", name).Msg("Collaborator rejected request")
	}
	m.record(ctx, sessionID, "", resp)
	m.metrics.ObserveFlow(name, string(r.Event))
	return resp, nil
}

// Reload retrains the classifier. Turns keep using the previous generation until the swap.
func (m *Manager) Reload(ctx context.Context, d knowledge.Dataset) (string, error) {
	start := m.now()
	id, err := m.classifier.Reload(ctx, d)
	var seq uint64
	if g := m.classifier.Current(); g != nil {
		seq = g.Seq
	}
	m.metrics.ObserveReload(seq, m.now().Sub(start), err)
	return id, err
}

func (m *Manager) lock(ctx context.Context, sessionID string) (session.Unlock, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	lctx := ctx
	if m.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, m.cfg.LockTimeout)
		defer cancel()
	}
	unlock, err := m.store.Lock(lctx, sessionID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = session.ErrLockTimeout
		}
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to lock session")
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return unlock, nil
}

// prepare resets a finished flow and expires a flow left idle too long. A flow waiting for
// its ledger result never expires, so the result can still be settled. It returns a notice
// for the reply when a flow expired.
func (m *Manager) prepare(sess *session.Context) string {
	if sess.Terminal() {
		sess.Clear()
		return ""
	}
	if !sess.InFlow() || sess.Pending != nil || m.cfg.FlowTTL <= 0 || sess.UpdatedAt.IsZero() {
		return ""
	}
	if m.now().Sub(sess.UpdatedAt) <= m.cfg.FlowTTL {
		return ""
	}
	title := m.engine.Title(sess)
	if title == "" {
		title = "previous"
	}
	logx.Info().Str("session_id", sess.SessionID).Str("flow", sess.ActiveFlow).Msg("Idle flow expired")
	m.metrics.ObserveFlow(sess.ActiveFlow, "expired")
	sess.Clear()
	return fmt.Sprintf("Your %s request timed out and was cancelled.", strings.ToLower(title))
}

// profile degrades to an anonymous caller when the profile service fails.
func (m *Manager) profile(ctx context.Context, sessionID string) ledger.Profile {
	p, err := m.profiles.Lookup(ctx, sessionID)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Profile lookup failed; continuing anonymously")
		return ledger.Profile{}
	}
	return p
}

// transcriptText masks what was typed at a sensitive step, such as an account or
// Aadhaar number. Control words are kept as typed.
func transcriptText(raw string, sensitive bool) string {
	if !sensitive || strings.TrimSpace(raw) == "" {
		return raw
	}
	if _, ok := router.ParseToken(raw); ok {
		return raw
	}
	return money.MaskDigits(raw)
}

func (m *Manager) record(ctx context.Context, sessionID, userText string, resp Response) {
	if m.transcript == nil {
		return
	}
	err := m.transcript.RecordTurn(ctx, sessionID, userText, resp.Reply.Text, conversations.TurnRecord{
		Intent:     resp.Intent,
		Confidence: resp.Confidence,
		Fallback:   resp.Fallback,
		Route:      resp.Route,
	})
	if err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to record transcript")
	}
}

func (m *Manager) observe(out *model.Turn, resp Response, took time.Duration) {
	route := resp.Route
	if route == "" {
		route = "unrouted"
	}
	m.metrics.ObserveTurn(route, took)
	if resp.Fallback {
		m.metrics.ObserveFallback(fallbackReason(out.Outcome))
	} else {
		m.metrics.ObserveIntent(resp.Intent)
	}
	m.metrics.ObserveFlow(out.Trace.Flow, out.Trace.FlowEvent)
}

func fallbackReason(o reply.Outcome) string {
	if n, ok := o.(reply.Notice); ok {
		o = n.Then
	}
	f, ok := o.(reply.Fallback)
	if !ok {
		return "other"
	}
	switch f.Reason {
	case reply.ModelUnavailable:
		return "model_unavailable"
	case reply.ServiceUnavailable:
		return "service_unavailable"
	default:
		return "not_understood"
	}
}
