// Package engine drives the session lifecycle: classify inbound messages,
// keep the persona talking, collect payment identifiers, and fire the
// one-time intelligence callback once something actionable shows up.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tarpitlabs/tarpit/internal/callback"
	"github.com/tarpitlabs/tarpit/internal/detector"
	"github.com/tarpitlabs/tarpit/internal/domain"
	"github.com/tarpitlabs/tarpit/internal/intel"
	"github.com/tarpitlabs/tarpit/internal/logging"
	"github.com/tarpitlabs/tarpit/internal/persona"
)

// Defaults applied by New when the config leaves fields zero.
const (
	defaultWatchThreshold = 0.3
	defaultMaxTurns       = 15
)

// Config tunes the engagement loop.
type Config struct {
	// WatchThreshold is the minimum classifier score at which a
	// still-MONITORING session gets a persona reply.
	WatchThreshold float64

	// MaxTurns closes a session once the scammer message count exceeds it,
	// unless the session has already been reported.
	MaxTurns int
}

// Responder produces the persona's next reply from conversation history.
type Responder interface {
	Respond(ctx context.Context, history []domain.Message) (string, error)
}

// Notifier receives lifecycle events for the live feed. Implementations
// must not block.
type Notifier interface {
	Notify(evt Event)
}

// Event is one lifecycle notification.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Turn      int            `json:"turn"`
	Data      map[string]any `json:"data,omitempty"`
}

// Event types emitted by the engine.
const (
	EventEngaged  = "session.engaged"
	EventIntel    = "intel.extracted"
	EventCallback = "callback.fired"
	EventClosed   = "session.closed"
)

// Result summarizes the handling of one inbound message.
type Result struct {
	SessionID        string
	Status           domain.Status
	ScamDetected     bool
	ScamScore        float64
	Signals          []string
	Reply            string
	UsedFallback     bool
	TurnCount        int
	NewIdentifiers   []domain.Identifier
	TotalIdentifiers int
	CallbackFired    bool
	AgentNotes       string
	Warning          string
}

// Engine is the conversation controller. All per-session processing is
// serialized: two messages for the same session never interleave.
type Engine struct {
	cfg        Config
	classifier *detector.Classifier
	responder  Responder
	sessions   SessionStore
	dispatcher callback.Dispatcher
	notifier   Notifier
	locks      keyedMutex
	log        *logging.Logger
}

// New creates an engine. The notifier may be nil.
func New(cfg Config, classifier *detector.Classifier, responder Responder, sessions SessionStore, dispatcher callback.Dispatcher, notifier Notifier, log *logging.Logger) *Engine {
	if cfg.WatchThreshold <= 0 {
		cfg.WatchThreshold = defaultWatchThreshold
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		responder:  responder,
		sessions:   sessions,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log.Sub("engine"),
	}
}

// Sessions exposes the underlying store for read-side consumers.
func (e *Engine) Sessions() SessionStore { return e.sessions }

// Handle processes one inbound scammer message and returns the outcome.
// prior is caller-supplied history used only to seed a brand-new session;
// for known sessions the stored history wins.
func (e *Engine) Handle(ctx context.Context, sessionID string, msg domain.Message, prior []domain.Message) (*Result, error) {
	if sessionID == "" {
		return nil, errors.New("empty session id")
	}

	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess := e.sessions.GetOrCreate(sessionID)

	if sess.TurnCount == 0 && len(sess.Messages) == 0 && len(prior) > 0 {
		e.seedHistory(sessionID, prior)
		sess = e.sessions.Get(sessionID)
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	e.sessions.AppendMessage(sessionID, msg)
	turn := e.sessions.IncrementTurn(sessionID)

	verdict := e.classifier.Classify(msg.Text)
	e.sessions.SetScamScore(sessionID, verdict.Score)

	// Scam classification is sticky: once a session is ENGAGED (or beyond)
	// a benign-looking follow-up does not flip it back.
	scam := verdict.IsScam || sess.Status != domain.StatusMonitoring

	if verdict.IsScam && sess.Status == domain.StatusMonitoring {
		e.sessions.SetStatus(sessionID, domain.StatusEngaged)
		sess.Status = domain.StatusEngaged
		e.notify(Event{Type: EventEngaged, SessionID: sessionID, Turn: turn, Data: map[string]any{
			"score":   verdict.Score,
			"signals": verdict.Signals,
		}})
		e.log.Info().
			Str("sessionId", sessionID).
			Float64("score", verdict.Score).
			Strs("signals", verdict.Signals).
			Msg("scam detected, engaging")
	}

	res := &Result{
		SessionID:    sessionID,
		ScamDetected: scam,
		ScamScore:    verdict.Score,
		Signals:      verdict.Signals,
		TurnCount:    turn,
	}

	reply, usedFallback := e.reply(ctx, sessionID, sess, verdict, turn)
	if reply != "" {
		agentMsg := domain.Message{Sender: domain.SenderAgent, Text: reply, Timestamp: time.Now()}
		e.sessions.AppendMessage(sessionID, agentMsg)
		res.Reply = reply
		res.UsedFallback = usedFallback
	}

	added := e.collect(sessionID, turn, msg.Text, reply)
	res.NewIdentifiers = added

	sess = e.sessions.Get(sessionID)
	res.TotalIdentifiers = len(sess.Identifiers)

	if sess.HasCriticalIdentifier() && !sess.Reported {
		fired, warning := e.report(ctx, sessionID, turn)
		res.CallbackFired = fired
		res.Warning = warning
		if fired {
			sess = e.sessions.Get(sessionID)
		}
	}

	if turn > e.cfg.MaxTurns && !sess.Status.Terminal() {
		e.sessions.SetStatus(sessionID, domain.StatusClosed)
		sess.Status = domain.StatusClosed
		e.notify(Event{Type: EventClosed, SessionID: sessionID, Turn: turn})
		e.log.Info().Str("sessionId", sessionID).Int("turns", turn).Msg("turn cap reached, closing session")
	}

	res.Status = sess.Status
	res.AgentNotes = agentNotes(sess)
	return res, nil
}

// seedHistory loads caller-supplied prior turns into a fresh session. A
// request arriving with history is a conversation already in progress, so
// the session starts out ENGAGED rather than MONITORING. Seeded turns do
// not count against the turn cap, but identifiers in them are still
// collected.
func (e *Engine) seedHistory(sessionID string, prior []domain.Message) {
	var score float64
	for _, m := range prior {
		if m.Sender != domain.SenderScammer && m.Sender != domain.SenderAgent {
			m.Sender = domain.SenderScammer
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		e.sessions.AppendMessage(sessionID, m)

		if m.Sender == domain.SenderScammer {
			if v := e.classifier.Classify(m.Text); v.Score > score {
				score = v.Score
			}
		}

		ids := intel.Extract(m.Text)
		if len(ids) > 0 {
			e.sessions.AddIdentifiers(sessionID, ids)
		}
		if kws := intel.Keywords(m.Text); len(kws) > 0 {
			e.sessions.AddKeywords(sessionID, kws)
		}
	}

	e.sessions.SetStatus(sessionID, domain.StatusEngaged)
	e.sessions.SetScamScore(sessionID, score)
	e.notify(Event{Type: EventEngaged, SessionID: sessionID, Turn: 0, Data: map[string]any{
		"score":  score,
		"seeded": len(prior),
	}})
	e.log.Info().
		Str("sessionId", sessionID).
		Int("seededTurns", len(prior)).
		Float64("score", score).
		Msg("session seeded with prior history, engaging")
}

// reply decides whether the persona speaks this turn and produces the
// text. CLOSED sessions never reply; MONITORING sessions reply only above
// the watch threshold. An upstream outage degrades to a canned stall.
func (e *Engine) reply(ctx context.Context, sessionID string, sess *domain.Session, verdict detector.Verdict, turn int) (string, bool) {
	switch sess.Status {
	case domain.StatusClosed:
		return "", false
	case domain.StatusMonitoring:
		if verdict.Score < e.cfg.WatchThreshold {
			return "", false
		}
	}

	history := e.sessions.Get(sessionID).Messages
	reply, err := e.responder.Respond(ctx, history)
	if err == nil {
		return reply, false
	}

	if errors.Is(err, persona.ErrUpstreamUnavailable) {
		e.log.Warn().Str("sessionId", sessionID).Err(err).Msg("upstream unavailable, using fallback reply")
	} else {
		e.log.Error().Str("sessionId", sessionID).Err(err).Msg("responder failed, using fallback reply")
	}
	return persona.FallbackReply(turn), true
}

// collect extracts identifiers and keywords from the inbound text and the
// persona reply, merging them into the session.
func (e *Engine) collect(sessionID string, turn int, inbound, reply string) []domain.Identifier {
	ids := intel.Extract(inbound)
	if reply != "" {
		ids = append(ids, intel.Extract(reply)...)
	}
	for i := range ids {
		ids[i].SourceTurn = turn
	}

	added := e.sessions.AddIdentifiers(sessionID, ids)
	if kws := intel.Keywords(inbound); len(kws) > 0 {
		e.sessions.AddKeywords(sessionID, kws)
	}

	if len(added) > 0 {
		kinds := make([]string, 0, len(added))
		for _, id := range added {
			kinds = append(kinds, string(id.Kind))
		}
		e.notify(Event{Type: EventIntel, SessionID: sessionID, Turn: turn, Data: map[string]any{
			"kinds": kinds,
			"count": len(added),
		}})
		e.log.Info().
			Str("sessionId", sessionID).
			Strs("kinds", kinds).
			Msg("identifiers extracted")
	}
	return added
}

// report marks the session reported and dispatches the intelligence
// callback. The mark happens first: a delivery failure is logged and
// surfaced as a warning but never re-arms the callback.
func (e *Engine) report(ctx context.Context, sessionID string, turn int) (bool, string) {
	if !e.sessions.MarkReported(sessionID) {
		return false, ""
	}
	e.sessions.SetStatus(sessionID, domain.StatusReported)

	sess := e.sessions.Get(sessionID)
	rep := callback.BuildReport(sess, agentNotes(sess))

	if err := e.dispatcher.Dispatch(ctx, rep); err != nil {
		e.log.Error().Str("sessionId", sessionID).Err(err).Msg("callback dispatch failed")
		return true, "intelligence callback could not be delivered"
	}

	e.notify(Event{Type: EventCallback, SessionID: sessionID, Turn: turn, Data: map[string]any{
		"identifiers": len(sess.Identifiers),
	}})
	return true, ""
}

func (e *Engine) notify(evt Event) {
	if e.notifier != nil {
		e.notifier.Notify(evt)
	}
}

// agentNotes summarizes the engagement for the report payload.
func agentNotes(sess *domain.Session) string {
	value := "Low"
	if sess.HasCriticalIdentifier() {
		value = "High - payment infrastructure exposed"
	}
	return fmt.Sprintf(
		"Engaged threat actor across %d message(s). Collected %d unique identifier(s) and %d suspicious keyword(s). Intelligence value: %s.",
		sess.TurnCount, len(sess.Identifiers), len(sess.Keywords), value,
	)
}

// keyedMutex hands out one mutex per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
