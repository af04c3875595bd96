// Package callback delivers the one-time intelligence report for a session
// to the external evaluation endpoint. The at-most-once guarantee lives in
// the engine (the session's reported flag); this package only handles
// transport, bounded retries, and payload shape.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tarpitlabs/tarpit/internal/domain"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

// Intelligence is the identifier set grouped by kind for the report payload.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// ExcerptMessage is one turn of the conversation excerpt included in the
// report.
type ExcerptMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Report is the outbound payload for one session.
type Report struct {
	SessionID     string           `json:"sessionId"`
	ScamDetected  bool             `json:"scamDetected"`
	TotalMessages int              `json:"totalMessagesExchanged"`
	Intelligence  Intelligence     `json:"extractedIntelligence"`
	AgentNotes    string           `json:"agentNotes,omitempty"`
	Excerpt       []ExcerptMessage `json:"conversationExcerpt,omitempty"`
}

// excerptLen bounds the conversation excerpt included in a report.
const excerptLen = 10

// BuildReport assembles the report payload from a session's state.
func BuildReport(sess *domain.Session, notes string) Report {
	intel := Intelligence{
		BankAccounts:       sess.IdentifiersOfKind(domain.KindBankAccount),
		UPIIDs:             sess.IdentifiersOfKind(domain.KindUPI),
		PhishingLinks:      sess.IdentifiersOfKind(domain.KindURL),
		PhoneNumbers:       sess.IdentifiersOfKind(domain.KindPhone),
		SuspiciousKeywords: sess.Keywords,
	}

	msgs := sess.Messages
	if len(msgs) > excerptLen {
		msgs = msgs[len(msgs)-excerptLen:]
	}
	excerpt := make([]ExcerptMessage, 0, len(msgs))
	for _, m := range msgs {
		excerpt = append(excerpt, ExcerptMessage{Sender: m.Sender, Text: m.Text})
	}

	return Report{
		SessionID:     sess.ID,
		ScamDetected:  true,
		TotalMessages: sess.TurnCount,
		Intelligence:  intel,
		AgentNotes:    notes,
		Excerpt:       excerpt,
	}
}

// Dispatcher delivers reports. Implementations must be safe for concurrent
// use by multiple sessions.
type Dispatcher interface {
	Dispatch(ctx context.Context, rep Report) error
}

// Defaults for the HTTP dispatcher.
const (
	defaultMaxAttempts = 3
	defaultTimeout     = 10 * time.Second
	defaultBackoff     = 500 * time.Millisecond
)

// HTTPDispatcher posts reports as JSON to a configured endpoint with
// bounded retries and exponential backoff.
type HTTPDispatcher struct {
	url         string
	authToken   string
	maxAttempts int
	backoff     time.Duration
	client      *http.Client
	log         *logging.Logger
}

// NewHTTPDispatcher creates a dispatcher for the given endpoint.
// A zero maxAttempts or timeout falls back to the defaults.
func NewHTTPDispatcher(url, authToken string, maxAttempts int, timeout time.Duration, log *logging.Logger) *HTTPDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPDispatcher{
		url:         url,
		authToken:   authToken,
		maxAttempts: maxAttempts,
		backoff:     defaultBackoff,
		client:      &http.Client{Timeout: timeout},
		log:         log.Sub("callback"),
	}
}

// Dispatch posts the report, retrying transient failures. It returns nil
// on the first 2xx response; after the attempt budget is exhausted the
// last error is returned.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, rep Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := d.backoff << (attempt - 2)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = d.post(ctx, payload)
		if lastErr == nil {
			d.log.Info().
				Str("sessionId", rep.SessionID).
				Int("attempt", attempt).
				Msg("callback delivered")
			return nil
		}

		d.log.Warn().
			Str("sessionId", rep.SessionID).
			Int("attempt", attempt).
			Err(lastErr).
			Msg("callback attempt failed")
	}

	return fmt.Errorf("callback delivery failed after %d attempts: %w", d.maxAttempts, lastErr)
}

func (d *HTTPDispatcher) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.authToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
