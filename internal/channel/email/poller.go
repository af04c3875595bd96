// Package email polls an IMAP mailbox and feeds unseen messages into the
// honeypot pipeline. It is an ingest-only channel: persona replies surface
// through the API and the live feed, not as outbound mail.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/tarpitlabs/tarpit/internal/config"
	"github.com/tarpitlabs/tarpit/internal/domain"
	"github.com/tarpitlabs/tarpit/internal/engine"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

// MessageSink consumes inbound messages. The engine satisfies this.
type MessageSink interface {
	Handle(ctx context.Context, sessionID string, msg domain.Message, prior []domain.Message) (*engine.Result, error)
}

// Poller periodically drains unseen mail into the sink.
type Poller struct {
	cfg  config.EmailConfig
	sink MessageSink
	log  *logging.Logger
}

// NewPoller creates a mailbox poller.
func NewPoller(cfg config.EmailConfig, sink MessageSink, log *logging.Logger) *Poller {
	return &Poller{cfg: cfg, sink: sink, log: log.Sub("email")}
}

// Run polls until the context is cancelled. Poll failures are logged and
// retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	interval := time.Duration(p.cfg.PollSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	p.log.Info().
		Str("server", p.cfg.Server).
		Str("mailbox", p.cfg.Mailbox).
		Dur("interval", interval).
		Msg("email channel starting")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("email channel stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				p.log.Warn().Err(err).Msg("mailbox poll failed")
			}
		}
	}
}

// poll fetches unseen messages and hands each to the sink. Fetching the
// body section marks messages seen server-side, so a message is consumed
// at most once.
func (p *Poller) poll(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.Server, p.cfg.Port)
	c, err := client.DialTLS(addr, &tls.Config{})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Logout()

	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if _, err := c.Select(p.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("selecting %s: %w", p.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("searching unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	for msg := range messages {
		p.ingest(ctx, msg, section)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	return nil
}

func (p *Poller) ingest(ctx context.Context, msg *imap.Message, section *imap.BodySectionName) {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return
	}
	from := msg.Envelope.From[0].Address()

	body := ""
	if r := msg.GetBody(section); r != nil {
		text, err := extractText(r)
		if err != nil {
			p.log.Warn().Err(err).Str("from", from).Msg("could not extract message body")
		} else {
			body = text
		}
	}

	text := strings.TrimSpace(msg.Envelope.Subject + "\n\n" + body)
	if text == "" {
		return
	}

	inbound := domain.Message{
		Sender:    domain.SenderScammer,
		Text:      text,
		Timestamp: msg.Envelope.Date,
	}

	res, err := p.sink.Handle(ctx, SessionID(from), inbound, nil)
	if err != nil {
		p.log.Error().Err(err).Str("from", from).Msg("failed to process mail")
		return
	}

	p.log.Info().
		Str("from", from).
		Bool("scam", res.ScamDetected).
		Str("status", string(res.Status)).
		Int("turn", res.TurnCount).
		Msg("mail ingested")
}

// SessionID derives a stable session id from a sender address.
func SessionID(from string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(from))
}

// extractText pulls a plain-text body out of a raw RFC 822 message.
// Multipart messages yield their first text/plain part.
func extractText(r io.Reader) (string, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return "", fmt.Errorf("parsing message: %w", err)
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		body, err := io.ReadAll(msg.Body)
		return string(body), err
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parsing content type: %w", err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
			if partType == "text/plain" {
				return decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
			}
		}
		return "", fmt.Errorf("no text/plain part in %s", mediaType)
	}

	if strings.HasPrefix(mediaType, "text/") {
		return decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	return "", fmt.Errorf("unsupported content type: %s", mediaType)
}

func decodeBody(r io.Reader, encoding string) (string, error) {
	if strings.EqualFold(encoding, "quoted-printable") {
		r = quotedprintable.NewReader(r)
	}
	body, err := io.ReadAll(r)
	return string(body), err
}
