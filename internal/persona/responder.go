// Package persona turns conversation history into the honeypot's next
// reply using a fixed confused-user character and a registry of LLM
// providers. It is the only blocking point in the message pipeline; every
// upstream failure is folded into ErrUpstreamUnavailable so the caller can
// substitute a canned stalling reply.
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tarpitlabs/tarpit/internal/domain"
	"github.com/tarpitlabs/tarpit/internal/llm"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

// ErrUpstreamUnavailable indicates the text-generation service could not
// produce a reply (unreachable, timeout, or bad response).
var ErrUpstreamUnavailable = errors.New("upstream text service unavailable")

// Defaults applied by NewResponder when the config leaves fields zero.
const (
	defaultName              = "Ramesh"
	defaultMaxTokens         = 100
	defaultHistoryWindow     = 12
	defaultTimeout           = 8 * time.Second
	defaultMaxReplySentences = 2
)

// Config is the fixed persona configuration.
type Config struct {
	Name              string        // character name
	Character         string        // extra character description appended to the prompt
	Model             string        // primary model/provider reference
	Fallbacks         []string      // tried in order on retryable errors
	MaxTokens         int           // reply length cap
	Temperature       *float64      // sampling temperature
	HistoryWindow     int           // most-recent turns sent upstream
	MaxReplySentences int           // replies truncated to this many sentences, also stated in the prompt
	Timeout           time.Duration // per-call upstream deadline
}

// Responder produces persona replies from conversation history.
type Responder struct {
	cfg      Config
	registry *llm.Registry
	system   string
	log      *logging.Logger
}

// NewResponder creates a responder with defaults applied.
func NewResponder(cfg Config, registry *llm.Registry, log *logging.Logger) *Responder {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.MaxReplySentences <= 0 {
		cfg.MaxReplySentences = defaultMaxReplySentences
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Responder{
		cfg:      cfg,
		registry: registry,
		system:   BuildSystemPrompt(cfg),
		log:      log.Sub("persona"),
	}
}

// Respond generates the next reply for the given history. The history is
// bounded to the configured window of most-recent turns; scammer messages
// map to the user role, agent messages to the assistant role. All provider
// failures surface as ErrUpstreamUnavailable.
func (r *Responder) Respond(ctx context.Context, history []domain.Message) (string, error) {
	if len(history) > r.cfg.HistoryWindow {
		history = history[len(history)-r.cfg.HistoryWindow:]
	}

	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Sender == domain.SenderAgent {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Text})
	}

	req := llm.CompletionRequest{
		System:      r.system,
		Messages:    msgs,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	models := append([]string{r.cfg.Model}, r.cfg.Fallbacks...)

	var lastErr error
	for _, model := range models {
		client, err := r.registry.Resolve(model)
		if err != nil {
			lastErr = err
			continue
		}

		req.Model = model
		resp, err := client.Complete(ctx, req)
		if err == nil {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				lastErr = fmt.Errorf("%s returned empty reply", client.Name())
				continue
			}
			return capSentences(reply, r.cfg.MaxReplySentences), nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
		r.log.Warn().Str("model", model).Err(err).Msg("retryable error, trying next provider")
	}

	r.log.Warn().Err(lastErr).Msg("no provider produced a reply")
	return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// fallbackReplies are canned stalling lines used when the upstream service
// is unavailable. The rotation keeps repeated outages from producing
// identical replies back to back.
var fallbackReplies = []string{
	"What is this? Why is my account having issues? Please explain.",
	"I don't understand. Can you explain what this is about?",
	"I am having trouble with my network, please wait...",
	"Sorry, my phone is acting up. What do you need me to do again?",
}

// FallbackReply returns a canned stalling reply for the given turn.
func FallbackReply(turn int) string {
	if turn < 0 {
		turn = 0
	}
	return fallbackReplies[turn%len(fallbackReplies)]
}

// capSentences truncates text after at most n sentences. The prompt asks
// for short replies but models overrun it; this enforces the cap. A
// punctuation mark only ends a sentence when followed by whitespace or the
// end of the text.
func capSentences(text string, n int) string {
	if n <= 0 {
		return text
	}

	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '.' && text[i] != '!' && text[i] != '?' {
			continue
		}
		for i+1 < len(text) && (text[i+1] == '.' || text[i+1] == '!' || text[i+1] == '?') {
			i++
		}
		if i+1 < len(text) && text[i+1] != ' ' && text[i+1] != '\n' && text[i+1] != '\t' {
			continue
		}
		count++
		if count >= n {
			return text[:i+1]
		}
	}
	return text
}

// isRetryable checks if the error suggests trying another provider.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 401, 403, 429, 500, 502, 503, 529:
			return true
		}
		if provErr.Code == 0 {
			return true // transport-level failure
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded")
}
