package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tarpitlabs/tarpit/internal/domain"
)

// maxRequestBody bounds the honeypot request payload.
const maxRequestBody = 1 << 20 // 1MB

// apiMessage is one message in the request payload.
type apiMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"` // RFC3339; best-effort
}

// honeypotRequest is the inbound payload for POST /api/honeypot.
type honeypotRequest struct {
	SessionID           string         `json:"sessionId"`
	Message             apiMessage     `json:"message"`
	ConversationHistory []apiMessage   `json:"conversationHistory,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type engagementMetrics struct {
	TotalMessagesExchanged    int `json:"totalMessagesExchanged"`
	EngagementDurationSeconds int `json:"engagementDurationSeconds"`
}

type intelligenceSummary struct {
	IdentifiersFound int      `json:"identifiersFound"`
	Kinds            []string `json:"kinds"`
}

// honeypotResponse is the outbound payload for POST /api/honeypot.
// Identifier values are deliberately absent: they travel only over the
// callback, never back toward the scammer's channel.
type honeypotResponse struct {
	Status              string              `json:"status"`
	ScamDetected        bool                `json:"scamDetected"`
	SessionStatus       string              `json:"sessionStatus"`
	AgentReply          string              `json:"agentReply,omitempty"`
	EngagementMetrics   engagementMetrics   `json:"engagementMetrics"`
	IntelligenceSummary intelligenceSummary `json:"intelligenceSummary"`
	AgentNotes          string              `json:"agentNotes,omitempty"`
	Warning             string              `json:"warning,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// processMessage runs one scammer message through the engine.
func (s *Server) processMessage(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Status:  "error",
			Message: "invalid or missing API key",
		})
		return
	}

	var req honeypotRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  "error",
			Message: "malformed request body: " + err.Error(),
		})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  "error",
			Message: "sessionId is required",
		})
		return
	}
	if req.Message.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  "error",
			Message: "message.text is required",
		})
		return
	}

	msg := toDomainMessage(req.Message)
	prior := make([]domain.Message, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		prior = append(prior, toDomainMessage(m))
	}

	res, err := s.eng.Handle(r.Context(), req.SessionID, msg, prior)
	if err != nil {
		s.log.Error().Err(err).Str("sessionId", req.SessionID).Msg("engine failure")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status:  "error",
			Message: "internal error",
		})
		return
	}

	resp := honeypotResponse{
		Status:        "success",
		ScamDetected:  res.ScamDetected,
		SessionStatus: string(res.Status),
		AgentReply:    res.Reply,
		EngagementMetrics: engagementMetrics{
			TotalMessagesExchanged: res.TurnCount,
		},
		IntelligenceSummary: intelligenceSummary{
			IdentifiersFound: res.TotalIdentifiers,
		},
		AgentNotes: res.AgentNotes,
		Warning:    res.Warning,
	}

	if sess := s.eng.Sessions().Get(req.SessionID); sess != nil {
		resp.EngagementMetrics.EngagementDurationSeconds = int(sess.UpdatedAt.Sub(sess.CreatedAt).Seconds())
		for _, kind := range sess.IdentifierKinds() {
			resp.IntelligenceSummary.Kinds = append(resp.IntelligenceSummary.Kinds, string(kind))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func toDomainMessage(m apiMessage) domain.Message {
	sender := domain.SenderScammer
	if m.Sender == domain.SenderAgent {
		sender = domain.SenderAgent
	}

	msg := domain.Message{Sender: sender, Text: m.Text}
	if m.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			msg.Timestamp = ts
		}
	}
	return msg
}
