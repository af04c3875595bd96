package domain

import "time"

// Sender values for conversation messages.
const (
	SenderScammer = "scammer"
	SenderAgent   = "agent"
)

// Message is a single turn in a conversation. Immutable once appended.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
