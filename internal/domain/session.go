package domain

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusMonitoring means scam is not yet confirmed for this session.
	StatusMonitoring Status = "monitoring"
	// StatusEngaged means scam is confirmed and the persona is replying.
	StatusEngaged Status = "engaged"
	// StatusReported means the callback has fired. Terminal for reporting.
	StatusReported Status = "reported"
	// StatusClosed means the session ended (turn cap or explicit close).
	StatusClosed Status = "closed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusReported || s == StatusClosed
}

// Session tracks one conversation with a suspected scammer, keyed by the
// caller-supplied session identifier.
type Session struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	TurnCount   int          `json:"turnCount"` // scammer messages processed
	ScamScore   float64      `json:"scamScore"` // latest classifier confidence
	Reported    bool         `json:"reported"`  // callback fired, never unset
	Keywords    []string     `json:"keywords,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
	Messages    []Message    `json:"messages,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// HasIdentifier reports whether the session already holds an identifier
// with the same (kind, value) key.
func (s *Session) HasIdentifier(id Identifier) bool {
	for _, have := range s.Identifiers {
		if have.Kind == id.Kind && have.Value == id.Value {
			return true
		}
	}
	return false
}

// HasCriticalIdentifier reports whether any collected identifier is of a
// critical kind (UPI, bank account, phone number).
func (s *Session) HasCriticalIdentifier() bool {
	for _, id := range s.Identifiers {
		if id.Kind.Critical() {
			return true
		}
	}
	return false
}

// IdentifierKinds returns the distinct kinds collected so far.
func (s *Session) IdentifierKinds() []IdentifierKind {
	seen := make(map[IdentifierKind]bool)
	var kinds []IdentifierKind
	for _, id := range s.Identifiers {
		if !seen[id.Kind] {
			seen[id.Kind] = true
			kinds = append(kinds, id.Kind)
		}
	}
	return kinds
}

// IdentifiersOfKind returns the normalized values of the given kind.
func (s *Session) IdentifiersOfKind(kind IdentifierKind) []string {
	var vals []string
	for _, id := range s.Identifiers {
		if id.Kind == kind {
			vals = append(vals, id.Value)
		}
	}
	return vals
}
