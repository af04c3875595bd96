package engine

import (
	"sync"
	"time"

	"github.com/tarpitlabs/tarpit/internal/domain"
)

// SessionStore persists conversation sessions. Implementations must return
// copies (callers may not mutate stored state directly) and must make
// MarkReported atomic per session: of all concurrent callers exactly one
// sees true.
type SessionStore interface {
	// GetOrCreate returns the session, creating it in MONITORING state for
	// an unseen id.
	GetOrCreate(id string) *domain.Session

	// Get returns a session by id, or nil if not found.
	Get(id string) *domain.Session

	// AppendMessage adds a message to the session history.
	AppendMessage(id string, msg domain.Message)

	// IncrementTurn bumps the scammer-message counter and returns it.
	IncrementTurn(id string) int

	// SetScamScore records the latest classifier confidence.
	SetScamScore(id string, score float64)

	// SetStatus updates the lifecycle state.
	SetStatus(id string, status domain.Status)

	// AddIdentifiers merges identifiers into the session's set, dropping
	// (kind, value) duplicates. It returns only the newly added ones.
	AddIdentifiers(id string, ids []domain.Identifier) []domain.Identifier

	// AddKeywords merges suspicious keywords, dropping duplicates.
	AddKeywords(id string, keywords []string)

	// MarkReported flips the reported flag false→true. Returns false if the
	// session was already reported (or unknown).
	MarkReported(id string) bool

	// List returns all session ids.
	List() []string
}

// MemorySessionStore is an in-memory SessionStore implementation.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *MemorySessionStore) GetOrCreate(id string) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return cloneSession(sess)
	}

	now := time.Now()
	sess := &domain.Session{
		ID:        id,
		Status:    domain.StatusMonitoring,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[id] = sess
	return cloneSession(sess)
}

func (s *MemorySessionStore) Get(id string) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return cloneSession(sess)
}

func (s *MemorySessionStore) AppendMessage(id string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Messages = append(sess.Messages, msg)
		sess.UpdatedAt = time.Now()
	}
}

func (s *MemorySessionStore) IncrementTurn(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.TurnCount++
		return sess.TurnCount
	}
	return 0
}

func (s *MemorySessionStore) SetScamScore(id string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.ScamScore = score
	}
}

func (s *MemorySessionStore) SetStatus(id string, status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Status = status
		sess.UpdatedAt = time.Now()
	}
}

func (s *MemorySessionStore) AddIdentifiers(id string, ids []domain.Identifier) []domain.Identifier {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}

	var added []domain.Identifier
	for _, cand := range ids {
		if !sess.HasIdentifier(cand) {
			sess.Identifiers = append(sess.Identifiers, cand)
			added = append(added, cand)
		}
	}
	return added
}

func (s *MemorySessionStore) AddKeywords(id string, keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	have := make(map[string]bool, len(sess.Keywords))
	for _, kw := range sess.Keywords {
		have[kw] = true
	}
	for _, kw := range keywords {
		if !have[kw] {
			have[kw] = true
			sess.Keywords = append(sess.Keywords, kw)
		}
	}
}

func (s *MemorySessionStore) MarkReported(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Reported {
		return false
	}
	sess.Reported = true
	sess.UpdatedAt = time.Now()
	return true
}

func (s *MemorySessionStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func cloneSession(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.Keywords = append([]string(nil), sess.Keywords...)
	cp.Identifiers = append([]domain.Identifier(nil), sess.Identifiers...)
	cp.Messages = append([]domain.Message(nil), sess.Messages...)
	return &cp
}
