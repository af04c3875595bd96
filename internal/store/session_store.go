package store

import (
	"encoding/json"
	"time"

	"github.com/tarpitlabs/tarpit/internal/domain"
)

// SQLiteSessionStore implements engine.SessionStore backed by SQLite.
// The engine serializes writes per session, so the only cross-goroutine
// race that matters here is MarkReported, which is a single compare-and-set
// UPDATE.
type SQLiteSessionStore struct {
	db *DB
}

// NewSQLiteSessionStore creates a session store using the given database.
func NewSQLiteSessionStore(db *DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// GetOrCreate finds an existing session by id or creates a new one in
// monitoring state.
func (s *SQLiteSessionStore) GetOrCreate(id string) *domain.Session {
	if sess := s.Get(id); sess != nil {
		return sess
	}

	now := time.Now()
	_, err := s.db.sql.Exec(
		`INSERT OR IGNORE INTO sessions (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(domain.StatusMonitoring), now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to create session")
	}
	return s.Get(id)
}

// Get returns a fully loaded session by id, or nil if not found.
func (s *SQLiteSessionStore) Get(id string) *domain.Session {
	var (
		sess                 domain.Session
		status               string
		reported             int
		keywordsJSON         string
		createdAt, updatedAt string
	)

	err := s.db.sql.QueryRow(
		`SELECT id, status, turn_count, scam_score, reported, keywords, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &status, &sess.TurnCount, &sess.ScamScore, &reported, &keywordsJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil
	}

	sess.Status = domain.Status(status)
	sess.Reported = reported != 0
	_ = json.Unmarshal([]byte(keywordsJSON), &sess.Keywords)
	sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)

	sess.Messages = s.loadMessages(id)
	sess.Identifiers = s.loadIdentifiers(id)
	return &sess
}

// AppendMessage adds a message to a session's history.
func (s *SQLiteSessionStore) AppendMessage(id string, msg domain.Message) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO messages (session_id, sender, content, timestamp) VALUES (?, ?, ?, ?)`,
		id, msg.Sender, msg.Text, ts.Format(time.DateTime),
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to append message")
		return
	}
	s.touch(id)
}

// IncrementTurn bumps the scammer-message counter and returns it.
func (s *SQLiteSessionStore) IncrementTurn(id string) int {
	_, err := s.db.sql.Exec(`UPDATE sessions SET turn_count = turn_count + 1 WHERE id = ?`, id)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to increment turn")
		return 0
	}

	var turn int
	if err := s.db.sql.QueryRow(`SELECT turn_count FROM sessions WHERE id = ?`, id).Scan(&turn); err != nil {
		return 0
	}
	return turn
}

// SetScamScore records the latest classifier confidence.
func (s *SQLiteSessionStore) SetScamScore(id string, score float64) {
	_, err := s.db.sql.Exec(`UPDATE sessions SET scam_score = ? WHERE id = ?`, score, id)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to set scam score")
	}
}

// SetStatus updates the lifecycle state.
func (s *SQLiteSessionStore) SetStatus(id string, status domain.Status) {
	_, err := s.db.sql.Exec(
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Format(time.DateTime), id,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to set status")
	}
}

// AddIdentifiers merges identifiers into the session's set. The UNIQUE
// (session_id, kind, value) constraint drops duplicates; only genuinely
// new rows are returned.
func (s *SQLiteSessionStore) AddIdentifiers(id string, ids []domain.Identifier) []domain.Identifier {
	var added []domain.Identifier
	for _, cand := range ids {
		res, err := s.db.sql.Exec(
			`INSERT OR IGNORE INTO identifiers (session_id, kind, value, raw, source_turn)
			 VALUES (?, ?, ?, ?, ?)`,
			id, string(cand.Kind), cand.Value, cand.Raw, cand.SourceTurn,
		)
		if err != nil {
			s.db.log.Error().Err(err).Str("session", id).Msg("failed to add identifier")
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added = append(added, cand)
		}
	}
	if len(added) > 0 {
		s.touch(id)
	}
	return added
}

// AddKeywords merges suspicious keywords into the session's keyword list.
func (s *SQLiteSessionStore) AddKeywords(id string, keywords []string) {
	if len(keywords) == 0 {
		return
	}

	var current []string
	var keywordsJSON string
	err := s.db.sql.QueryRow(`SELECT keywords FROM sessions WHERE id = ?`, id).Scan(&keywordsJSON)
	if err != nil {
		return
	}
	_ = json.Unmarshal([]byte(keywordsJSON), &current)

	have := make(map[string]bool, len(current))
	for _, kw := range current {
		have[kw] = true
	}
	changed := false
	for _, kw := range keywords {
		if !have[kw] {
			have[kw] = true
			current = append(current, kw)
			changed = true
		}
	}
	if !changed {
		return
	}

	data, err := json.Marshal(current)
	if err != nil {
		return
	}
	if _, err := s.db.sql.Exec(`UPDATE sessions SET keywords = ? WHERE id = ?`, string(data), id); err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to update keywords")
	}
}

// MarkReported flips the reported flag false→true as a single
// compare-and-set. Returns true only for the call that made the change.
func (s *SQLiteSessionStore) MarkReported(id string) bool {
	res, err := s.db.sql.Exec(
		`UPDATE sessions SET reported = 1, updated_at = ? WHERE id = ? AND reported = 0`,
		time.Now().Format(time.DateTime), id,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to mark reported")
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// List returns all session ids, most recently updated first.
func (s *SQLiteSessionStore) List() []string {
	rows, err := s.db.sql.Query(`SELECT id FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *SQLiteSessionStore) touch(id string) {
	_, _ = s.db.sql.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.DateTime), id,
	)
}

func (s *SQLiteSessionStore) loadMessages(sessionID string) []domain.Message {
	rows, err := s.db.sql.Query(
		`SELECT sender, content, timestamp FROM messages WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var ts string
		if err := rows.Scan(&msg.Sender, &msg.Text, &ts); err != nil {
			continue
		}
		msg.Timestamp, _ = time.Parse(time.DateTime, ts)
		msgs = append(msgs, msg)
	}
	return msgs
}

func (s *SQLiteSessionStore) loadIdentifiers(sessionID string) []domain.Identifier {
	rows, err := s.db.sql.Query(
		`SELECT kind, value, raw, source_turn FROM identifiers WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []domain.Identifier
	for rows.Next() {
		var id domain.Identifier
		var kind string
		if err := rows.Scan(&kind, &id.Value, &id.Raw, &id.SourceTurn); err != nil {
			continue
		}
		id.Kind = domain.IdentifierKind(kind)
		ids = append(ids, id)
	}
	return ids
}
