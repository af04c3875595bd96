package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions, messages, identifiers",
		SQL: `
			CREATE TABLE sessions (
				id          TEXT PRIMARY KEY,
				status      TEXT NOT NULL DEFAULT 'monitoring',
				turn_count  INTEGER NOT NULL DEFAULT 0,
				scam_score  REAL NOT NULL DEFAULT 0,
				reported    INTEGER NOT NULL DEFAULT 0,
				keywords    TEXT NOT NULL DEFAULT '[]',
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_sessions_status ON sessions (status);

			CREATE TABLE messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				sender      TEXT NOT NULL,
				content     TEXT NOT NULL,
				timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_session ON messages (session_id, id);

			CREATE TABLE identifiers (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				kind        TEXT NOT NULL,
				value       TEXT NOT NULL,
				raw         TEXT NOT NULL DEFAULT '',
				source_turn INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				UNIQUE (session_id, kind, value)
			);

			CREATE INDEX idx_identifiers_session ON identifiers (session_id);
		`,
	},
}
