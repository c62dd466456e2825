package store

import (
	"database/sql"
	"time"
)

// SQLiteSessionStore remembers the active conversation per organization so a
// session survives process restarts. Writes are last-writer-wins; a missing
// or unreadable row reads as "no active conversation".
type SQLiteSessionStore struct {
	db *DB
}

// NewSQLiteSessionStore creates a session store using the given database.
func NewSQLiteSessionStore(db *DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// ActiveConversation returns the stored conversation ID for an organization.
func (s *SQLiteSessionStore) ActiveConversation(orgID string) (string, bool) {
	var id string
	err := s.db.sql.QueryRow(
		`SELECT conversation_id FROM active_sessions WHERE org_id = ?`, orgID,
	).Scan(&id)
	if err != nil {
		if err != sql.ErrNoRows {
			s.db.log.Warn().Err(err).Str("org", orgID).Msg("failed to read active session")
		}
		return "", false
	}
	return id, id != ""
}

// SetActive records the active conversation for an organization.
func (s *SQLiteSessionStore) SetActive(orgID, conversationID string) {
	_, err := s.db.sql.Exec(
		`INSERT INTO active_sessions (org_id, conversation_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(org_id) DO UPDATE SET
		   conversation_id = excluded.conversation_id,
		   updated_at = excluded.updated_at`,
		orgID, conversationID, time.Now().Format(time.DateTime),
	)
	if err != nil {
		s.db.log.Warn().Err(err).Str("org", orgID).Msg("failed to store active session")
	}
}

// ClearActive removes the stored entry for an organization.
func (s *SQLiteSessionStore) ClearActive(orgID string) {
	if _, err := s.db.sql.Exec(`DELETE FROM active_sessions WHERE org_id = ?`, orgID); err != nil {
		s.db.log.Warn().Err(err).Str("org", orgID).Msg("failed to clear active session")
	}
}
