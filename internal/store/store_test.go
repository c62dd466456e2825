package store

import (
	"path/filepath"
	"testing"

	"github.com/juanjtov/bidmate/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionStore_SetAndGet(t *testing.T) {
	s := NewSQLiteSessionStore(openTestDB(t))

	_, ok := s.ActiveConversation("org1")
	assert.False(t, ok)

	s.SetActive("org1", "c1")
	id, ok := s.ActiveConversation("org1")
	require.True(t, ok)
	assert.Equal(t, "c1", id)
}

func TestSessionStore_LastWriterWins(t *testing.T) {
	s := NewSQLiteSessionStore(openTestDB(t))

	s.SetActive("org1", "c1")
	s.SetActive("org1", "c2")

	id, ok := s.ActiveConversation("org1")
	require.True(t, ok)
	assert.Equal(t, "c2", id)
}

func TestSessionStore_ScopedByOrg(t *testing.T) {
	s := NewSQLiteSessionStore(openTestDB(t))

	s.SetActive("org1", "c1")
	s.SetActive("org2", "c2")

	id, _ := s.ActiveConversation("org1")
	assert.Equal(t, "c1", id)
	id, _ = s.ActiveConversation("org2")
	assert.Equal(t, "c2", id)
}

func TestSessionStore_Clear(t *testing.T) {
	s := NewSQLiteSessionStore(openTestDB(t))

	s.SetActive("org1", "c1")
	s.ClearActive("org1")

	_, ok := s.ActiveConversation("org1")
	assert.False(t, ok)

	// Clearing an absent entry is fine.
	s.ClearActive("org1")
}

func TestSessionStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidmate.db")

	db, err := Open(path, testLogger())
	require.NoError(t, err)
	NewSQLiteSessionStore(db).SetActive("org1", "c1")
	require.NoError(t, db.Close())

	db, err = Open(path, testLogger())
	require.NoError(t, err)
	defer db.Close()

	id, ok := NewSQLiteSessionStore(db).ActiveConversation("org1")
	require.True(t, ok)
	assert.Equal(t, "c1", id)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidmate.db")

	for i := 0; i < 2; i++ {
		db, err := Open(path, testLogger())
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}
