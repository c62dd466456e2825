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
		Name:    "create active sessions",
		SQL: `
			CREATE TABLE active_sessions (
				org_id           TEXT PRIMARY KEY,
				conversation_id  TEXT NOT NULL,
				updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
