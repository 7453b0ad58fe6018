package eventlog

import "database/sql"

// MigrateEventLog creates the event_log table if it does not already exist.
// Grounded on the teacher's one-function-per-migration convention
// (internal/storage/sqlite/migrations/*.go), but the event log only ever
// needs one table, so there is a single migration rather than a numbered
// series.
func MigrateEventLog(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS event_log (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			event_tag    TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			created_at   TEXT NOT NULL
		)
	`)
	return err
}
