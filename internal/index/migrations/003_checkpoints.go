package migrations

import "database/sql"

// MigrateCheckpoints creates index_checkpoints, the one piece of checkpoint
// state that lives in SQLite (spec.md §4.2). SyncCheckpoint,
// DerivationCheckpoint, and Lineage are file-per-key records under the
// store's kv directory instead (spec.md §6 "Store persistent layout"), kept
// separate so they survive an index clear/rebuild.
func MigrateCheckpoints(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS index_checkpoints (
			name           TEXT PRIMARY KEY,
			version        INTEGER NOT NULL,
			last_event_seq INTEGER NOT NULL,
			event_count    INTEGER NOT NULL,
			updated_at     TEXT NOT NULL
		);
	`)
	return err
}
