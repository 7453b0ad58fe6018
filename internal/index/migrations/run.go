package migrations

import (
	"database/sql"
	"fmt"
)

// step names a single migration for RunAll's ordered invocation list.
type step struct {
	name string
	fn   func(db *sql.DB) error
}

// RunAll applies every migration in order. Each migration is individually
// idempotent (CREATE ... IF NOT EXISTS statements), so RunAll is safe
// to call on every store open, matching the teacher's migration-per-file
// convention of re-running the full sequence rather than tracking a
// separate schema-version counter.
func RunAll(db *sql.DB) error {
	steps := []step{
		{"index_schema", MigrateIndexSchema},
		{"fts", MigrateFTS},
		{"checkpoints", MigrateCheckpoints},
	}
	for _, s := range steps {
		if err := s.fn(db); err != nil {
			return fmt.Errorf("migrations: %s: %w", s.name, err)
		}
	}
	return nil
}
