package index

import (
	"context"
	"database/sql"
	"fmt"
)

// HasURI reports whether uri is currently indexed. Dry-run sync uses it
// (alongside an in-process seen set) to simulate dedupe without writing
// (spec.md §4.5.2).
func HasURI(ctx context.Context, db *sql.DB, uri string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE uri = ?)`, uri).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("index: has_uri %s: %w", uri, err)
	}
	return exists, nil
}
