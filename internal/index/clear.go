package index

import (
	"context"
	"database/sql"
	"fmt"
)

// ClearAll deletes every row from posts (cascading to post_hashtag,
// post_lang, and posts_fts via FK/trigger), event_log, and
// index_checkpoints. Used by derivation's reset=true path (spec.md §4.6
// step 1: "clear the target (all posts, event_log, index_checkpoints, and
// derived checkpoints for this target)"); the KV-stored derivation
// checkpoints are cleared separately by the caller.
func ClearAll(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM posts;
		DELETE FROM event_log;
		DELETE FROM index_checkpoints;
	`)
	if err != nil {
		return fmt.Errorf("index: clear all: %w", err)
	}
	return nil
}
