package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mepuka/bsky-cli-sub001/internal/eventlog"
	"github.com/mepuka/bsky-cli-sub001/internal/index/migrations"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// Bootstrap applies every migration, then rebuilds the index from the event
// log if posts is empty but event_log is not — the recovery path for a
// store whose index file was deleted or never built (spec.md §4.2
// "Bootstrap").
func Bootstrap(ctx context.Context, db *sql.DB) error {
	if err := migrations.RunAll(db); err != nil {
		return err
	}

	var postCount, eventCount int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&postCount); err != nil {
		return fmt.Errorf("index: count posts: %w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&eventCount); err != nil {
		return fmt.Errorf("index: count events: %w", err)
	}
	if postCount > 0 || eventCount == 0 {
		return nil
	}
	return Rebuild(ctx, db)
}

// Rebuild replays the entire event log into the index, in pages of
// eventlog.PageSize events per transaction, updating index_checkpoints at
// the end. Callers that want a clean rebuild (e.g. derivation reset) should
// first clear posts/post_hashtag/post_lang/posts_fts themselves.
func Rebuild(ctx context.Context, db *sql.DB) error {
	log := eventlog.New(db)
	cursor := log.StreamFrom(ctx, 0)

	var lastSeq uint64
	var count uint64
	batch := make([]types.EventRecord, 0, eventlog.PageSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := store.WithImmediate(ctx, db, func(ctx context.Context, conn *sql.Conn) error {
			for _, rec := range batch {
				if err := Apply(ctx, conn, rec); err != nil {
					return err
				}
				lastSeq = rec.Seq
				count++
			}
			return nil
		})
		batch = batch[:0]
		return err
	}

	for cursor.Next() {
		batch = append(batch, cursor.Record())
		if len(batch) >= eventlog.PageSize {
			if err := flush(); err != nil {
				return fmt.Errorf("index: rebuild: %w", err)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("index: rebuild stream: %w", err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("index: rebuild: %w", err)
	}

	if err := store.WithImmediate(ctx, db, func(ctx context.Context, conn *sql.Conn) error {
		return PutCheckpoint(ctx, conn, types.IndexCheckpoint{
			Name:         types.PrimaryIndexName,
			Version:      types.CurrentEventVersion,
			LastEventSeq: lastSeq,
			EventCount:   count,
		})
	}); err != nil {
		return fmt.Errorf("index: rebuild checkpoint: %w", err)
	}

	if _, err := db.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("index: analyze: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA optimize`); err != nil {
		return fmt.Errorf("index: pragma optimize: %w", err)
	}
	return nil
}
