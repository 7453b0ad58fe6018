package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// GetCheckpoint returns the named index checkpoint, or the zero value if
// none has been recorded yet.
func GetCheckpoint(ctx context.Context, conn execer, name string) (types.IndexCheckpoint, error) {
	var cp types.IndexCheckpoint
	var updatedAt string
	err := conn.QueryRowContext(ctx, `
		SELECT name, version, last_event_seq, event_count, updated_at
		FROM index_checkpoints WHERE name = ?
	`, name).Scan(&cp.Name, &cp.Version, &cp.LastEventSeq, &cp.EventCount, &updatedAt)
	if err == sql.ErrNoRows {
		return types.IndexCheckpoint{Name: name, Version: types.CurrentEventVersion}, nil
	}
	if err != nil {
		return cp, fmt.Errorf("index: get checkpoint %s: %w", name, err)
	}
	cp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return cp, fmt.Errorf("index: parse checkpoint timestamp: %w", err)
	}
	return cp, nil
}

// PutCheckpoint upserts the named index checkpoint. Called by the committer
// in the same transaction as the event append and index apply, preserving
// the invariant index_checkpoints.primary.last_event_seq == event_log.last_seq()
// (spec.md §4.3).
func PutCheckpoint(ctx context.Context, conn execer, cp types.IndexCheckpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	_, err := conn.ExecContext(ctx, `
		INSERT INTO index_checkpoints (name, version, last_event_seq, event_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			version = excluded.version,
			last_event_seq = excluded.last_event_seq,
			event_count = excluded.event_count,
			updated_at = excluded.updated_at
	`, cp.Name, cp.Version, cp.LastEventSeq, cp.EventCount, cp.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("index: put checkpoint %s: %w", cp.Name, err)
	}
	return nil
}
