// Package committer wraps event_log.append_batch and index.apply in one SQL
// transaction, and advances index_checkpoints.primary to match (spec.md
// §4.3). It is the only path that writes to either table.
package committer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/eventlog"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// Committer is the single write path into a store's event log and index.
type Committer struct {
	db *sql.DB
}

// New wraps db, which must already have had eventlog.MigrateEventLog and
// index.Bootstrap applied.
func New(db *sql.DB) *Committer { return &Committer{db: db} }

// Result reports a single append's assigned sequence.
type Result struct {
	Seq uint64
}

// AppendUpsert unconditionally appends a PostUpsert event and applies it to
// the index.
func (c *Committer) AppendUpsert(ctx context.Context, ev types.Event) (Result, error) {
	results, err := c.appendBatch(ctx, []types.Event{ev}, false)
	if err != nil {
		return Result{}, err
	}
	return results[0].result, nil
}

// AppendUpsertIfMissing appends a PostUpsert event only if no row with the
// event's post URI already exists in posts at the start of the
// transaction. ok is false if the row already existed and no append
// occurred.
func (c *Committer) AppendUpsertIfMissing(ctx context.Context, ev types.Event) (res Result, ok bool, err error) {
	results, err := c.appendBatch(ctx, []types.Event{ev}, true)
	if err != nil {
		return Result{}, false, err
	}
	return results[0].result, results[0].applied, nil
}

// AppendUpsertsIfMissing is the batched form of AppendUpsertIfMissing,
// preserving input order.
func (c *Committer) AppendUpsertsIfMissing(ctx context.Context, events []types.Event) ([]Outcome, error) {
	return c.appendBatch(ctx, events, true)
}

// AppendUpserts is the batched, unconditional form of AppendUpsert, used by
// the Jetstream sync variant's run-grouped commits (spec.md §4.5.1).
func (c *Committer) AppendUpserts(ctx context.Context, events []types.Event) ([]Result, error) {
	outcomes, err := c.appendBatch(ctx, events, false)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.result
	}
	return results, nil
}

// AppendDelete unconditionally appends a PostDelete event and applies it to
// the index.
func (c *Committer) AppendDelete(ctx context.Context, ev types.Event) (Result, error) {
	results, err := c.appendBatch(ctx, []types.Event{ev}, false)
	if err != nil {
		return Result{}, err
	}
	return results[0].result, nil
}

// AppendDeletes is the batched form of AppendDelete.
func (c *Committer) AppendDeletes(ctx context.Context, events []types.Event) ([]Result, error) {
	outcomes, err := c.appendBatch(ctx, events, false)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.result
	}
	return results, nil
}

// Outcome reports whether an if-missing append actually occurred.
type Outcome struct {
	result  Result
	applied bool
}

// Applied reports whether the event was appended (false iff skipped by
// append_upsert_if_missing's dedupe check).
func (o Outcome) Applied() bool { return o.applied }

// Seq returns the assigned sequence; zero if the event was skipped.
func (o Outcome) Seq() uint64 { return o.result.Seq }

// appendBatch is the shared transactional core for every public method:
// one BEGIN IMMEDIATE transaction containing, per event, the existence
// check (if ifMissing), the event_log insert, the index apply, and finally
// one checkpoint advance covering the whole batch.
func (c *Committer) appendBatch(ctx context.Context, events []types.Event, ifMissing bool) ([]Outcome, error) {
	outcomes := make([]Outcome, len(events))

	err := store.WithImmediate(ctx, c.db, func(ctx context.Context, conn *sql.Conn) error {
		var lastSeq uint64
		var appendedCount uint64

		for i, ev := range events {
			if ifMissing && ev.Tag == types.EventTagPostUpsert && ev.Post != nil {
				exists, err := postExists(ctx, conn, string(ev.Post.URI))
				if err != nil {
					return err
				}
				if exists {
					outcomes[i] = Outcome{applied: false}
					continue
				}
			}

			seqs, err := eventlog.AppendBatch(ctx, conn, []types.Event{ev})
			if err != nil {
				return fmt.Errorf("committer: append event: %w", err)
			}
			seq := seqs[0]

			if err := index.Apply(ctx, conn, types.EventRecord{Seq: seq, Version: types.CurrentEventVersion, Event: ev}); err != nil {
				return fmt.Errorf("committer: apply to index: %w", err)
			}

			outcomes[i] = Outcome{result: Result{Seq: seq}, applied: true}
			lastSeq = seq
			appendedCount++
		}

		if appendedCount == 0 {
			return nil
		}

		cp, err := index.GetCheckpoint(ctx, conn, types.PrimaryIndexName)
		if err != nil {
			return fmt.Errorf("committer: read checkpoint: %w", err)
		}
		cp.LastEventSeq = lastSeq
		cp.EventCount += appendedCount
		cp.UpdatedAt = time.Now().UTC()
		if err := index.PutCheckpoint(ctx, conn, cp); err != nil {
			return fmt.Errorf("committer: advance checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func postExists(ctx context.Context, conn *sql.Conn, uri string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE uri = ?)`, uri).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("committer: check existing post %s: %w", uri, err)
	}
	return exists, nil
}
