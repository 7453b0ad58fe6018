// Package eventlog implements the append-only event_log table that is the
// sole source of truth for a store: the index can be cleared and rebuilt
// from it at any time (spec.md §4.1).
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// PageSize bounds the number of rows stream_from pulls per page, following
// the ≈500-row paging convention used throughout the store engine.
const PageSize = 500

// Log is a handle to one store's event_log table.
type Log struct {
	db *sql.DB
}

// New wraps db. db must already have MigrateEventLog applied.
func New(db *sql.DB) *Log { return &Log{db: db} }

// AppendBatch appends events inside a single SQL transaction on conn,
// returning their assigned seqs in input order. conn must already be inside
// a transaction (typically a store.WithImmediate block shared with the
// index apply and checkpoint advance, per the committer's atomicity
// requirement in spec.md §4.3).
func AppendBatch(ctx context.Context, conn execer, events []types.Event) ([]uint64, error) {
	seqs := make([]uint64, 0, len(events))
	stmt, err := conn.PrepareContext(ctx, `
		INSERT INTO event_log (event_tag, payload_json, created_at) VALUES (?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("eventlog: prepare append: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("eventlog: marshal event: %w", err)
		}
		createdAt := ev.Meta.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx, string(ev.Tag), string(payload), createdAt.Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("eventlog: insert event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("eventlog: last insert id: %w", err)
		}
		seqs = append(seqs, uint64(id))
	}
	return seqs, nil
}

// execer is the subset of *sql.Conn / *sql.Tx this package needs, so tests
// can pass either a raw connection inside a store.WithImmediate block or an
// in-memory stub.
type execer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LastSeq returns the current maximum seq, or 0 if the log is empty.
func (l *Log) LastSeq(ctx context.Context) (uint64, error) {
	return lastSeq(ctx, l.db)
}

func lastSeq(ctx context.Context, q execer) (uint64, error) {
	var seq sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT MAX(seq) FROM event_log`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("eventlog: last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// StreamFrom returns a forward iterator over events with seq > afterSeq,
// pulling PageSize rows at a time to bound memory. Call Next until it
// returns false; check Err afterward.
func (l *Log) StreamFrom(ctx context.Context, afterSeq uint64) *Cursor {
	return &Cursor{ctx: ctx, db: l.db, afterSeq: afterSeq}
}

// Cursor is a pull-based, paginated iterator over event_log rows.
type Cursor struct {
	ctx      context.Context
	db       *sql.DB
	afterSeq uint64

	page    []types.EventRecord
	idx     int
	current types.EventRecord
	err     error
	done    bool
}

// Next advances the cursor, reporting whether a record is available.
func (c *Cursor) Next() bool {
	if c.done || c.err != nil {
		return false
	}
	if c.idx >= len(c.page) {
		if err := c.fetchPage(); err != nil {
			c.err = err
			return false
		}
		if len(c.page) == 0 {
			c.done = true
			return false
		}
	}
	c.current = c.page[c.idx]
	c.idx++
	c.afterSeq = c.current.Seq
	return true
}

func (c *Cursor) fetchPage() error {
	c.page = c.page[:0]
	c.idx = 0
	rows, err := c.db.QueryContext(c.ctx, `
		SELECT seq, event_tag, payload_json
		FROM event_log
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, c.afterSeq, PageSize)
	if err != nil {
		return fmt.Errorf("eventlog: stream page: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var seq uint64
		var tag, payload string
		if err := rows.Scan(&seq, &tag, &payload); err != nil {
			return fmt.Errorf("eventlog: scan event row: %w", err)
		}
		var ev types.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return fmt.Errorf("eventlog: unmarshal event seq %d: %w", seq, err)
		}
		c.page = append(c.page, types.EventRecord{Seq: seq, Version: types.CurrentEventVersion, Event: ev})
	}
	return rows.Err()
}

// Record returns the record the most recent Next call advanced to.
func (c *Cursor) Record() types.EventRecord { return c.current }

// Err returns any error encountered during iteration.
func (c *Cursor) Err() error { return c.err }
