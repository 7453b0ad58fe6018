// Package store manages per-store SQLite connections, the on-disk layout
// rooted at BSKY_DATA_ROOT, and a small key-value file store for
// checkpoints and lineage records (spec.md §5, §6).
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Handle wraps a *sql.DB for a single named store, along with the path it
// was opened from.
type Handle struct {
	DB   *sql.DB
	Path string
	Name string
}

// Open opens (creating if absent) the SQLite database backing the named
// store at path.
func Open(ctx context.Context, name, path string) (*Handle, error) {
	db, err := sql.Open("sqlite", connString(path, false))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", name, err)
	}
	// A single physical connection keeps BEGIN IMMEDIATE and its matching
	// COMMIT/ROLLBACK on the connection that acquired the lock; SQLite
	// write concurrency doesn't benefit from a larger pool here.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", name, err)
	}
	return &Handle{DB: db, Path: path, Name: name}, nil
}

// OpenReadOnly opens path in read-only mode, for tooling that inspects a
// store without participating in writes (e.g. `bsky search` against a
// store another process is syncing).
func OpenReadOnly(ctx context.Context, name, path string) (*Handle, error) {
	db, err := sql.Open("sqlite", connString(path, true))
	if err != nil {
		return nil, fmt.Errorf("store: open %s read-only: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s read-only: %w", name, err)
	}
	return &Handle{DB: db, Path: path, Name: name}, nil
}

// Close closes the underlying connection.
func (h *Handle) Close() error {
	if h == nil || h.DB == nil {
		return nil
	}
	return h.DB.Close()
}
