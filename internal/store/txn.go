package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrBusy is returned when a BEGIN IMMEDIATE transaction could not acquire
// the write lock within the retry budget.
var ErrBusy = errors.New("store: database is locked")

// WithImmediate runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection, retrying lock acquisition with exponential backoff on
// SQLITE_BUSY. database/sql's pool would otherwise hand BEGIN, the body,
// and COMMIT to three different physical connections; a raw BEGIN/COMMIT
// pair must share one.
//
// fn receives the *sql.Conn to run its statements on. If fn returns an
// error, the transaction is rolled back; otherwise it is committed.
func WithImmediate(ctx context.Context, db *sql.DB, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn); err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(ctx, conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	committed = true
	return nil
}

// beginImmediateWithRetry issues BEGIN IMMEDIATE, retrying with exponential
// backoff while the error indicates the database is locked. busy_timeout
// already covers most contention; this catches the remainder when another
// process holds a RESERVED lock longer than busy_timeout allows.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	bo.InitialInterval = 20 * time.Millisecond

	op := func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err != nil && isBusy(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("store: begin immediate: %w", perm.Unwrap())
		}
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return nil
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
