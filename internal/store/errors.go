package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for common store conditions.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to ErrNotFound so callers can errors.Is against one sentinel
// regardless of the underlying driver error.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
