package store

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// connString builds a modernc.org/sqlite DSN for path, following the same
// _pragma=... query-parameter convention the storage layer this was lifted
// from uses: WAL, a generous busy_timeout (overridable via
// BSKY_LOCK_TIMEOUT), and foreign keys on.
func connString(path string, readOnly bool) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	busy := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("BSKY_LOCK_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			busy = d
		}
	}
	busyMs := int64(busy / time.Millisecond)

	if readOnly {
		return fmt.Sprintf(
			"file:%s?mode=ro&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
			path, busyMs)
	}
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		path, busyMs)
}
