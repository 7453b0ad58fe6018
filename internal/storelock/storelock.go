// Package storelock implements the per-store exclusive mutex named in
// spec.md §5: a filesystem directory acquired with an exclusive os.Mkdir,
// not flock. A directory create is atomic across NFS and container bind
// mounts in a way a flock on a regular file is not, which is why the store
// lock does not use an advisory flock.
package storelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when the store lock is held by another, live
// process.
var ErrLocked = errors.New("storelock: held by another process")

// IsLocked reports whether err indicates the lock is held elsewhere.
func IsLocked(err error) bool { return errors.Is(err, ErrLocked) }

// Info is the liveness record written inside the lock directory.
type Info struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	// RunID distinguishes one acquisition from another even when PIDs are
	// reused, so logs and progress reports from concurrent CLI invocations
	// on the same host can be told apart.
	RunID string `json:"run_id"`
}

const infoFile = "info.json"

// Lock is a held store lock. Release it with Unlock.
type Lock struct {
	dir string
}

// Acquire attempts to take the exclusive lock at dir (typically
// store.LockDir(root, name)). If the directory already exists and its
// recorded owner process is no longer alive (per a liveness probe on the
// recorded PID+hostname), the stale lock is reclaimed; otherwise ErrLocked
// is returned.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("storelock: prepare parent of %s: %w", dir, err)
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("storelock: mkdir %s: %w", dir, err)
		}
		if err := reclaimIfStale(dir); err != nil {
			return nil, err
		}
		// The stale holder's directory was removed; retry once.
		if err := os.Mkdir(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storelock: mkdir %s after reclaim: %w", dir, err)
		}
	}

	info := Info{PID: os.Getpid(), StartedAt: time.Now().UTC(), RunID: uuid.NewString()}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	data, err := json.Marshal(info)
	if err != nil {
		_ = os.Remove(dir)
		return nil, fmt.Errorf("storelock: marshal lock info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, infoFile), data, 0o644); err != nil {
		_ = os.Remove(dir)
		return nil, fmt.Errorf("storelock: write lock info: %w", err)
	}
	return &Lock{dir: dir}, nil
}

// Unlock releases the lock, removing its directory.
func (l *Lock) Unlock() error {
	if l == nil {
		return nil
	}
	return os.RemoveAll(l.dir)
}

// reclaimIfStale inspects the lock directory's recorded owner. If the owner
// is on this host and its process is no longer running, the directory is
// removed so the caller can retry the mkdir. A lock recorded on a different
// host is never considered stale (no liveness probe is possible).
func reclaimIfStale(dir string) error {
	info, err := ReadInfo(dir)
	if err != nil {
		// No readable owner record: treat as a foreign/in-progress lock
		// rather than guessing it is abandoned.
		return fmt.Errorf("%w: %s (owner unreadable: %v)", ErrLocked, dir, err)
	}

	hostname, _ := os.Hostname()
	if info.Hostname != "" && info.Hostname != hostname {
		return fmt.Errorf("%w: %s (held by pid %d on %s)", ErrLocked, dir, info.PID, info.Hostname)
	}
	if isProcessRunning(info.PID) {
		return fmt.Errorf("%w: %s (held by live pid %d)", ErrLocked, dir, info.PID)
	}

	return os.RemoveAll(dir)
}

// ReadInfo reads the owner record from a lock directory.
func ReadInfo(dir string) (Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, infoFile))
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("storelock: parse lock info: %w", err)
	}
	return info, nil
}
