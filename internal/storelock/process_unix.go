//go:build unix || linux || darwin

package storelock

import "golang.org/x/sys/unix"

// isProcessRunning reports whether pid names a live process, by sending
// signal 0 (no-op existence probe).
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
