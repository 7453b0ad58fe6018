//go:build windows

package storelock

import "golang.org/x/sys/windows"

// isProcessRunning reports whether pid names a live process by attempting
// to open a query handle to it.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	_ = windows.CloseHandle(h)
	return true
}
