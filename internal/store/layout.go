package store

import (
	"os"
	"path/filepath"
)

// DefaultDataRoot returns BSKY_DATA_ROOT if set, otherwise
// ~/.local/share/bsky, following the XDG convention the rest of the
// ambient config layer assumes.
func DefaultDataRoot() (string, error) {
	if root := os.Getenv("BSKY_DATA_ROOT"); root != "" {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "bsky"), nil
}

// StoreDir returns the on-disk directory for a named store under root.
func StoreDir(root, name string) string {
	return filepath.Join(root, "stores", name)
}

// DBPath returns the SQLite file path for a named store.
func DBPath(root, name string) string {
	return filepath.Join(StoreDir(root, name), "store.db")
}

// ConfigPath returns the store.toml path for a named store.
func ConfigPath(root, name string) string {
	return filepath.Join(StoreDir(root, name), "store.toml")
}

// KVDir returns the directory holding the store's checkpoint/lineage
// key-value files (spec.md §6: one file per key, not a database table, so
// they survive an index rebuild that truncates the SQLite file).
func KVDir(root, name string) string {
	return filepath.Join(StoreDir(root, name), "kv")
}

// LockDir returns the path `storelock` mkdir's to acquire the store's
// exclusive lock. Locks live in a sibling `locks/` tree at the data root
// rather than inside the store's own directory (spec.md §6), so a lock can
// be taken before the store directory itself necessarily exists, and so
// removing a store's directory wholesale can never leave a stale lock
// behind unnoticed.
func LockDir(root, name string) string {
	return filepath.Join(root, "locks", "store-"+name)
}

// EnsureStoreDirs creates the directory tree for a new store.
func EnsureStoreDirs(root, name string) error {
	if err := os.MkdirAll(StoreDir(root, name), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(root, "locks"), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(KVDir(root, name), 0o755)
}

// ListStores returns the names of every store directory under root.
func ListStores(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "stores"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
