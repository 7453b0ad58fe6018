// Package core exposes one function per CLI command body (spec.md §6:
// "the core exposes one function per command body; the CLI is a thin
// wrapper that decodes arguments, acquires the store lock where needed,
// invokes the core, and encodes the result"). Every exported function here
// returns either a result value or an *engineerr.Error.
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/storelock"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// CreateStoreResult is the result of CreateStore.
type CreateStoreResult struct {
	Store types.StoreRef `json:"store"`
}

// CreateStore creates a new store's on-disk layout, opens its database, and
// bootstraps the index schema. It fails with KindStoreExists if a store
// directory with this name already exists.
func CreateStore(ctx context.Context, root, name string) (CreateStoreResult, error) {
	dir := store.StoreDir(root, name)
	if _, err := os.Stat(dir); err == nil {
		return CreateStoreResult{}, engineerr.New(engineerr.KindStoreExists, fmt.Sprintf("store %q already exists", name), nil)
	}

	lock, err := storelock.Acquire(store.LockDir(root, name))
	if err != nil {
		return CreateStoreResult{}, lockErr(name, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := store.EnsureStoreDirs(root, name); err != nil {
		return CreateStoreResult{}, engineerr.New(engineerr.KindStoreIO, "failed to create store directories", err)
	}

	h, err := store.Open(ctx, name, store.DBPath(root, name))
	if err != nil {
		return CreateStoreResult{}, engineerr.New(engineerr.KindStoreIO, "failed to open new store database", err)
	}
	defer func() { _ = h.Close() }()

	if err := index.Bootstrap(ctx, h.DB); err != nil {
		return CreateStoreResult{}, engineerr.New(engineerr.KindStoreIndex, "failed to bootstrap index schema", err)
	}
	if err := store.SaveConfig(store.ConfigPath(root, name), types.DefaultStoreConfig()); err != nil {
		return CreateStoreResult{}, engineerr.New(engineerr.KindStoreIO, "failed to write store config", err)
	}

	return CreateStoreResult{Store: types.StoreRef{Name: name, Root: root}}, nil
}

// ListStoresResult is the result of ListStores.
type ListStoresResult struct {
	Stores []string `json:"stores"`
}

// ListStores enumerates every store under root.
func ListStores(root string) (ListStoresResult, error) {
	names, err := store.ListStores(root)
	if err != nil {
		return ListStoresResult{}, engineerr.New(engineerr.KindStoreIO, "failed to list stores", err)
	}
	return ListStoresResult{Stores: names}, nil
}

// StoreInfoResult reports a store's size and lineage.
type StoreInfoResult struct {
	Store      types.StoreRef `json:"store"`
	PostCount  int64          `json:"post_count"`
	EventCount int64          `json:"event_count"`
	Derived    bool           `json:"derived"`
	Lineage    *types.Lineage `json:"lineage,omitempty"`
}

// StoreInfo opens name read-only and reports its size and lineage.
func StoreInfo(ctx context.Context, root, name string) (StoreInfoResult, error) {
	if err := requireStoreExists(root, name); err != nil {
		return StoreInfoResult{}, err
	}
	h, err := store.OpenReadOnly(ctx, name, store.DBPath(root, name))
	if err != nil {
		return StoreInfoResult{}, engineerr.New(engineerr.KindStoreIO, "failed to open store", err)
	}
	defer func() { _ = h.Close() }()

	res := StoreInfoResult{Store: types.StoreRef{Name: name, Root: root}}
	if err := h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&res.PostCount); err != nil {
		return StoreInfoResult{}, engineerr.New(engineerr.KindStoreIndex, "failed to count posts", err)
	}
	if err := h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&res.EventCount); err != nil {
		return StoreInfoResult{}, engineerr.New(engineerr.KindStoreIndex, "failed to count events", err)
	}

	checkpoints := store.NewCheckpoints(store.KVDir(root, name))
	if lineage, ok, err := checkpoints.GetLineage(); err == nil && ok {
		res.Derived = lineage.Derived
		res.Lineage = &lineage
	}
	return res, nil
}

// DeleteStoreResult is the result of DeleteStore.
type DeleteStoreResult struct {
	Deleted string `json:"deleted"`
}

// DeleteStore acquires the store lock and removes the store's entire
// directory and lock tree. This is the one destructive operation outside
// the core's normal create-on-first-reference lifecycle (spec.md §4.1).
func DeleteStore(ctx context.Context, root, name string) (DeleteStoreResult, error) {
	if err := requireStoreExists(root, name); err != nil {
		return DeleteStoreResult{}, err
	}
	lockDir := store.LockDir(root, name)
	lock, err := storelock.Acquire(lockDir)
	if err != nil {
		return DeleteStoreResult{}, lockErr(name, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.RemoveAll(store.StoreDir(root, name)); err != nil {
		return DeleteStoreResult{}, engineerr.New(engineerr.KindStoreIO, "failed to remove store directory", err)
	}
	return DeleteStoreResult{Deleted: name}, nil
}

func requireStoreExists(root, name string) error {
	if _, err := os.Stat(store.StoreDir(root, name)); err != nil {
		if os.IsNotExist(err) {
			return engineerr.New(engineerr.KindStoreNotFound, fmt.Sprintf("store %q not found", name), nil)
		}
		return engineerr.New(engineerr.KindStoreIO, "failed to stat store directory", err)
	}
	return nil
}

func lockErr(name string, err error) error {
	if storelock.IsLocked(err) {
		return engineerr.New(engineerr.KindStoreLock, fmt.Sprintf("store %q is busy", name), err)
	}
	return engineerr.New(engineerr.KindStoreIO, "failed to acquire store lock", err)
}

// withLock is a small helper for write operations that share the
// acquire/defer-unlock shape; extracted once both sync and derive wrappers
// needed it.
func withLock(root, name string, fn func() error) error {
	lock, err := storelock.Acquire(store.LockDir(root, name))
	if err != nil {
		return lockErr(name, err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
