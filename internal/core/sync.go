package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/storelock"
	"github.com/mepuka/bsky-cli-sub001/internal/syncengine"
)

// SyncRun runs one sync cycle against src for the named store, persisting
// its checkpoint under the store's KV tree (spec.md §4.5). The real
// HTTP/WS source adapters are external collaborators (spec.md §1); callers
// in this repo construct src from a fixture file via FakeSourceFromNDJSON
// or from their own Source implementation.
func SyncRun(ctx context.Context, root, name string, spec source.Spec, src source.Source, filter filterast.Expr, opts syncengine.Options, reporter syncengine.Reporter) (syncengine.Result, error) {
	if err := requireStoreExists(root, name); err != nil {
		return syncengine.Result{}, err
	}

	var res syncengine.Result
	err := withLock(root, name, func() error {
		deps, closeFn, derr := openSyncDeps(ctx, root, name)
		if derr != nil {
			return derr
		}
		defer closeFn()

		opts.Command = "sync"
		r, serr := syncengine.Sync(ctx, deps, src, spec, filter, opts, reporter)
		res = r
		return serr
	})
	if err != nil {
		return res, toEngineErr(engineerr.KindSync, "sync failed", err)
	}
	return res, nil
}

// SyncJetstreamRun mirrors SyncRun for the firehose variant (spec.md
// §4.5.1).
func SyncJetstreamRun(ctx context.Context, root, name string, spec source.Spec, src source.CommitSource, filter filterast.Expr, opts syncengine.Options, reporter syncengine.Reporter) (syncengine.Result, error) {
	if err := requireStoreExists(root, name); err != nil {
		return syncengine.Result{}, err
	}

	var res syncengine.Result
	err := withLock(root, name, func() error {
		deps, closeFn, derr := openSyncDeps(ctx, root, name)
		if derr != nil {
			return derr
		}
		defer closeFn()

		opts.Command = "sync"
		r, serr := syncengine.SyncJetstream(ctx, deps, src, spec, filter, opts, reporter)
		res = r
		return serr
	})
	if err != nil {
		return res, toEngineErr(engineerr.KindSync, "jetstream sync failed", err)
	}
	return res, nil
}

// WatchRun streams one Event per sync cycle. The returned channel closes
// when ctx is cancelled or src is exhausted; the store lock is held for
// the entire watch lifetime, consistent with spec.md §4.7 ("the lock
// wraps any operation that writes").
func WatchRun(ctx context.Context, root, name string, spec source.Spec, src source.Source, filter filterast.Expr, opts syncengine.Options, reporter syncengine.Reporter, interval time.Duration) (<-chan syncengine.Event, error) {
	if err := requireStoreExists(root, name); err != nil {
		return nil, err
	}
	lock, err := storelock.Acquire(store.LockDir(root, name))
	if err != nil {
		return nil, lockErr(name, err)
	}
	deps, closeFn, derr := openSyncDeps(ctx, root, name)
	if derr != nil {
		_ = lock.Unlock()
		return nil, derr
	}

	opts.Command = "watch"
	out := syncengine.Watch(ctx, syncengine.WatchConfig{
		Deps: deps, Source: src, Spec: spec, Filter: filter, Options: opts, Reporter: reporter, Interval: interval,
	})

	// Bridge the engine's channel through one that releases the lock and
	// closes the store handle once the underlying watch loop exits.
	bridged := make(chan syncengine.Event)
	go func() {
		defer close(bridged)
		defer closeFn()
		defer func() { _ = lock.Unlock() }()
		for ev := range out {
			bridged <- ev
		}
	}()
	return bridged, nil
}

func openSyncDeps(ctx context.Context, root, name string) (syncengine.Deps, func(), error) {
	h, err := store.Open(ctx, name, store.DBPath(root, name))
	if err != nil {
		return syncengine.Deps{}, nil, engineerr.New(engineerr.KindStoreIO, "failed to open store", err)
	}
	if err := index.Bootstrap(ctx, h.DB); err != nil {
		_ = h.Close()
		return syncengine.Deps{}, nil, engineerr.New(engineerr.KindStoreIndex, "failed to bootstrap index", err)
	}
	deps := syncengine.Deps{
		DB:          h.DB,
		Checkpoints: store.NewCheckpoints(store.KVDir(root, name)),
		Committer:   committer.New(h.DB),
		Runtime:     filterrt.New(filterrt.Collaborators{}),
	}
	return deps, func() { _ = h.Close() }, nil
}

// FakeSourceFromNDJSON decodes one source.RawPost per line of data,
// producing a deterministic fixture-backed Source, standing in for the
// real remote timeline/feed/list/author/notifications adapters (spec.md
// §1, §6) so the CLI is runnable standalone against recorded fixtures.
func FakeSourceFromNDJSON(data []byte) (*source.Fake, error) {
	var posts []source.RawPost
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var raw source.RawPost
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, engineerr.New(engineerr.KindCliInput, "failed to decode fixture NDJSON", err)
		}
		posts = append(posts, raw)
	}
	return source.NewFake(posts...), nil
}

// FakeCommitsFromNDJSON decodes one source.Commit per line of data,
// standing in for the real Jetstream WS adapter (spec.md §1, §4.5.1).
func FakeCommitsFromNDJSON(data []byte) (*source.FakeCommits, error) {
	var commits []source.Commit
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var c source.Commit
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, engineerr.New(engineerr.KindCliInput, "failed to decode commit fixture NDJSON", err)
		}
		commits = append(commits, c)
	}
	return source.NewFakeCommits(commits...), nil
}

func toEngineErr(kind engineerr.Kind, msg string, err error) error {
	if _, ok := err.(*engineerr.Error); ok {
		return err
	}
	return engineerr.New(kind, msg, err)
}
