package core

import (
	"context"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/derive"
	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
)

// DeriveRun projects sourceName's event log into targetName through filter
// (spec.md §4.6). It takes the target's store lock only; readers of the
// source store do not take a lock (spec.md §4.7).
func DeriveRun(ctx context.Context, root, sourceName, targetName string, filter filterast.Expr, opts derive.Options) (derive.Result, error) {
	if err := requireStoreExists(root, sourceName); err != nil {
		return derive.Result{}, err
	}

	var res derive.Result
	err := withLock(root, targetName, func() error {
		sh, err := store.OpenReadOnly(ctx, sourceName, store.DBPath(root, sourceName))
		if err != nil {
			return engineerr.New(engineerr.KindStoreIO, "failed to open source store", err)
		}
		defer func() { _ = sh.Close() }()

		if err := store.EnsureStoreDirs(root, targetName); err != nil {
			return engineerr.New(engineerr.KindStoreIO, "failed to create target store directories", err)
		}
		th, err := store.Open(ctx, targetName, store.DBPath(root, targetName))
		if err != nil {
			return engineerr.New(engineerr.KindStoreIO, "failed to open target store", err)
		}
		defer func() { _ = th.Close() }()
		if err := index.Bootstrap(ctx, th.DB); err != nil {
			return engineerr.New(engineerr.KindStoreIndex, "failed to bootstrap target index", err)
		}

		deps := derive.Deps{
			SourceName:        sourceName,
			SourceDB:          sh.DB,
			TargetName:        targetName,
			TargetDB:          th.DB,
			TargetCommitter:   committer.New(th.DB),
			TargetCheckpoints: store.NewCheckpoints(store.KVDir(root, targetName)),
			TargetRuntime:     filterrt.New(filterrt.Collaborators{}),
		}
		r, derr := derive.Derive(ctx, deps, filter, opts)
		res = r
		return derr
	})
	if err != nil {
		return res, toEngineErr(engineerr.KindDerivation, "derivation failed", err)
	}
	return res, nil
}
