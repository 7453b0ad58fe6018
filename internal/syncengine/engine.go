package syncengine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/parse"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"golang.org/x/sync/errgroup"
)

// Deps bundles the store-scoped collaborators Sync needs.
type Deps struct {
	DB          *sql.DB
	Checkpoints *store.Checkpoints
	Committer   *committer.Committer
	Runtime     *filterrt.Runtime
}

// outcome is one batch element's parse+filter result, computed concurrently
// and then drained in source order.
type outcome struct {
	raw      source.RawPost
	post     *types.Post
	matched  bool
	parseErr error
	filtErr  error
}

// Sync runs a single one-shot ingest of src against filter, per spec.md
// §4.5. db.Checkpoints persists/loads the (store, source_key) checkpoint;
// the committer applies matched posts.
func Sync(ctx context.Context, deps Deps, src source.Source, spec source.Spec, filter filterast.Expr, opts Options, reporter Reporter) (Result, error) {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	start := time.Now()
	sourceKey := spec.Key()
	fingerprint := filterast.Fingerprint(filter)

	resumeCursor := resolveResumeCursor(deps.Checkpoints, sourceKey, fingerprint)
	if resumeCursor != "" {
		if resumable, ok := src.(source.Resumable); ok {
			resumable.Resume(resumeCursor)
		}
	}

	res := Result{FinalCursor: resumeCursor}
	seen := make(map[string]struct{})

	var lastCheckpointAt time.Time
	var lastProgressAt time.Time
	var sinceCheckpoint int
	var sinceProgress int

	persist := func(ctx context.Context) error {
		if opts.DryRun {
			return nil
		}
		cp := types.SyncCheckpoint{
			Source:            sourceKey,
			Cursor:            res.FinalCursor,
			FilterFingerprint: fingerprint,
			UpdatedAt:         time.Now().UTC(),
		}
		if res.LastEventSeq != nil {
			seq := *res.LastEventSeq
			cp.LastEventSeq = &seq
		}
		return deps.Checkpoints.PutSync(cp)
	}

	finalize := func(runErr error) (Result, error) {
		res.Duration = time.Since(start)
		finalizeCtx := context.WithoutCancel(ctx)
		if perr := persist(finalizeCtx); perr != nil && runErr == nil {
			runErr = fmt.Errorf("syncengine: persist final checkpoint: %w", perr)
		}
		recordRun(finalizeCtx, sourceKey, res)
		return res, runErr
	}

	batchSize := opts.batchSize()
	checkpointEvery := opts.CheckpointEvery
	if checkpointEvery == 0 {
		checkpointEvery = DefaultCheckpointEvery
	}
	checkpointInterval := opts.CheckpointInterval
	if checkpointInterval == 0 {
		checkpointInterval = DefaultCheckpointInterval
	}

	for {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			return finalize(nil)
		}
		if opts.Duration > 0 && time.Since(start) >= opts.Duration {
			res.Cancelled = true
			return finalize(nil)
		}
		if opts.Limit > 0 && res.PostsAdded+res.PostsSkipped >= opts.Limit {
			return finalize(nil)
		}

		batch, exhausted, srcErr := readBatch(ctx, src, batchSize, opts.Limit, res.PostsAdded+res.PostsSkipped)
		if srcErr != nil {
			res.Errors = append(res.Errors, engineerr.NewSync(engineerr.StageSource, "source adapter failed", srcErr))
			if opts.MaxErrors > 0 && len(res.Errors) > opts.MaxErrors {
				return finalize(fmt.Errorf("syncengine: exceeded max_errors"))
			}
		}
		if len(batch) == 0 && exhausted {
			return finalize(nil)
		}

		results := evaluateBatch(ctx, deps.Runtime, batch, filter)

		for _, oc := range results {
			if oc.raw.PageCursor != "" {
				res.FinalCursor = oc.raw.PageCursor
			}
			sinceProgress++

			switch {
			case oc.parseErr != nil:
				res.Errors = append(res.Errors, engineerr.NewSync(engineerr.StageParse, "failed to parse raw post", oc.parseErr))
			case oc.filtErr != nil:
				res.Errors = append(res.Errors, engineerr.NewSync(engineerr.StageFilter, "failed to evaluate filter", oc.filtErr))
			case !oc.matched:
				res.PostsSkipped++
			default:
				added, seq, commitErr := commitOne(ctx, deps, opts, spec, sourceKey, fingerprint, oc.post, seen)
				if commitErr != nil {
					res.Errors = append(res.Errors, engineerr.NewSync(engineerr.StageStore, "committer failed", commitErr))
					return finalize(fmt.Errorf("syncengine: store-stage error: %w", commitErr))
				}
				if added {
					res.PostsAdded++
					if seq != nil {
						res.LastEventSeq = seq
					}
					sinceCheckpoint++
				} else {
					res.PostsSkipped++
				}
			}

			if opts.MaxErrors > 0 && len(res.Errors) > opts.MaxErrors {
				return finalize(fmt.Errorf("syncengine: exceeded max_errors"))
			}
		}

		now := time.Now()
		if sinceCheckpoint >= checkpointEvery || (sinceCheckpoint > 0 && now.Sub(lastCheckpointAt) >= checkpointInterval) {
			if err := persist(ctx); err != nil {
				return finalize(fmt.Errorf("syncengine: persist checkpoint: %w", err))
			}
			sinceCheckpoint = 0
			lastCheckpointAt = now
		}
		if sinceProgress >= DefaultProgressEvery || now.Sub(lastProgressAt) >= DefaultProgressInterval {
			elapsed := now.Sub(start)
			processed := res.PostsAdded + res.PostsSkipped + len(res.Errors)
			rate := 0.0
			if elapsed > 0 {
				rate = float64(processed) / elapsed.Seconds()
			}
			reporter.Report(Progress{
				Processed: processed,
				Added:     res.PostsAdded,
				Skipped:   res.PostsSkipped,
				Errors:    len(res.Errors),
				Rate:      rate,
				Elapsed:   elapsed,
			})
			sinceProgress = 0
			lastProgressAt = now
		}

		if exhausted {
			return finalize(nil)
		}
	}
}

// resolveResumeCursor implements spec.md §4.5 step 2 and §8 invariant 5: a
// checkpoint is usable iff its filter_fingerprint is absent or matches the
// current one; otherwise the run starts fresh rather than erroring.
func resolveResumeCursor(checkpoints *store.Checkpoints, sourceKey, fingerprint string) string {
	cp, ok, err := checkpoints.GetSync(sourceKey)
	if err != nil || !ok {
		return ""
	}
	if cp.FilterFingerprint == "" || cp.FilterFingerprint == fingerprint {
		return cp.Cursor
	}
	return ""
}

// readBatch pulls up to n raw posts from src, sequentially (Source.Next is
// stateful), stopping early if the source is exhausted, opts.Limit is hit,
// or the context is done.
func readBatch(ctx context.Context, src source.Source, n, limit, alreadyCounted int) ([]source.RawPost, bool, error) {
	batch := make([]source.RawPost, 0, n)
	for i := 0; i < n; i++ {
		if limit > 0 && alreadyCounted+len(batch) >= limit {
			return batch, false, nil
		}
		if err := ctx.Err(); err != nil {
			return batch, false, nil
		}
		raw, ok, err := src.Next(ctx)
		if err != nil {
			return batch, false, err
		}
		if !ok {
			return batch, true, nil
		}
		batch = append(batch, raw)
	}
	return batch, false, nil
}

// evaluateBatch parses and filters every element of batch concurrently,
// then returns results in the same order batch was given in (spec.md §5:
// parallel evaluation, source-ordered commits).
func evaluateBatch(ctx context.Context, rt *filterrt.Runtime, batch []source.RawPost, filter filterast.Expr) []outcome {
	results := make([]outcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, raw := range batch {
		i, raw := i, raw
		results[i].raw = raw
		g.Go(func() error {
			p, err := parse.Post(raw)
			if err != nil {
				results[i].parseErr = err
				return nil
			}
			results[i].post = p
			out, err := rt.Eval(gctx, filter, p)
			if err != nil {
				results[i].filtErr = err
				return nil
			}
			results[i].matched = out.Match
			return nil
		})
	}
	_ = g.Wait() // errors are per-element, already captured in results
	return results
}

// commitOne applies the policy-selected committer call for one matched
// post. In dry-run mode it simulates dedupe with an in-process seen set
// plus index.HasURI, performing no writes.
func commitOne(ctx context.Context, deps Deps, opts Options, spec source.Spec, sourceKey, fingerprint string, p *types.Post, seen map[string]struct{}) (added bool, seq *uint64, err error) {
	uri := string(p.URI)
	meta := types.EventMeta{Source: sourceKey, Command: opts.Command, FilterFingerprint: fingerprint, CreatedAt: time.Now().UTC()}

	if opts.DryRun {
		if opts.Policy == PolicyDedupe {
			if _, dup := seen[uri]; dup {
				return false, nil, nil
			}
			exists, herr := index.HasURI(ctx, deps.DB, uri)
			if herr != nil {
				return false, nil, herr
			}
			if exists {
				seen[uri] = struct{}{}
				return false, nil, nil
			}
		}
		seen[uri] = struct{}{}
		return true, nil, nil
	}

	ev := types.NewPostUpsert(p, meta)
	switch opts.Policy {
	case PolicyRefresh:
		res, cerr := deps.Committer.AppendUpsert(ctx, ev)
		if cerr != nil {
			return false, nil, cerr
		}
		s := res.Seq
		return true, &s, nil
	default: // PolicyDedupe
		res, ok, cerr := deps.Committer.AppendUpsertIfMissing(ctx, ev)
		if cerr != nil {
			return false, nil, cerr
		}
		if !ok {
			return false, nil, nil
		}
		s := res.Seq
		return true, &s, nil
	}
}
