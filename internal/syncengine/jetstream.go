package syncengine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/parse"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"golang.org/x/sync/errgroup"
)

// JetstreamBatchSize and JetstreamBatchWindow bound a firehose batch: 100
// messages or 1 second, whichever comes first (spec.md §4.5.1).
const (
	JetstreamBatchSize   = 100
	JetstreamBatchWindow = time.Second
)

type runKind int

const (
	runUpsertCheckExists runKind = iota
	runUpsertRefresh
	runDelete
)

type jetOutcome struct {
	commit  source.Commit
	kind    runKind
	event   types.Event
	skipped bool
	err     error
}

// SyncJetstream drives a Jetstream commit stream through the batched
// algorithm of spec.md §4.5.1: messages are windowed into batches of
// JetstreamBatchSize or JetstreamBatchWindow, parsed and filtered in
// parallel, then grouped into consecutive same-kind runs so the committer's
// batched operations can be used.
func SyncJetstream(ctx context.Context, deps Deps, src source.CommitSource, spec source.Spec, filter filterast.Expr, opts Options, reporter Reporter) (Result, error) {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	start := time.Now()
	sourceKey := spec.Key()
	fingerprint := filterast.Fingerprint(filter)

	resumeCursor := resolveResumeCursor(deps.Checkpoints, sourceKey, fingerprint)

	res := Result{FinalCursor: resumeCursor}
	var sinceProgress int
	var lastProgressAt time.Time

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

	for {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			return finalize(nil)
		}
		if opts.Duration > 0 && time.Since(start) >= opts.Duration {
			res.Cancelled = true
			return finalize(nil)
		}

		batch, exhausted, srcErr := readCommitWindow(ctx, src, JetstreamBatchSize, JetstreamBatchWindow)
		if srcErr != nil {
			res.Errors = append(res.Errors, engineerr.NewSync(engineerr.StageSource, "jetstream source failed", srcErr))
			return finalize(fmt.Errorf("syncengine: jetstream source error: %w", srcErr))
		}
		if len(batch) == 0 {
			if exhausted {
				return finalize(nil)
			}
			continue
		}

		outcomes := evaluateCommits(ctx, deps.Runtime, batch, filter, sourceKey, opts)

		var maxTimeUs int64
		for _, oc := range outcomes {
			if oc.commit.TimeUs > maxTimeUs {
				maxTimeUs = oc.commit.TimeUs
			}
			sinceProgress++
			if oc.err != nil {
				res.Errors = append(res.Errors, engineerr.NewSync(stageFor(oc), "jetstream commit failed", oc.err))
				if opts.Strict {
					return finalize(fmt.Errorf("syncengine: strict mode aborted on commit error: %w", oc.err))
				}
				if opts.MaxErrors > 0 && len(res.Errors) > opts.MaxErrors {
					return finalize(fmt.Errorf("syncengine: exceeded max_errors"))
				}
			} else if oc.skipped {
				res.PostsSkipped++
			}
		}
		if maxTimeUs > 0 {
			res.FinalCursor = strconv.FormatInt(maxTimeUs, 10)
		}

		if opts.DryRun {
			for _, oc := range outcomes {
				if oc.err != nil || oc.skipped {
					continue
				}
				res.PostsAdded++
			}
		} else {
			if err := commitRuns(ctx, deps, outcomes, &res); err != nil {
				return finalize(fmt.Errorf("syncengine: store-stage error: %w", err))
			}
			if err := persist(ctx); err != nil {
				return finalize(fmt.Errorf("syncengine: persist checkpoint: %w", err))
			}
		}

		now := time.Now()
		if sinceProgress >= DefaultProgressEvery || now.Sub(lastProgressAt) >= DefaultProgressInterval {
			elapsed := now.Sub(start)
			processed := res.PostsAdded + res.PostsSkipped + len(res.Errors)
			rate := 0.0
			if elapsed > 0 {
				rate = float64(processed) / elapsed.Seconds()
			}
			reporter.Report(Progress{Processed: processed, Added: res.PostsAdded, Skipped: res.PostsSkipped, Errors: len(res.Errors), Rate: rate, Elapsed: elapsed})
			sinceProgress = 0
			lastProgressAt = now
		}

		if exhausted {
			return finalize(nil)
		}
	}
}

func stageFor(oc jetOutcome) engineerr.Stage {
	if oc.commit.Kind == source.CommitDelete {
		return engineerr.StageStore
	}
	return engineerr.StageFilter
}

// readCommitWindow collects commits until JetstreamBatchSize is reached or
// window elapses, whichever first.
func readCommitWindow(ctx context.Context, src source.CommitSource, size int, window time.Duration) ([]source.Commit, bool, error) {
	deadline := time.Now().Add(window)
	batch := make([]source.Commit, 0, size)
	for len(batch) < size && time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return batch, false, nil
		}
		c, ok, err := src.Next(ctx)
		if err != nil {
			return batch, false, err
		}
		if !ok {
			return batch, true, nil
		}
		batch = append(batch, c)
	}
	return batch, false, nil
}

func evaluateCommits(ctx context.Context, rt *filterrt.Runtime, batch []source.Commit, filter filterast.Expr, sourceKey string, opts Options) []jetOutcome {
	outcomes := make([]jetOutcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, c := range batch {
		i, c := i, c
		outcomes[i].commit = c
		g.Go(func() error {
			meta := types.EventMeta{Source: sourceKey, Command: opts.Command, CreatedAt: time.Now().UTC()}
			if c.Kind == source.CommitDelete {
				outcomes[i].kind = runDelete
				outcomes[i].event = types.NewPostDelete(ids.URI(c.URI), ids.CID(c.CID), meta)
				return nil
			}
			raw := source.RawPost{URI: c.URI, CID: c.CID, AuthorDID: c.DID, Record: c.Record}
			p, err := parse.Post(raw)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			out, err := rt.Eval(gctx, filter, p)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			if !out.Match {
				outcomes[i].skipped = true
				return nil
			}
			meta.FilterFingerprint = filterast.Fingerprint(filter)
			if opts.Policy == PolicyDedupe {
				outcomes[i].kind = runUpsertCheckExists
			} else {
				outcomes[i].kind = runUpsertRefresh
			}
			outcomes[i].event = types.NewPostUpsert(p, meta)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// commitRuns groups consecutive same-kind, error-free, non-skipped
// outcomes into runs and dispatches each run through the matching batched
// committer operation (spec.md §4.5.1).
func commitRuns(ctx context.Context, deps Deps, outcomes []jetOutcome, res *Result) error {
	i := 0
	for i < len(outcomes) {
		if outcomes[i].err != nil || outcomes[i].skipped {
			i++
			continue
		}
		kind := outcomes[i].kind
		j := i
		var events []types.Event
		for j < len(outcomes) && outcomes[j].err == nil && !outcomes[j].skipped && outcomes[j].kind == kind {
			events = append(events, outcomes[j].event)
			j++
		}

		switch kind {
		case runUpsertCheckExists:
			applied, err := deps.Committer.AppendUpsertsIfMissing(ctx, events)
			if err != nil {
				return err
			}
			for _, a := range applied {
				if a.Applied() {
					res.PostsAdded++
					seq := a.Seq()
					res.LastEventSeq = &seq
				} else {
					res.PostsSkipped++
				}
			}
		case runUpsertRefresh:
			results, err := deps.Committer.AppendUpserts(ctx, events)
			if err != nil {
				return err
			}
			for _, r := range results {
				res.PostsAdded++
				seq := r.Seq
				res.LastEventSeq = &seq
			}
		case runDelete:
			results, err := deps.Committer.AppendDeletes(ctx, events)
			if err != nil {
				return err
			}
			for _, r := range results {
				res.PostsAdded++
				seq := r.Seq
				res.LastEventSeq = &seq
			}
		}
		i = j
	}
	return nil
}
