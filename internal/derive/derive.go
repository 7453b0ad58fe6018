// Package derive implements the derivation engine of spec.md §4.6: it
// projects one store's event stream into another through a filter,
// checkpointed on the source's event seq rather than a remote cursor.
package derive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/eventlog"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// Options configures one derivation run.
type Options struct {
	Mode  types.DerivationMode
	Reset bool
}

// Result reports the counting invariant of spec.md §4.6:
// processed == matched + skipped + deletes_propagated.
type Result struct {
	Processed         int
	Matched           int
	Skipped           int
	DeletesPropagated int
	LastSourceSeq     *uint64
}

// Deps bundles the target store's collaborators plus a handle to the
// source store's event log and checkpoints.
type Deps struct {
	SourceName string
	SourceDB   *sql.DB

	TargetName        string
	TargetDB          *sql.DB
	TargetCommitter   *committer.Committer
	TargetCheckpoints *store.Checkpoints
	TargetRuntime     *filterrt.Runtime
}

// Derive streams deps.SourceDB's event_log after the last checkpointed seq
// into deps.TargetDB through filter, per spec.md §4.6.
func Derive(ctx context.Context, deps Deps, filter filterast.Expr, opts Options) (Result, error) {
	if deps.SourceName == deps.TargetName {
		return Result{}, engineerr.New(engineerr.KindDerivation, "source and target must differ", nil)
	}
	if opts.Mode == types.ModeEventTime && !filterast.IsPure(filter) {
		return Result{}, engineerr.New(engineerr.KindDerivation, "event_time derivation requires a pure filter", nil)
	}

	fingerprint := filterast.Fingerprint(filter)
	var afterSeq uint64

	if opts.Reset {
		if err := index.ClearAll(ctx, deps.TargetDB); err != nil {
			return Result{}, engineerr.New(engineerr.KindDerivation, "failed to clear target for reset", err)
		}
		if err := deps.TargetCheckpoints.DeleteDerivation(deps.TargetName, deps.SourceName); err != nil {
			return Result{}, engineerr.New(engineerr.KindDerivation, "failed to clear derivation checkpoint", err)
		}
	} else {
		cp, ok, err := deps.TargetCheckpoints.GetDerivation(deps.TargetName, deps.SourceName)
		if err != nil {
			return Result{}, engineerr.New(engineerr.KindDerivation, "failed to read derivation checkpoint", err)
		}
		if ok {
			if cp.FilterFingerprint != fingerprint {
				return Result{}, engineerr.New(engineerr.KindDerivation, "derivation checkpoint filter fingerprint mismatch; rerun with reset", nil)
			}
			if cp.LastSourceEventSeq != nil {
				afterSeq = *cp.LastSourceEventSeq
			}
		} else {
			empty, err := targetIsEmpty(ctx, deps.TargetDB)
			if err != nil {
				return Result{}, engineerr.New(engineerr.KindDerivation, "failed to check target emptiness", err)
			}
			if !empty {
				return Result{}, engineerr.New(engineerr.KindDerivation, "non-empty target has no derivation checkpoint", nil)
			}
		}
	}

	log := eventlog.New(deps.SourceDB)
	cursor := log.StreamFrom(ctx, afterSeq)

	res := Result{}
	seen := make(map[string]struct{})
	var lastSeq uint64
	haveLastSeq := afterSeq > 0
	if haveLastSeq {
		lastSeq = afterSeq
	}

	finalize := func(runErr error) (Result, error) {
		if haveLastSeq {
			seq := lastSeq
			res.LastSourceSeq = &seq
		}
		cp := types.DerivationCheckpoint{
			Mode:              opts.Mode,
			FilterFingerprint: fingerprint,
			UpdatedAt:         time.Now().UTC(),
		}
		if res.LastSourceSeq != nil {
			seq := *res.LastSourceSeq
			cp.LastSourceEventSeq = &seq
		}
		if runErr == nil {
			if perr := deps.TargetCheckpoints.PutDerivation(deps.TargetName, deps.SourceName, cp); perr != nil {
				return res, engineerr.New(engineerr.KindDerivation, "failed to persist derivation checkpoint", perr)
			}
			if lerr := persistLineage(deps, filter, opts.Mode); lerr != nil {
				return res, engineerr.New(engineerr.KindDerivation, "failed to persist lineage", lerr)
			}
		}
		return res, runErr
	}

	for cursor.Next() {
		if err := ctx.Err(); err != nil {
			return finalize(nil)
		}
		rec := cursor.Record()
		lastSeq = rec.Seq
		haveLastSeq = true
		res.Processed++

		switch rec.Event.Tag {
		case types.EventTagPostUpsert:
			if rec.Event.Post == nil {
				res.Skipped++
				continue
			}
			out, err := deps.TargetRuntime.Eval(ctx, filter, rec.Event.Post)
			if err != nil {
				return finalize(engineerr.New(engineerr.KindDerivation, "filter evaluation failed during derivation", err))
			}
			if !out.Match {
				res.Skipped++
				continue
			}
			uri := string(rec.Event.Post.URI)
			if _, dup := seen[uri]; dup {
				res.Skipped++
				continue
			}
			seen[uri] = struct{}{}

			meta := types.EventMeta{Source: deps.SourceName, FilterFingerprint: fingerprint, CreatedAt: time.Now().UTC()}
			ev := types.NewPostUpsert(rec.Event.Post, meta)
			_, applied, err := deps.TargetCommitter.AppendUpsertIfMissing(ctx, ev)
			if err != nil {
				return finalize(engineerr.New(engineerr.KindDerivation, "failed to append derived upsert", err))
			}
			if applied {
				res.Matched++
			} else {
				res.Skipped++
			}

		case types.EventTagPostDelete:
			meta := types.EventMeta{Source: deps.SourceName, FilterFingerprint: fingerprint, CreatedAt: time.Now().UTC()}
			ev := types.NewPostDelete(rec.Event.URI, rec.Event.CID, meta)
			if _, err := deps.TargetCommitter.AppendDelete(ctx, ev); err != nil {
				return finalize(engineerr.New(engineerr.KindDerivation, "failed to propagate derived delete", err))
			}
			res.DeletesPropagated++
		}
	}
	if err := cursor.Err(); err != nil {
		return finalize(engineerr.New(engineerr.KindDerivation, "failed to stream source event log", err))
	}

	return finalize(nil)
}

func targetIsEmpty(ctx context.Context, db *sql.DB) (bool, error) {
	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return false, fmt.Errorf("derive: count target posts: %w", err)
	}
	return count == 0, nil
}

func persistLineage(deps Deps, filter filterast.Expr, mode types.DerivationMode) error {
	lineage, ok, err := deps.TargetCheckpoints.GetLineage()
	if err != nil {
		return err
	}
	if !ok {
		lineage = types.Lineage{Target: deps.TargetName}
	}
	lineage.Derived = true
	lineage.UpdatedAt = time.Now().UTC()

	src := types.LineageSource{
		Store:     deps.SourceName,
		Filter:    filter.String(),
		Mode:      mode,
		DerivedAt: lineage.UpdatedAt,
	}
	replaced := false
	for i, s := range lineage.Sources {
		if s.Store == deps.SourceName {
			lineage.Sources[i] = src
			replaced = true
			break
		}
	}
	if !replaced {
		lineage.Sources = append(lineage.Sources, src)
	}
	return deps.TargetCheckpoints.PutLineage(lineage)
}
