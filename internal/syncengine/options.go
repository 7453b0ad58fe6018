// Package syncengine drives a source.Source (or source.CommitSource, for
// the Jetstream variant) through the parser, the filter runtime, and the
// committer, with checkpointed resume and configurable dedupe/refresh
// semantics (spec.md §4.5).
package syncengine

import "time"

// Policy selects how a matched post is committed.
type Policy string

const (
	// PolicyDedupe calls append_upsert_if_missing; a post already indexed
	// counts as skipped.
	PolicyDedupe Policy = "dedupe"
	// PolicyRefresh calls append_upsert unconditionally.
	PolicyRefresh Policy = "refresh"
)

// Options configures one sync run.
type Options struct {
	Policy Policy

	// Limit caps the number of raw posts considered; 0 means unbounded.
	Limit int

	// DryRun simulates the run (spec.md §4.5.2): no events are written and
	// no checkpoint is persisted. Dedupe is simulated with an in-process seen
	// set plus index.HasURI probes, and matched posts that would be stored
	// are counted in Result.PostsAdded; no per-post outcome label is
	// produced.
	DryRun bool

	// Strict aborts the sync on the first per-event error instead of
	// counting it. Only meaningful for the Jetstream variant per spec.md
	// §4.5.1; the one-shot Sync always recovers per-event errors locally
	// (spec.md §7).
	Strict bool

	// MaxErrors aborts the sync once the collected error count exceeds it.
	// 0 means unbounded.
	MaxErrors int

	// CheckpointEvery persists the checkpoint after this many committed
	// events, in addition to the wall-clock interval below. 0 uses
	// DefaultCheckpointEvery.
	CheckpointEvery int

	// CheckpointInterval persists the checkpoint after this much wall-clock
	// time has elapsed since the last save. 0 uses
	// DefaultCheckpointInterval.
	CheckpointInterval time.Duration

	// BatchSize bounds how many raw posts are parsed and filtered
	// concurrently before being committed, in source order (spec.md §5).
	// 0 uses DefaultBatchSize.
	BatchSize int

	// Duration bounds the sync's total wall-clock run time; 0 means
	// unbounded. When it elapses, the source is no longer read, a final
	// checkpoint save runs, and the run returns with Result.Cancelled set
	// (spec.md §5); no separate warning is reported.
	Duration time.Duration

	// Command is free-form provenance recorded on every event's
	// EventMeta.Command.
	Command string
}

// DefaultBatchSize is used when Options.BatchSize is unset.
const DefaultBatchSize = 32

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

// DefaultCheckpointEvery mirrors the teacher's "page-granular checkpoint"
// convention: persist at least every N committed events even if the
// wall-clock interval has not elapsed.
const DefaultCheckpointEvery = 200

// DefaultCheckpointInterval is the wall-clock fallback trigger.
const DefaultCheckpointInterval = 10 * time.Second

// DefaultProgressInterval matches spec.md §4.5 step 6: report at 100-event
// intervals or every 5s, whichever comes first.
const DefaultProgressInterval = 5 * time.Second

// DefaultProgressEvery is the event-count progress trigger.
const DefaultProgressEvery = 100
