package syncengine

import (
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
)

// Result is what Sync returns on completion, cancellation, or a
// store-stage abort.
type Result struct {
	PostsAdded   int
	PostsSkipped int
	Errors       []*engineerr.Error

	// FinalCursor is the most recent page_cursor observed, persisted to the
	// sync checkpoint.
	FinalCursor string

	// LastEventSeq is the committer seq of the last event this run
	// appended, or nil if nothing was appended.
	LastEventSeq *uint64

	Duration time.Duration

	// Cancelled reports whether the run ended via context cancellation or
	// the Duration bound rather than source exhaustion.
	Cancelled bool
}

// Progress is reported at the cadence described in spec.md §4.5 step 6.
type Progress struct {
	Processed int
	Added     int
	Skipped   int
	Errors    int
	Rate      float64 // events/sec, computed since run start
	Elapsed   time.Duration
}

// Reporter receives progress snapshots during a run. Implementations must
// not block the sync loop for long; Report is called synchronously from
// the suspension points spec.md §5 names.
type Reporter interface {
	Report(p Progress)
}

// NoopReporter discards progress.
type NoopReporter struct{}

// Report implements Reporter.
func (NoopReporter) Report(Progress) {}

// Event is one watch() cycle's outcome (spec.md §4.5).
type Event struct {
	Result Result
	Err    error
}
