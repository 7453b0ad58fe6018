package source

import (
	"context"
	"encoding/json"
)

// Resumable is implemented by adapters that can seek to a remote cursor
// before yielding (spec.md §4.5 step 2). Sources that cannot resume (e.g. a
// finite Thread page) simply don't implement it; the sync engine then
// starts from the beginning each run.
type Resumable interface {
	Resume(cursor string)
}

// Source is a lazy, ordered sequence of RawPost. Next returns (post, true,
// nil) for each element in source order, (_, false, nil) once the sequence
// is exhausted, or a non-nil error if the underlying channel failed (a
// source-stage SyncError per spec.md §7). Implementations of the real
// Timeline/Feed/List/Notifications/Author/Thread adapters live outside this
// module (external collaborators, spec.md §1); Source is the contract the
// sync engine drives against.
type Source interface {
	Next(ctx context.Context) (RawPost, bool, error)
}

// CommitKind tags a Jetstream commit message's operation.
type CommitKind string

const (
	CommitCreate CommitKind = "create"
	CommitUpdate CommitKind = "update"
	CommitDelete CommitKind = "delete"
)

// Commit is one Jetstream message, already filtered to the post collection
// (spec.md §4.5.1). TimeUs is the firehose cursor, in microseconds.
type Commit struct {
	Kind   CommitKind
	URI    string
	CID    string
	DID    string
	Record json.RawMessage
	TimeUs int64
}

// CommitSource is the firehose variant of Source: it yields commit messages
// rather than RawPost.
type CommitSource interface {
	Next(ctx context.Context) (Commit, bool, error)
}
