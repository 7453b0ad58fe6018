package syncengine_test

import (
	"context"
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/syncengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCommit(uri string, timeUs int64, text, createdAt string) source.Commit {
	return source.Commit{
		Kind:   source.CommitCreate,
		URI:    uri,
		CID:    "bafy" + uri,
		DID:    "did:plc:author",
		Record: []byte(`{"text":"` + text + `","createdAt":"` + createdAt + `"}`),
		TimeUs: timeUs,
	}
}

// TestSyncJetstreamGroupsConsecutiveRuns exercises the run-grouping
// described in spec.md §4.5.1: consecutive creates commit as one batched
// upsert, and the cursor advances to the max time_us observed.
func TestSyncJetstreamGroupsConsecutiveRuns(t *testing.T) {
	deps := newTestDeps(t, filterrt.Collaborators{})
	src := source.NewFakeCommits(
		createCommit("at://j/1", 100, "one", "2026-01-01T00:00:00Z"),
		createCommit("at://j/2", 200, "two", "2026-01-01T00:01:00Z"),
		createCommit("at://j/3", 300, "three", "2026-01-01T00:02:00Z"),
	)

	res, err := syncengine.SyncJetstream(context.Background(), deps, src, source.Spec{Tag: source.TagJetstream},
		filterast.All(), syncengine.Options{Policy: syncengine.PolicyDedupe}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PostsAdded)
	assert.Equal(t, 0, res.PostsSkipped)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "300", res.FinalCursor)
}

// TestSyncJetstreamDeleteRun checks a delete commit is dispatched through
// AppendDeletes rather than the upsert path.
func TestSyncJetstreamDeleteRun(t *testing.T) {
	deps := newTestDeps(t, filterrt.Collaborators{})
	src := source.NewFakeCommits(
		createCommit("at://j/1", 100, "one", "2026-01-01T00:00:00Z"),
		source.Commit{Kind: source.CommitDelete, URI: "at://j/2", CID: "bafydel", TimeUs: 200},
	)

	res, err := syncengine.SyncJetstream(context.Background(), deps, src, source.Spec{Tag: source.TagJetstream},
		filterast.All(), syncengine.Options{Policy: syncengine.PolicyDedupe}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PostsAdded) // one upsert + one delete, both counted as applied events
	assert.Empty(t, res.Errors)
}

// TestSyncJetstreamDryRunNoWrites checks dry-run mode counts matches
// without touching the committer.
func TestSyncJetstreamDryRunNoWrites(t *testing.T) {
	deps := newTestDeps(t, filterrt.Collaborators{})
	src := source.NewFakeCommits(createCommit("at://j/1", 100, "one", "2026-01-01T00:00:00Z"))

	res, err := syncengine.SyncJetstream(context.Background(), deps, src, source.Spec{Tag: source.TagJetstream},
		filterast.All(), syncengine.Options{Policy: syncengine.PolicyDedupe, DryRun: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PostsAdded)

	cp, ok, err := deps.Checkpoints.GetSync(source.Spec{Tag: source.TagJetstream}.Key())
	require.NoError(t, err)
	assert.False(t, ok, "dry-run must not persist a checkpoint")
	_ = cp
}

// TestSyncJetstreamStrictModeAborts checks strict mode surfaces the first
// per-event error as a run-ending error.
func TestSyncJetstreamStrictModeAborts(t *testing.T) {
	deps := newTestDeps(t, filterrt.Collaborators{})
	src := source.NewFakeCommits(
		source.Commit{Kind: source.CommitCreate, URI: "at://j/bad", Record: []byte(`{"text":"oops","createdAt":"not-a-date"}`), TimeUs: 100},
	)

	_, err := syncengine.SyncJetstream(context.Background(), deps, src, source.Spec{Tag: source.TagJetstream},
		filterast.All(), syncengine.Options{Policy: syncengine.PolicyDedupe, Strict: true}, nil)
	assert.Error(t, err)
}
