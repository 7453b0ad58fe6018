package committer_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.Handle {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	h, err := store.Open(ctx, "test", filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, index.Bootstrap(ctx, h.DB))
	return h
}

func upsertEvent(uri string) types.Event {
	p := &types.Post{
		URI:       ids.URI(uri),
		CID:       ids.CID("cid-" + uri),
		Author:    ids.Handle("alice.bsky"),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Text:      "hello",
	}
	return types.NewPostUpsert(p, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()})
}

// TestAppendUpsertIfMissingDedupes is invariant 4 (dedupe idempotence):
// re-appending a PostUpsert for a URI already in posts must be a no-op —
// applied is false and the second call does not grow the event log.
func TestAppendUpsertIfMissingDedupes(t *testing.T) {
	h := openTestStore(t)
	c := committer.New(h.DB)
	ctx := context.Background()

	_, ok, err := c.AppendUpsertIfMissing(ctx, upsertEvent("at://p1"))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.AppendUpsertIfMissing(ctx, upsertEvent("at://p1"))
	require.NoError(t, err)
	require.False(t, ok, "a second if-missing append for the same URI must be skipped")

	var logCount int
	require.NoError(t, h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&logCount))
	require.Equal(t, 1, logCount)
}

// TestAppendUpsertAdvancesCheckpoint guards that every committed batch
// advances index_checkpoints.primary in the same transaction as the write.
func TestAppendUpsertAdvancesCheckpoint(t *testing.T) {
	h := openTestStore(t)
	c := committer.New(h.DB)
	ctx := context.Background()

	res, err := c.AppendUpsert(ctx, upsertEvent("at://p1"))
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Seq)

	cp, err := index.GetCheckpoint(ctx, h.DB, types.PrimaryIndexName)
	require.NoError(t, err)
	require.EqualValues(t, 1, cp.LastEventSeq)
	require.EqualValues(t, 1, cp.EventCount)

	res, err = c.AppendUpsert(ctx, upsertEvent("at://p2"))
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Seq)

	cp, err = index.GetCheckpoint(ctx, h.DB, types.PrimaryIndexName)
	require.NoError(t, err)
	require.EqualValues(t, 2, cp.LastEventSeq)
	require.EqualValues(t, 2, cp.EventCount)
}

// TestAppendUpsertsIfMissingSkipsExistingWithinBatch guards the batched
// if-missing form against a batch that contains a URI already indexed.
func TestAppendUpsertsIfMissingSkipsExistingWithinBatch(t *testing.T) {
	h := openTestStore(t)
	c := committer.New(h.DB)
	ctx := context.Background()

	_, err := c.AppendUpsert(ctx, upsertEvent("at://p1"))
	require.NoError(t, err)

	outcomes, err := c.AppendUpsertsIfMissing(ctx, []types.Event{
		upsertEvent("at://p1"),
		upsertEvent("at://p2"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.False(t, outcomes[0].Applied())
	require.True(t, outcomes[1].Applied())

	var count int
	require.NoError(t, h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count))
	require.Equal(t, 2, count)
}
