package eventlog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/eventlog"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *store.Handle {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	h, err := store.Open(ctx, "test", filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, eventlog.MigrateEventLog(h.DB))
	return h
}

// TestAppendBatchAssignsIncreasingSeqs guards the append-ordering invariant
// (spec.md §8 invariant 2): seqs are assigned in input order and are dense
// and strictly increasing.
func TestAppendBatchAssignsIncreasingSeqs(t *testing.T) {
	h := openTestLog(t)
	ctx := context.Background()

	conn, err := h.DB.Conn(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	events := []types.Event{
		types.NewPostUpsert(&types.Post{URI: ids.URI("at://p1")}, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}),
		types.NewPostUpsert(&types.Post{URI: ids.URI("at://p2")}, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}),
		types.NewPostDelete(ids.URI("at://p1"), ids.CID("cid-1"), types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}),
	}
	seqs, err := eventlog.AppendBatch(ctx, conn, events)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, seqs)

	log := eventlog.New(h.DB)
	last, err := log.LastSeq(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, last)
}

// TestStreamFromYieldsInOrderAndResumes drives StreamFrom with ten rows (all
// within one PageSize page), asserting it yields every record in seq order
// and that a stream started after seq 5 yields only the later records.
func TestStreamFromYieldsInOrderAndResumes(t *testing.T) {
	h := openTestLog(t)
	ctx := context.Background()
	log := eventlog.New(h.DB)

	conn, err := h.DB.Conn(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var events []types.Event
	for i := 0; i < 10; i++ {
		events = append(events, types.NewPostUpsert(
			&types.Post{URI: ids.URI(postURI(i))},
			types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	}
	_, err = eventlog.AppendBatch(ctx, conn, events)
	require.NoError(t, err)

	cursor := log.StreamFrom(ctx, 0)
	var seqs []uint64
	for cursor.Next() {
		seqs = append(seqs, cursor.Record().Seq)
	}
	require.NoError(t, cursor.Err())
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seqs)

	resumed := log.StreamFrom(ctx, 5)
	var resumedSeqs []uint64
	for resumed.Next() {
		resumedSeqs = append(resumedSeqs, resumed.Record().Seq)
	}
	require.NoError(t, resumed.Err())
	require.Equal(t, []uint64{6, 7, 8, 9, 10}, resumedSeqs)
}

func postURI(i int) string {
	digits := "0123456789"
	buf := [2]byte{digits[(i/10)%10], digits[i%10]}
	return "at://p" + string(buf[:])
}
