package index_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/require"
)

// TestLogIndexConsistency is invariant 1: after every committed append, the
// index reflects exactly the event log's current state for that URI — a
// PostUpsert produces a posts row, and a subsequent PostDelete removes it.
func TestLogIndexConsistency(t *testing.T) {
	h := openTestIndex(t)
	c := committer.New(h.DB)
	ctx := context.Background()

	p := &types.Post{
		URI:       ids.URI("at://p1"),
		CID:       ids.CID("cid-1"),
		Author:    ids.Handle("alice.bsky"),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Text:      "hello",
	}
	_, err := c.AppendUpsert(ctx, types.NewPostUpsert(p, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	var count int
	require.NoError(t, h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE uri = ?`, "at://p1").Scan(&count))
	require.Equal(t, 1, count, "PostUpsert must produce exactly one posts row")

	var logCount int
	require.NoError(t, h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log WHERE event_tag = 'post_upsert'`).Scan(&logCount))
	require.Equal(t, 1, logCount)

	_, err = c.AppendDelete(ctx, types.NewPostDelete(p.URI, p.CID, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	require.NoError(t, h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE uri = ?`, "at://p1").Scan(&count))
	require.Equal(t, 0, count, "PostDelete must remove the posts row")

	require.NoError(t, h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&logCount))
	require.Equal(t, 2, logCount, "the log retains both events even though the index no longer has a row")

	cp, err := index.GetCheckpoint(ctx, h.DB, types.PrimaryIndexName)
	require.NoError(t, err)
	require.EqualValues(t, 2, cp.LastEventSeq)
	require.EqualValues(t, 2, cp.EventCount)
}

// TestRebuildEquivalence is invariant 3: clearing the index and replaying
// the event log via index.Rebuild must reproduce the same posts rows as
// incremental application did, including the effect of an update and a
// delete that happened after the initial insert.
func TestRebuildEquivalence(t *testing.T) {
	h := openTestIndex(t)
	c := committer.New(h.DB)
	ctx := context.Background()

	mk := func(uri, text string) *types.Post {
		return &types.Post{
			URI:       ids.URI(uri),
			CID:       ids.CID("cid-" + uri),
			Author:    ids.Handle("alice.bsky"),
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Text:      text,
			Hashtags:  []string{"#go"},
		}
	}

	p1 := mk("at://p1", "first version")
	_, err := c.AppendUpsert(ctx, types.NewPostUpsert(p1, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	p1Updated := mk("at://p1", "second version")
	_, err = c.AppendUpsert(ctx, types.NewPostUpsert(p1Updated, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	p2 := mk("at://p2", "will be deleted")
	_, err = c.AppendUpsert(ctx, types.NewPostUpsert(p2, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)
	_, err = c.AppendDelete(ctx, types.NewPostDelete(p2.URI, p2.CID, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	p3 := mk("at://p3", "untouched")
	_, err = c.AppendUpsert(ctx, types.NewPostUpsert(p3, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	before := snapshotPosts(t, h.DB)
	require.Len(t, before, 2, "p1 (updated) and p3 remain; p2 was deleted")

	_, err = h.DB.ExecContext(ctx, `DELETE FROM posts; DELETE FROM post_hashtag; DELETE FROM post_lang`)
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, h.DB))

	after := snapshotPosts(t, h.DB)
	require.Equal(t, before, after, "rebuilding from the event log must reproduce the same index state")

	cp, err := index.GetCheckpoint(ctx, h.DB, types.PrimaryIndexName)
	require.NoError(t, err)
	require.EqualValues(t, 5, cp.EventCount)
}

// snapshotPosts captures every posts row's derived columns plus its
// hashtag set, keyed by uri, so two snapshots can be compared for equality
// regardless of row order.
func snapshotPosts(t *testing.T, db *sql.DB) map[string]string {
	t.Helper()
	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `
		SELECT p.uri, p.author, p.text, p.created_at, p.is_reply, p.has_media,
		       p.like_count, p.repost_count, p.reply_count, p.quote_count,
		       (SELECT group_concat(h.tag, ',') FROM post_hashtag h WHERE h.uri = p.uri ORDER BY h.tag)
		FROM posts p
		ORDER BY p.uri
	`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	snapshot := make(map[string]string)
	for rows.Next() {
		var uri, author, text, createdAt, hashtags sql.NullString
		var isReply, hasMedia, likeCount, repostCount, replyCount, quoteCount int
		require.NoError(t, rows.Scan(&uri, &author, &text, &createdAt, &isReply, &hasMedia,
			&likeCount, &repostCount, &replyCount, &quoteCount, &hashtags))
		snapshot[uri.String] = author.String + "|" + text.String + "|" + createdAt.String + "|" +
			hashtags.String
	}
	require.NoError(t, rows.Err())
	return snapshot
}
