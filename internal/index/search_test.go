package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/require"
)

// TestSearchFTSLiteralQuery is scenario S7: a plain (operator-free) query
// string is matched as a literal AND of its tokens against posts_fts, not
// misinterpreted as FTS5 boolean syntax.
func TestSearchFTSLiteralQuery(t *testing.T) {
	h := openTestIndex(t)
	c := committer.New(h.DB)
	ctx := context.Background()

	p := &types.Post{
		URI:       ids.URI("at://p1"),
		CID:       ids.CID("cid-1"),
		Author:    ids.Handle("alice.bsky"),
		CreatedAt: time.Now().UTC(),
		Text:      "Kubernetes AND Docker tips",
	}
	_, err := c.AppendUpsert(ctx, types.NewPostUpsert(p, types.EventMeta{Source: "test", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	page, err := index.Search(ctx, h.DB, index.SearchQuery{Query: "Kubernetes Docker"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	require.Equal(t, "at://p1", string(page.Posts[0].URI))

	page, err = index.Search(ctx, h.DB, index.SearchQuery{Query: `"Kubernetes"`})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)

	page, err = index.Search(ctx, h.DB, index.SearchQuery{Query: "golang"})
	require.NoError(t, err)
	require.Empty(t, page.Posts)
}
