package filterrt_test

import (
	"context"
	"testing"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/require"
)

func newRuntime() *filterrt.Runtime { return filterrt.New(filterrt.Collaborators{}) }

// TestRuntimeAuthorCaseInsensitive guards the comparison filterrt actually
// uses (strings.EqualFold): handles are stored as received and never
// lowercased at index time, so the runtime must fold case at eval time.
func TestRuntimeAuthorCaseInsensitive(t *testing.T) {
	p := &types.Post{URI: ids.URI("at://p1"), Author: ids.Handle("Alice.Bsky")}
	out, err := newRuntime().Eval(context.Background(), filterast.Expr{Tag: filterast.TagAuthor, Author: "alice.bsky"}, p)
	require.NoError(t, err)
	require.True(t, out.Match)
}

// TestRuntimeHashtagNormalizesBothSides guards hasHashtag's own
// normalization, independent of whatever normalization happened (or didn't)
// at storage time.
func TestRuntimeHashtagNormalizesBothSides(t *testing.T) {
	p := &types.Post{URI: ids.URI("at://p1"), Hashtags: []string{"later"}}
	out, err := newRuntime().Eval(context.Background(), filterast.Expr{Tag: filterast.TagHashtag, Hashtag: "#LATER"}, p)
	require.NoError(t, err)
	require.True(t, out.Match)
}

// TestRuntimeAndOrNot exercises the boolean combinators together.
func TestRuntimeAndOrNot(t *testing.T) {
	p := &types.Post{URI: ids.URI("at://p1"), Author: ids.Handle("alice"), Text: "hello world"}

	expr := filterast.And(
		filterast.Or(
			filterast.Expr{Tag: filterast.TagAuthor, Author: "bob"},
			filterast.Expr{Tag: filterast.TagAuthor, Author: "alice"},
		),
		filterast.Not(filterast.Expr{Tag: filterast.TagIsReply}),
	)
	out, err := newRuntime().Eval(context.Background(), expr, p)
	require.NoError(t, err)
	require.True(t, out.Match)
}

// TestRuntimeDateRange covers the engagement/date-range pure leaves.
func TestRuntimeDateRange(t *testing.T) {
	p := &types.Post{
		URI:       ids.URI("at://p1"),
		CreatedAt: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Metrics:   &types.Metrics{LikeCount: 10},
	}
	rt := newRuntime()

	out, err := rt.Eval(context.Background(), filterast.Expr{
		Tag: filterast.TagDateRange, Start: "2026-01-01T00:00:00Z", End: "2026-12-31T00:00:00Z",
	}, p)
	require.NoError(t, err)
	require.True(t, out.Match)

	minLikes := 5
	out, err = rt.Eval(context.Background(), filterast.Expr{Tag: filterast.TagEngagement, MinLikes: &minLikes}, p)
	require.NoError(t, err)
	require.True(t, out.Match)

	minLikes = 50
	out, err = rt.Eval(context.Background(), filterast.Expr{Tag: filterast.TagEngagement, MinLikes: &minLikes}, p)
	require.NoError(t, err)
	require.False(t, out.Match)
}
