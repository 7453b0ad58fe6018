package filterdsl_test

import (
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterdsl"
	"github.com/stretchr/testify/require"
)

// TestParseAuthorHashtagNot reproduces the DSL example named in the
// filterdsl package doc: author:alice AND #tech AND NOT is_reply.
func TestParseAuthorHashtagNot(t *testing.T) {
	expr, err := filterdsl.Parse(`author:alice AND #tech AND NOT is_reply`)
	require.NoError(t, err)

	want := filterast.And(
		filterast.Expr{Tag: filterast.TagAuthor, Author: "alice"},
		filterast.Expr{Tag: filterast.TagHashtag, Hashtag: "tech"},
		filterast.Not(filterast.Expr{Tag: filterast.TagIsReply}),
	)
	require.Equal(t, want, expr)
}

// TestParseOrAndPrecedence checks AND binds tighter than OR, and that
// parentheses override precedence.
func TestParseOrAndPrecedence(t *testing.T) {
	expr, err := filterdsl.Parse(`author:alice AND has_media OR author:bob`)
	require.NoError(t, err)
	require.Equal(t, filterast.TagOr, expr.Tag)
	require.Len(t, expr.Children, 2)
	require.Equal(t, filterast.TagAnd, expr.Children[0].Tag)

	expr, err = filterdsl.Parse(`author:alice AND (has_media OR author:bob)`)
	require.NoError(t, err)
	require.Equal(t, filterast.TagAnd, expr.Tag)
	require.Equal(t, filterast.TagOr, expr.Children[1].Tag)
}

// TestParseQuotedStringWithSpaces covers string-valued leaves.
func TestParseQuotedStringWithSpaces(t *testing.T) {
	expr, err := filterdsl.Parse(`contains:"hello world"`)
	require.NoError(t, err)
	require.Equal(t, filterast.Expr{Tag: filterast.TagContains, Text: "hello world", CaseSensitive: false}, expr)
}

// TestParseUnknownFieldErrors guards the parser's error path for an
// unrecognized bare keyword.
func TestParseUnknownFieldErrors(t *testing.T) {
	_, err := filterdsl.Parse(`bogus_field`)
	require.Error(t, err)
}

// TestParseMinLikesInteger covers the numeric engagement leaves.
func TestParseMinLikesInteger(t *testing.T) {
	expr, err := filterdsl.Parse(`min_likes:100`)
	require.NoError(t, err)
	require.Equal(t, filterast.TagEngagement, expr.Tag)
	require.NotNil(t, expr.MinLikes)
	require.Equal(t, 100, *expr.MinLikes)
}
