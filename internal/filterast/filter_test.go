package filterast_test

import (
	"encoding/json"
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/stretchr/testify/require"
)

// TestFingerprintStableUnderReordering is invariant 5: two expressions that
// differ only in And/Or child order must fingerprint identically, since a
// sync/derivation checkpoint keyed by fingerprint must still be considered
// compatible after the DSL/JSON round-trip reorders children.
func TestFingerprintStableUnderReordering(t *testing.T) {
	a := filterast.And(
		filterast.Expr{Tag: filterast.TagAuthor, Author: "alice"},
		filterast.Expr{Tag: filterast.TagHashtag, Hashtag: "go"},
	)
	b := filterast.And(
		filterast.Expr{Tag: filterast.TagHashtag, Hashtag: "go"},
		filterast.Expr{Tag: filterast.TagAuthor, Author: "alice"},
	)
	require.Equal(t, filterast.Fingerprint(a), filterast.Fingerprint(b))
}

// TestFingerprintDiffersOnSemanticChange guards against a fingerprint that
// ignores leaf parameters.
func TestFingerprintDiffersOnSemanticChange(t *testing.T) {
	a := filterast.Expr{Tag: filterast.TagAuthor, Author: "alice"}
	b := filterast.Expr{Tag: filterast.TagAuthor, Author: "bob"}
	require.NotEqual(t, filterast.Fingerprint(a), filterast.Fingerprint(b))
}

// TestSimplifyEmptyInCollapsesToNone covers the Simplify rules named in
// spec.md §4.2.1: AuthorIn/HashtagIn/Language with an empty set become
// None.
func TestSimplifyEmptyInCollapsesToNone(t *testing.T) {
	e := filterast.Simplify(filterast.Expr{Tag: filterast.TagAuthorIn, Authors: nil})
	require.Equal(t, filterast.TagNone, e.Tag)

	e = filterast.Simplify(filterast.Expr{Tag: filterast.TagHashtagIn, Hashtags: nil})
	require.Equal(t, filterast.TagNone, e.Tag)

	e = filterast.Simplify(filterast.Expr{Tag: filterast.TagLanguage, Langs: nil})
	require.Equal(t, filterast.TagNone, e.Tag)
}

// TestSimplifyAndShortCircuitsOnNone covers And absorbing All and
// short-circuiting to None.
func TestSimplifyAndShortCircuitsOnNone(t *testing.T) {
	e := filterast.Simplify(filterast.And(
		filterast.All(),
		filterast.None(),
		filterast.Expr{Tag: filterast.TagIsReply},
	))
	require.Equal(t, filterast.TagNone, e.Tag)
}

// TestExprJSONRoundTrip guards the wire format of spec.md §6: an Expr
// encoded to JSON and decoded back must be identical to the source.
func TestExprJSONRoundTrip(t *testing.T) {
	original := filterast.Or(
		filterast.Expr{Tag: filterast.TagAuthor, Author: "alice.bsky"},
		filterast.Expr{Tag: filterast.TagHashtag, Hashtag: "later"},
	)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded filterast.Expr
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}
