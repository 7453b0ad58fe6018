package source_test

import (
	"context"
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecKey(t *testing.T) {
	cases := []struct {
		name string
		spec source.Spec
		want string
	}{
		{"timeline", source.Spec{Tag: source.TagTimeline}, "timeline"},
		{"feed", source.Spec{Tag: source.TagFeed, URI: "at://did/app.bsky.feed.generator/x"}, "feed:at://did/app.bsky.feed.generator/x"},
		{"list", source.Spec{Tag: source.TagList, URI: "at://did/app.bsky.graph.list/y"}, "list:at://did/app.bsky.graph.list/y"},
		{"notifications", source.Spec{Tag: source.TagNotifications}, "notifications"},
		{"author default subfilter", source.Spec{Tag: source.TagAuthor, Actor: "did:plc:abc"}, "author:did:plc:abc:posts_no_replies"},
		{"author explicit subfilter", source.Spec{Tag: source.TagAuthor, Actor: "did:plc:abc", SubFilter: "posts_with_replies"}, "author:did:plc:abc:posts_with_replies"},
		{"thread", source.Spec{Tag: source.TagThread, URI: "at://did/app.bsky.feed.post/z"}, "thread:at://did/app.bsky.feed.post/z"},
		{"jetstream", source.Spec{Tag: source.TagJetstream}, "jetstream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.spec.Key())
		})
	}
}

func TestFakeNextExhausts(t *testing.T) {
	f := source.NewFake(
		source.RawPost{URI: "at://x/1"},
		source.RawPost{URI: "at://x/2"},
	)
	ctx := context.Background()

	p1, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "at://x/1", p1.URI)

	p2, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "at://x/2", p2.URI)

	_, ok, err = f.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFakeInjectsErrorOnce(t *testing.T) {
	f := source.NewFake(
		source.RawPost{URI: "at://x/1"},
		source.RawPost{URI: "at://x/2"},
	)
	f.ErrAt = 0
	ctx := context.Background()

	_, ok, err := f.Next(ctx)
	assert.Error(t, err)
	assert.False(t, ok)

	p2, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "at://x/2", p2.URI)
}

func TestFakeRespectsCancellation(t *testing.T) {
	f := source.NewFake(source.RawPost{URI: "at://x/1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := f.Next(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
}
