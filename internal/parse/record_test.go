package parse_test

import (
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/parse"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostBasicS1(t *testing.T) {
	raw := source.RawPost{
		URI:    "at://x/1",
		Author: "alice.bsky",
		Record: []byte(`{"text":"Hello #effect","createdAt":"2026-01-01T00:00:00Z","facets":[{"features":[{"$type":"app.bsky.richtext.facet#tag","tag":"effect"}]}]}`),
	}

	p, err := parse.Post(raw)
	require.NoError(t, err)
	assert.Equal(t, "Hello #effect", p.Text)
	assert.Equal(t, []string{"effect"}, p.Hashtags)
	assert.True(t, p.IsOriginal())
	assert.Equal(t, "2026-01-01T00:00:00Z", p.CreatedAt.Format("2006-01-02T15:04:05Z"))
}

func TestPostReply(t *testing.T) {
	raw := source.RawPost{
		URI: "at://x/2",
		Record: []byte(`{"text":"reply","createdAt":"2026-01-01T00:00:00Z",
			"reply":{"root":{"uri":"at://x/1"},"parent":{"uri":"at://x/1"}}}`),
	}

	p, err := parse.Post(raw)
	require.NoError(t, err)
	require.True(t, p.IsReply())
	assert.EqualValues(t, "at://x/1", p.ReplyRootURI())
}

func TestPostImagesEmbed(t *testing.T) {
	raw := source.RawPost{
		URI: "at://x/3",
		Record: []byte(`{"text":"pic","createdAt":"2026-01-01T00:00:00Z",
			"embed":{"$type":"app.bsky.embed.images","images":[{"alt":"a cat","thumb":"t","fullsize":"f"}]}}`),
	}

	p, err := parse.Post(raw)
	require.NoError(t, err)
	require.NotNil(t, p.Embed)
	assert.Equal(t, types.EmbedImages, p.Embed.Kind)
	assert.True(t, p.HasImages())
	assert.Equal(t, "a cat", p.AltText())
	assert.True(t, p.HasAltText())
}

func TestPostDedupesHashtagsAndLowercases(t *testing.T) {
	raw := source.RawPost{
		URI: "at://x/4",
		Record: []byte(`{"text":"dup","createdAt":"2026-01-01T00:00:00Z","facets":[
			{"features":[{"$type":"app.bsky.richtext.facet#tag","tag":"Go"}]},
			{"features":[{"$type":"app.bsky.richtext.facet#tag","tag":"go"}]}
		]}`),
	}

	p, err := parse.Post(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, p.Hashtags)
}

func TestPostInvalidCreatedAt(t *testing.T) {
	raw := source.RawPost{
		URI:    "at://x/5",
		Record: []byte(`{"text":"bad","createdAt":"not-a-date"}`),
	}
	_, err := parse.Post(raw)
	assert.Error(t, err)
}

func TestWithViewOverlaysMetricsAndFeedReason(t *testing.T) {
	p := &types.Post{URI: "at://x/6"}
	parse.WithView(p, parse.ViewMetrics{LikeCount: 3, RepostCount: 1, FeedReason: "repost"})

	require.NotNil(t, p.Metrics)
	assert.Equal(t, 3, p.Metrics.LikeCount)
	require.NotNil(t, p.Feed)
	assert.Equal(t, "repost", p.Feed.Reason)
	assert.True(t, p.IsRepost())
}
