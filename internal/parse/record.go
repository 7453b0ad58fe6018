// Package parse decodes a source.RawPost's opaque record payload into the
// canonical types.Post. The record shape mirrors an app.bsky.feed.post
// record: text, createdAt, facets (hashtags, mentions, links), reply,
// embed, and langs; engagement counters and feed/repost metadata come from
// the surrounding view rather than the record itself, when the source
// supplies them.
package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// facet mirrors the ATProto rich-text facet shape: a byte range plus one or
// more features (tag, mention, or link).
type facet struct {
	Features []struct {
		Type string `json:"$type"`
		Tag  string `json:"tag,omitempty"`
		Did  string `json:"did,omitempty"`
		URI  string `json:"uri,omitempty"`
	} `json:"features"`
}

type recordEmbed struct {
	Type   string `json:"$type,omitempty"`
	Images []struct {
		Alt   string `json:"alt,omitempty"`
		Thumb string `json:"thumb,omitempty"`
		Full  string `json:"fullsize,omitempty"`
	} `json:"images,omitempty"`
	Video *struct {
		Thumb string `json:"thumb,omitempty"`
		Alt   string `json:"alt,omitempty"`
	} `json:"video,omitempty"`
	External *struct {
		URI   string `json:"uri"`
		Title string `json:"title,omitempty"`
		Desc  string `json:"description,omitempty"`
	} `json:"external,omitempty"`
	Record *struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	} `json:"record,omitempty"`
	Media *recordEmbed `json:"media,omitempty"`
}

type record struct {
	Type      string      `json:"$type,omitempty"`
	Text      string      `json:"text"`
	CreatedAt string      `json:"createdAt"`
	Langs     []string    `json:"langs,omitempty"`
	Facets    []facet     `json:"facets,omitempty"`
	Reply     *struct {
		Root   struct{ URI string `json:"uri"` } `json:"root"`
		Parent struct{ URI string `json:"uri"` } `json:"parent"`
	} `json:"reply,omitempty"`
	Embed *recordEmbed `json:"embed,omitempty"`
}

// ViewMetrics carries the engagement counters and repost reason a feed
// response attaches alongside the record, when the source supplies them.
// Callers that have no view metadata (e.g. a bare author fetch) pass a zero
// value.
type ViewMetrics struct {
	LikeCount   int    `json:"like_count"`
	RepostCount int    `json:"repost_count"`
	ReplyCount  int    `json:"reply_count"`
	QuoteCount  int    `json:"quote_count"`
	FeedReason  string `json:"feed_reason,omitempty"`
}

// Post decodes raw into a canonical, normalized types.Post.
func Post(raw source.RawPost) (*types.Post, error) {
	var rec record
	if err := json.Unmarshal(raw.Record, &rec); err != nil {
		return nil, fmt.Errorf("parse: decode record for %s: %w", raw.URI, err)
	}

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse: created_at for %s: %w", raw.URI, err)
	}

	p := &types.Post{
		URI:       ids.URI(raw.URI),
		CID:       ids.CID(raw.CID),
		Author:    ids.Handle(raw.Author),
		AuthorDID: ids.DID(raw.AuthorDID),
		CreatedAt: createdAt.UTC(),
		Text:      rec.Text,
		Langs:     append([]string(nil), rec.Langs...),
	}

	for _, f := range rec.Facets {
		for _, feat := range f.Features {
			switch feat.Type {
			case "app.bsky.richtext.facet#tag":
				p.Hashtags = append(p.Hashtags, feat.Tag)
			case "app.bsky.richtext.facet#mention":
				p.Mentions = append(p.Mentions, feat.Did)
			case "app.bsky.richtext.facet#link":
				p.Links = append(p.Links, feat.URI)
			}
		}
	}

	if rec.Reply != nil {
		p.Reply = &types.Reply{
			RootURI:   ids.URI(rec.Reply.Root.URI),
			ParentURI: ids.URI(rec.Reply.Parent.URI),
		}
	}

	if rec.Embed != nil {
		embed, err := parseEmbed(*rec.Embed)
		if err != nil {
			return nil, fmt.Errorf("parse: embed for %s: %w", raw.URI, err)
		}
		p.Embed = embed
	}

	p.Normalize()
	return p, nil
}

// WithView overlays a feed view's engagement counters and repost reason
// onto a previously parsed post, for sources (Feed, Timeline, List) that
// supply them alongside the record.
func WithView(p *types.Post, m ViewMetrics) {
	p.Metrics = &types.Metrics{
		LikeCount:   m.LikeCount,
		RepostCount: m.RepostCount,
		ReplyCount:  m.ReplyCount,
		QuoteCount:  m.QuoteCount,
	}
	if m.FeedReason != "" {
		p.Feed = &types.Feed{Reason: m.FeedReason}
	}
}

func parseEmbed(e recordEmbed) (*types.Embed, error) {
	switch {
	case len(e.Images) > 0:
		items := make([]types.ImageItem, 0, len(e.Images))
		for _, im := range e.Images {
			items = append(items, types.ImageItem{Thumb: im.Thumb, Fullsize: im.Full, Alt: im.Alt})
		}
		return &types.Embed{Kind: types.EmbedImages, Images: items}, nil
	case e.Video != nil:
		return &types.Embed{Kind: types.EmbedVideo, Video: &struct {
			Thumb string `json:"thumb,omitempty"`
			Alt   string `json:"alt,omitempty"`
		}{Thumb: e.Video.Thumb, Alt: e.Video.Alt}}, nil
	case e.External != nil:
		return &types.Embed{Kind: types.EmbedExternal, External: &struct {
			URI         string `json:"uri"`
			Title       string `json:"title,omitempty"`
			Description string `json:"description,omitempty"`
		}{URI: e.External.URI, Title: e.External.Title, Description: e.External.Desc}}, nil
	case e.Record != nil && e.Media != nil:
		inner, err := parseEmbed(*e.Media)
		if err != nil {
			return nil, err
		}
		return &types.Embed{
			Kind: types.EmbedRecordWithMedia,
			RecordWithMedia: &struct {
				Record types.Embed `json:"record"`
				Media  types.Embed `json:"media"`
			}{
				Record: types.Embed{Kind: types.EmbedRecord, Record: &struct {
					URI ids.URI `json:"uri"`
					CID ids.CID `json:"cid"`
				}{URI: ids.URI(e.Record.URI), CID: ids.CID(e.Record.CID)}},
				Media: *inner,
			},
		}, nil
	case e.Record != nil:
		return &types.Embed{Kind: types.EmbedRecord, Record: &struct {
			URI ids.URI `json:"uri"`
			CID ids.CID `json:"cid"`
		}{URI: ids.URI(e.Record.URI), CID: ids.CID(e.Record.CID)}}, nil
	default:
		return nil, fmt.Errorf("parse: embed has no recognized variant")
	}
}
