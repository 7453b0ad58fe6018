// Package types defines the canonical wire and in-memory records shared by
// the event log, index, and engines: posts, events, checkpoints, and store
// references.
package types

import (
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/ids"
)

// Reply identifies the thread root and direct parent of a reply post.
type Reply struct {
	RootURI   ids.URI `json:"root_uri"`
	ParentURI ids.URI `json:"parent_uri"`
}

// ImageItem is a single image within an Images embed.
type ImageItem struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt"`
}

// EmbedKind tags the variant of Embed.
type EmbedKind string

const (
	EmbedImages           EmbedKind = "images"
	EmbedVideo            EmbedKind = "video"
	EmbedExternal         EmbedKind = "external"
	EmbedRecord           EmbedKind = "record"
	EmbedRecordWithMedia  EmbedKind = "record_with_media"
)

// Embed is a tagged union over the post's embedded media/record variants.
// Only the field matching Kind is populated.
type Embed struct {
	Kind EmbedKind `json:"_tag"`

	Images []ImageItem `json:"images,omitempty"`

	Video *struct {
		Thumb string `json:"thumb,omitempty"`
		Alt   string `json:"alt,omitempty"`
	} `json:"video,omitempty"`

	External *struct {
		URI         string `json:"uri"`
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
	} `json:"external,omitempty"`

	Record *struct {
		URI ids.URI `json:"uri"`
		CID ids.CID `json:"cid"`
	} `json:"record,omitempty"`

	RecordWithMedia *struct {
		Record Embed `json:"record"`
		Media  Embed `json:"media"`
	} `json:"record_with_media,omitempty"`
}

// Metrics carries engagement counters for a post at index time.
type Metrics struct {
	LikeCount   int `json:"like_count"`
	RepostCount int `json:"repost_count"`
	ReplyCount  int `json:"reply_count"`
	QuoteCount  int `json:"quote_count"`
}

// Feed carries repost/reason metadata when a post appears via a feed fan-out.
type Feed struct {
	Reason string `json:"reason"`
}

// Post is the canonical, immutable-once-emitted post record.
type Post struct {
	URI        ids.URI   `json:"uri"`
	CID        ids.CID   `json:"cid"`
	Author     ids.Handle `json:"author"`
	AuthorDID  ids.DID   `json:"author_did"`
	CreatedAt  time.Time `json:"created_at"`
	Text       string    `json:"text"`
	Hashtags   []string  `json:"hashtags"`
	Mentions   []string  `json:"mentions,omitempty"`
	Links      []string  `json:"links,omitempty"`
	Langs      []string  `json:"langs,omitempty"`
	Reply      *Reply    `json:"reply,omitempty"`
	Embed      *Embed    `json:"embed,omitempty"`
	Metrics    *Metrics  `json:"metrics,omitempty"`
	Feed       *Feed     `json:"feed,omitempty"`
}

// Normalize enforces the invariants spec.md §3 requires of a canonical post:
// deduplicated, lowercased hashtags and lowercased languages in original order.
func (p *Post) Normalize() {
	p.Hashtags = ids.DedupeHashtags(p.Hashtags)
	for i, l := range p.Langs {
		p.Langs[i] = normalizeLang(l)
	}
}

func normalizeLang(l string) string {
	out := make([]byte, len(l))
	for i := 0; i < len(l); i++ {
		c := l[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// IsReply reports whether the post is a reply (has a Reply).
func (p *Post) IsReply() bool { return p.Reply != nil }

// IsQuote reports whether the post embeds another record (quote post),
// including record-with-media embeds.
func (p *Post) IsQuote() bool {
	return p.Embed != nil && (p.Embed.Kind == EmbedRecord || p.Embed.Kind == EmbedRecordWithMedia)
}

// IsRepost reports whether the post carries feed-level repost metadata.
func (p *Post) IsRepost() bool { return p.Feed != nil }

// IsOriginal reports whether the post is neither a reply, quote, nor repost.
func (p *Post) IsOriginal() bool { return !p.IsReply() && !p.IsQuote() && !p.IsRepost() }

// HasLinks reports whether the post has any external links.
func (p *Post) HasLinks() bool { return len(p.Links) > 0 }

// HasEmbed reports whether the post carries any embed.
func (p *Post) HasEmbed() bool { return p.Embed != nil }

// HasMedia reports whether the embed carries image or video media.
func (p *Post) HasMedia() bool {
	if p.Embed == nil {
		return false
	}
	switch p.Embed.Kind {
	case EmbedImages, EmbedVideo:
		return true
	case EmbedRecordWithMedia:
		return p.Embed.RecordWithMedia != nil &&
			(p.Embed.RecordWithMedia.Media.Kind == EmbedImages || p.Embed.RecordWithMedia.Media.Kind == EmbedVideo)
	default:
		return false
	}
}

// HasImages reports whether the embed (or its media half) carries images.
func (p *Post) HasImages() bool { return p.ImageCount() > 0 }

// HasVideo reports whether the embed (or its media half) carries a video.
func (p *Post) HasVideo() bool {
	if p.Embed == nil {
		return false
	}
	if p.Embed.Kind == EmbedVideo {
		return true
	}
	if p.Embed.Kind == EmbedRecordWithMedia && p.Embed.RecordWithMedia != nil {
		return p.Embed.RecordWithMedia.Media.Kind == EmbedVideo
	}
	return false
}

// ImageCount returns the number of images in the post's embed, across the
// plain Images variant and the media half of RecordWithMedia.
func (p *Post) ImageCount() int {
	if p.Embed == nil {
		return 0
	}
	switch p.Embed.Kind {
	case EmbedImages:
		return len(p.Embed.Images)
	case EmbedRecordWithMedia:
		if p.Embed.RecordWithMedia != nil && p.Embed.RecordWithMedia.Media.Kind == EmbedImages {
			return len(p.Embed.RecordWithMedia.Media.Images)
		}
	}
	return 0
}

// AltText concatenates the alt text of every image in the post, space
// separated, in item order.
func (p *Post) AltText() string {
	if p.Embed == nil {
		return ""
	}
	var imgs []ImageItem
	switch p.Embed.Kind {
	case EmbedImages:
		imgs = p.Embed.Images
	case EmbedRecordWithMedia:
		if p.Embed.RecordWithMedia != nil && p.Embed.RecordWithMedia.Media.Kind == EmbedImages {
			imgs = p.Embed.RecordWithMedia.Media.Images
		}
	}
	if len(imgs) == 0 {
		return ""
	}
	out := imgs[0].Alt
	for _, im := range imgs[1:] {
		out += " " + im.Alt
	}
	return out
}

// HasAltText reports whether every image in the post has non-empty alt text.
func (p *Post) HasAltText() bool {
	if p.ImageCount() == 0 {
		return false
	}
	imgs := p.Embed.Images
	if p.Embed.Kind == EmbedRecordWithMedia {
		imgs = p.Embed.RecordWithMedia.Media.Images
	}
	for _, im := range imgs {
		if im.Alt == "" {
			return false
		}
	}
	return true
}

// Engagement computes the weighted engagement score used for
// sort_by=engagement: likes + 2*reposts + 3*replies + 2*quotes.
func (p *Post) Engagement() int {
	if p.Metrics == nil {
		return 0
	}
	return p.Metrics.LikeCount + 2*p.Metrics.RepostCount + 3*p.Metrics.ReplyCount + 2*p.Metrics.QuoteCount
}

// ReplyRootURI returns the thread root URI, or the post's own URI if it is
// not a reply (a post is its own thread root).
func (p *Post) ReplyRootURI() ids.URI {
	if p.Reply != nil {
		return p.Reply.RootURI
	}
	return p.URI
}

// PrimaryLang returns the first language tag, or "" if none.
func (p *Post) PrimaryLang() string {
	if len(p.Langs) == 0 {
		return ""
	}
	return p.Langs[0]
}
