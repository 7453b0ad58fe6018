package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// Apply dispatches a single event record against the index inside the
// caller's transaction (conn). PostUpsert computes derived columns and
// upserts; hashtag/language join rows are fully replaced. PostDelete
// removes the primary row; ON DELETE CASCADE clears the joins (spec.md
// §4.2 "apply(record)").
func Apply(ctx context.Context, conn execer, rec types.EventRecord) error {
	switch rec.Event.Tag {
	case types.EventTagPostUpsert:
		return applyUpsert(ctx, conn, rec.Event.Post)
	case types.EventTagPostDelete:
		return applyDelete(ctx, conn, string(rec.Event.URI))
	default:
		return fmt.Errorf("index: unknown event tag %q", rec.Event.Tag)
	}
}

// execer is the subset of *sql.Conn / *sql.Tx this package needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func applyUpsert(ctx context.Context, conn execer, p *types.Post) error {
	if p == nil {
		return fmt.Errorf("index: PostUpsert event missing post")
	}
	p.Normalize()

	postJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("index: marshal post %s: %w", p.URI, err)
	}

	var replyRoot sql.NullString
	if p.IsReply() {
		replyRoot = sql.NullString{String: string(p.ReplyRootURI()), Valid: true}
	}

	metrics := p.Metrics
	if metrics == nil {
		metrics = &types.Metrics{}
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO posts (
			uri, created_at, created_date, author, text, lang,
			is_reply, is_quote, is_repost, is_original,
			has_links, has_media, has_embed, has_images, image_count,
			alt_text, has_alt_text, has_video,
			like_count, repost_count, reply_count, quote_count,
			reply_root_uri, post_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uri) DO UPDATE SET
			created_at = excluded.created_at,
			created_date = excluded.created_date,
			author = excluded.author,
			text = excluded.text,
			lang = excluded.lang,
			is_reply = excluded.is_reply,
			is_quote = excluded.is_quote,
			is_repost = excluded.is_repost,
			is_original = excluded.is_original,
			has_links = excluded.has_links,
			has_media = excluded.has_media,
			has_embed = excluded.has_embed,
			has_images = excluded.has_images,
			image_count = excluded.image_count,
			alt_text = excluded.alt_text,
			has_alt_text = excluded.has_alt_text,
			has_video = excluded.has_video,
			like_count = excluded.like_count,
			repost_count = excluded.repost_count,
			reply_count = excluded.reply_count,
			quote_count = excluded.quote_count,
			reply_root_uri = excluded.reply_root_uri,
			post_json = excluded.post_json
	`,
		string(p.URI), p.CreatedAt.Format(time.RFC3339Nano), p.CreatedAt.Format("2006-01-02"),
		string(p.Author), p.Text, p.PrimaryLang(),
		boolInt(p.IsReply()), boolInt(p.IsQuote()), boolInt(p.IsRepost()), boolInt(p.IsOriginal()),
		boolInt(p.HasLinks()), boolInt(p.HasMedia()), boolInt(p.HasEmbed()), boolInt(p.HasImages()), p.ImageCount(),
		p.AltText(), boolInt(p.HasAltText()), boolInt(p.HasVideo()),
		metrics.LikeCount, metrics.RepostCount, metrics.ReplyCount, metrics.QuoteCount,
		replyRoot, string(postJSON),
	)
	if err != nil {
		return fmt.Errorf("index: upsert post %s: %w", p.URI, err)
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM post_hashtag WHERE uri = ?`, string(p.URI)); err != nil {
		return fmt.Errorf("index: clear hashtags for %s: %w", p.URI, err)
	}
	for _, tag := range p.Hashtags {
		if _, err := conn.ExecContext(ctx, `INSERT INTO post_hashtag (uri, tag) VALUES (?, ?)`, string(p.URI), tag); err != nil {
			return fmt.Errorf("index: insert hashtag %s for %s: %w", tag, p.URI, err)
		}
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM post_lang WHERE uri = ?`, string(p.URI)); err != nil {
		return fmt.Errorf("index: clear langs for %s: %w", p.URI, err)
	}
	for _, lang := range p.Langs {
		if _, err := conn.ExecContext(ctx, `INSERT INTO post_lang (uri, lang) VALUES (?, ?)`, string(p.URI), lang); err != nil {
			return fmt.Errorf("index: insert lang %s for %s: %w", lang, p.URI, err)
		}
	}
	return nil
}

func applyDelete(ctx context.Context, conn execer, uri string) error {
	_, err := conn.ExecContext(ctx, `DELETE FROM posts WHERE uri = ?`, uri)
	if err != nil {
		return fmt.Errorf("index: delete post %s: %w", uri, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
