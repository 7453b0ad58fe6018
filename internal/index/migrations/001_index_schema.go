// Package migrations holds one function per schema change to the index
// database, run in order by index.Bootstrap. Each function is idempotent
// (every statement is a CREATE ... IF NOT EXISTS), mirroring the
// teacher's internal/storage/sqlite/migrations package.
package migrations

import "database/sql"

// MigrateIndexSchema creates the posts table and its join tables.
func MigrateIndexSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			uri             TEXT PRIMARY KEY,
			created_at      TEXT NOT NULL,
			created_date    TEXT NOT NULL,
			author          TEXT NOT NULL,
			text            TEXT NOT NULL,
			lang            TEXT NOT NULL DEFAULT '',
			is_reply        INTEGER NOT NULL DEFAULT 0,
			is_quote        INTEGER NOT NULL DEFAULT 0,
			is_repost       INTEGER NOT NULL DEFAULT 0,
			is_original     INTEGER NOT NULL DEFAULT 0,
			has_links       INTEGER NOT NULL DEFAULT 0,
			has_media       INTEGER NOT NULL DEFAULT 0,
			has_embed       INTEGER NOT NULL DEFAULT 0,
			has_images      INTEGER NOT NULL DEFAULT 0,
			image_count     INTEGER NOT NULL DEFAULT 0,
			alt_text        TEXT NOT NULL DEFAULT '',
			has_alt_text    INTEGER NOT NULL DEFAULT 0,
			has_video       INTEGER NOT NULL DEFAULT 0,
			like_count      INTEGER NOT NULL DEFAULT 0,
			repost_count    INTEGER NOT NULL DEFAULT 0,
			reply_count     INTEGER NOT NULL DEFAULT 0,
			quote_count     INTEGER NOT NULL DEFAULT 0,
			reply_root_uri  TEXT,
			post_json       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS post_hashtag (
			uri TEXT NOT NULL REFERENCES posts(uri) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (uri, tag)
		);
		CREATE INDEX IF NOT EXISTS idx_post_hashtag_tag ON post_hashtag(tag);

		CREATE TABLE IF NOT EXISTS post_lang (
			uri  TEXT NOT NULL REFERENCES posts(uri) ON DELETE CASCADE,
			lang TEXT NOT NULL,
			PRIMARY KEY (uri, lang)
		);
		CREATE INDEX IF NOT EXISTS idx_post_lang_lang ON post_lang(lang);

		CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_reply_root_uri ON posts(reply_root_uri);
		CREATE INDEX IF NOT EXISTS idx_posts_like_count ON posts(like_count, created_at, uri);
		CREATE INDEX IF NOT EXISTS idx_posts_repost_count ON posts(repost_count, created_at, uri);
		CREATE INDEX IF NOT EXISTS idx_posts_reply_count ON posts(reply_count, created_at, uri);
		CREATE INDEX IF NOT EXISTS idx_posts_quote_count ON posts(quote_count, created_at, uri);
	`)
	return err
}
