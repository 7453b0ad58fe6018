package migrations

import "database/sql"

// MigrateFTS creates the posts_fts full-text virtual table mirroring
// text/alt_text, keyed by posts.rowid, plus triggers that keep it in sync
// with posts (spec.md §4.2: "posts_fts — full-text virtual table mirroring
// text and alt_text, keyed by posts.rowid").
func MigrateFTS(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
			text, alt_text, uri UNINDEXED, content='posts', content_rowid='rowid'
		);

		CREATE TRIGGER IF NOT EXISTS posts_fts_ai AFTER INSERT ON posts BEGIN
			INSERT INTO posts_fts(rowid, text, alt_text, uri) VALUES (new.rowid, new.text, new.alt_text, new.uri);
		END;

		CREATE TRIGGER IF NOT EXISTS posts_fts_ad AFTER DELETE ON posts BEGIN
			INSERT INTO posts_fts(posts_fts, rowid, text, alt_text, uri) VALUES ('delete', old.rowid, old.text, old.alt_text, old.uri);
		END;

		CREATE TRIGGER IF NOT EXISTS posts_fts_au AFTER UPDATE ON posts BEGIN
			INSERT INTO posts_fts(posts_fts, rowid, text, alt_text, uri) VALUES ('delete', old.rowid, old.text, old.alt_text, old.uri);
			INSERT INTO posts_fts(rowid, text, alt_text, uri) VALUES (new.rowid, new.text, new.alt_text, new.uri);
		END;
	`)
	return err
}
