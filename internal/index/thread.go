package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/pushdown"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// ThreadPosts returns every post sharing a reply_root_uri with the root of
// uri (or the root itself), ordered by created_at ascending (spec.md
// §4.2.3).
func ThreadPosts(ctx context.Context, db *sql.DB, uri string) ([]*types.Post, error) {
	root, err := resolveRoot(ctx, db, uri)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT uri, post_json FROM posts
		WHERE COALESCE(reply_root_uri, uri) = ?
		ORDER BY created_at ASC, uri ASC
	`, root)
	if err != nil {
		return nil, fmt.Errorf("index: thread posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []*types.Post
	for rows.Next() {
		var u, postJSON string
		if err := rows.Scan(&u, &postJSON); err != nil {
			return nil, fmt.Errorf("index: scan thread row: %w", err)
		}
		var p types.Post
		if err := json.Unmarshal([]byte(postJSON), &p); err != nil {
			return nil, fmt.Errorf("index: unmarshal post %s: %w", u, err)
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

func resolveRoot(ctx context.Context, db *sql.DB, uri string) (string, error) {
	var replyRoot sql.NullString
	err := db.QueryRowContext(ctx, `SELECT reply_root_uri FROM posts WHERE uri = ?`, uri).Scan(&replyRoot)
	if err == sql.ErrNoRows {
		return uri, nil
	}
	if err != nil {
		return "", fmt.Errorf("index: resolve thread root for %s: %w", uri, err)
	}
	if replyRoot.Valid && replyRoot.String != "" {
		return replyRoot.String, nil
	}
	return uri, nil
}

// ThreadGroup summarizes one thread matching a query's filter.
type ThreadGroup struct {
	RootURI        string `json:"root_uri"`
	Count          int    `json:"count"`
	FirstCreatedAt string `json:"first_created_at"`
}

// ThreadGroups groups posts matching filter by COALESCE(reply_root_uri, uri)
// and returns one summary row per thread (spec.md §4.2.3).
func ThreadGroups(ctx context.Context, db *sql.DB, filter filterast.Expr) ([]ThreadGroup, error) {
	frag := pushdown.Compile(filter)
	sqlStr := fmt.Sprintf(`
		SELECT COALESCE(reply_root_uri, uri) AS root_uri, COUNT(*), MIN(created_at)
		FROM posts p
		WHERE %s
		GROUP BY root_uri
		ORDER BY MIN(created_at) ASC
	`, frag.SQL)

	rows, err := db.QueryContext(ctx, sqlStr, frag.Args...)
	if err != nil {
		return nil, fmt.Errorf("index: thread groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []ThreadGroup
	for rows.Next() {
		var g ThreadGroup
		if err := rows.Scan(&g.RootURI, &g.Count, &g.FirstCreatedAt); err != nil {
			return nil, fmt.Errorf("index: scan thread group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
