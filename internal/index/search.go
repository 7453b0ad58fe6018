package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// SearchSort selects how search_posts orders results.
type SearchSort string

const (
	SearchRelevance SearchSort = "relevance"
	SearchNewest    SearchSort = "newest"
	SearchOldest    SearchSort = "oldest"
)

// SearchQuery describes one call to Search.
type SearchQuery struct {
	Query  string
	Limit  int
	Cursor int // numeric row offset
	Sort   SearchSort
}

// SearchPage is one page of full-text search results.
type SearchPage struct {
	Posts      []*types.Post
	NextCursor *int
}

// ftsOperators matches the FTS5 operator set the spec calls out verbatim:
// AND|OR|NOT|NEAR|"|*|(|)|:|^.
var ftsOperators = regexp.MustCompile(`(?i)\b(AND|OR|NOT|NEAR)\b|["*()^:]`)

// Search runs a full-text search over posts_fts. If query contains FTS5
// operator syntax it is used verbatim; otherwise tokens are whitespace-split
// and joined as a conjunction of quoted literals for robustness against
// punctuation. A raw query that fails to parse as FTS5 syntax is retried in
// literal form (spec.md §4.2.2).
func Search(ctx context.Context, db *sql.DB, q SearchQuery) (SearchPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}

	match := q.Query
	if !ftsOperators.MatchString(q.Query) {
		match = literalize(q.Query)
	}

	page, err := runSearch(ctx, db, match, q, limit)
	if err != nil && isFTSSyntaxError(err) {
		page, err = runSearch(ctx, db, literalize(q.Query), q, limit)
	}
	return page, err
}

func runSearch(ctx context.Context, db *sql.DB, match string, q SearchQuery, limit int) (SearchPage, error) {
	orderBy := "rank"
	if q.Sort == SearchNewest {
		orderBy = "p.created_at DESC"
	} else if q.Sort == SearchOldest {
		orderBy = "p.created_at ASC"
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.uri, p.post_json
		FROM posts_fts f
		JOIN posts p ON p.uri = f.uri
		WHERE posts_fts MATCH ?
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, orderBy), match, limit+1, q.Cursor)
	if err != nil {
		return SearchPage{}, fmt.Errorf("index: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []*types.Post
	for rows.Next() {
		var uri, postJSON string
		if err := rows.Scan(&uri, &postJSON); err != nil {
			return SearchPage{}, fmt.Errorf("index: scan search row: %w", err)
		}
		var p types.Post
		if err := json.Unmarshal([]byte(postJSON), &p); err != nil {
			return SearchPage{}, fmt.Errorf("index: unmarshal post %s: %w", uri, err)
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return SearchPage{}, fmt.Errorf("index: iterate search rows: %w", err)
	}

	page := SearchPage{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		next := q.Cursor + limit
		page.NextCursor = &next
	}
	return page, nil
}

func literalize(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return `""`
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func isFTSSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5") || strings.Contains(msg, "syntax error")
}
