package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/pushdown"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// SortBy selects the ordering column for a query.
type SortBy string

const (
	SortCreatedAt   SortBy = "created_at"
	SortLikeCount   SortBy = "like_count"
	SortRepostCount SortBy = "repost_count"
	SortReplyCount  SortBy = "reply_count"
	SortQuoteCount  SortBy = "quote_count"
	SortEngagement  SortBy = "engagement"
)

// Order selects ascending or descending.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// PageSize is the default row count per query page.
const PageSize = 500

// Cursor carries the last row's sort-key tuple from a prior page, enabling
// keyset (not OFFSET) pagination (spec.md §4.2.1). Scanned carries the
// cumulative row count fetched across every page so far, so ScanLimit can
// bound total rows scanned across the whole paged query, not just one page.
type Cursor struct {
	LastSortValue any // created_at is TEXT, the engagement columns are INTEGER
	LastCreatedAt string
	LastURI       string
	Scanned       int
}

// QuerySpec describes one call to index.Query.
type QuerySpec struct {
	Filter    filterast.Expr
	Cursor    *Cursor
	SortBy    SortBy
	Order     Order
	// ScanLimit bounds total rows fetched across every page of this paged
	// query (a backpressure ceiling, spec.md §4.2.1), not just this one
	// page; callers thread Cursor.Scanned from page to page to make this
	// cumulative. 0 means unbounded.
	ScanLimit int
	Limit     int // page size; defaults to PageSize
}

// Page is one page of query results plus the cursor for the next page, if
// any.
type Page struct {
	Posts      []*types.Post
	NextCursor *Cursor
}

func sortExpr(sortBy SortBy) string {
	switch sortBy {
	case SortLikeCount:
		return "like_count"
	case SortRepostCount:
		return "repost_count"
	case SortReplyCount:
		return "reply_count"
	case SortQuoteCount:
		return "quote_count"
	case SortEngagement:
		return "(like_count + 2*repost_count + 3*reply_count + 2*quote_count)"
	default:
		return "created_at"
	}
}

// Query runs a filtered, sorted, paginated query against the index,
// applying the pushdown-compiled fragment in SQL. The returned page is an
// over-approximation when the filter contains side-effectful leaves; the
// caller is responsible for narrowing with internal/filterrt before
// presenting results (spec.md §4.2.1, §4.4).
func Query(ctx context.Context, db *sql.DB, q QuerySpec) (Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = PageSize
	}
	sortCol := sortExpr(q.SortBy)
	dir := "DESC"
	cmp := "<"
	if q.Order == OrderAsc {
		dir = "ASC"
		cmp = ">"
	}

	frag := pushdown.Compile(q.Filter)
	where := []string{frag.SQL}
	args := append([]any{}, frag.Args...)

	scannedSoFar := 0
	if q.Cursor != nil {
		scannedSoFar = q.Cursor.Scanned
		where = append(where, fmt.Sprintf(
			"(%s, created_at, uri) %s (?, ?, ?)", sortCol, cmp))
		args = append(args, q.Cursor.LastSortValue, q.Cursor.LastCreatedAt, q.Cursor.LastURI)
	}

	fetchLimit := limit + 1
	if q.ScanLimit > 0 {
		remaining := q.ScanLimit - scannedSoFar
		if remaining <= 0 {
			// Backpressure ceiling already spent across prior pages.
			return Page{}, nil
		}
		if fetchLimit > remaining {
			fetchLimit = remaining
		}
	}

	sqlStr := fmt.Sprintf(`
		SELECT p.uri, p.post_json, %s AS sort_value, p.created_at
		FROM posts p
		WHERE %s
		ORDER BY %s %s, p.created_at %s, p.uri %s
		LIMIT ?
	`, sortCol, strings.Join(where, " AND "), sortCol, dir, dir, dir)
	args = append(args, fetchLimit)

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return Page{}, fmt.Errorf("index: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []*types.Post
	var cursors []Cursor
	for rows.Next() {
		var uri, postJSON, createdAt string
		var sortValue any
		if err := rows.Scan(&uri, &postJSON, &sortValue, &createdAt); err != nil {
			return Page{}, fmt.Errorf("index: scan query row: %w", err)
		}
		var p types.Post
		if err := json.Unmarshal([]byte(postJSON), &p); err != nil {
			return Page{}, fmt.Errorf("index: unmarshal post %s: %w", uri, err)
		}
		posts = append(posts, &p)
		cursors = append(cursors, Cursor{LastSortValue: sortValue, LastCreatedAt: createdAt, LastURI: uri})
		if len(posts) >= fetchLimit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("index: iterate query rows: %w", err)
	}

	scannedTotal := scannedSoFar + len(posts)

	page := Page{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		next := cursors[limit-1]
		next.Scanned = scannedTotal
		page.NextCursor = &next
	}
	return page, nil
}
