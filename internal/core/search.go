package core

import (
	"context"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// QueryStore runs a filtered, paginated query against name's index,
// opening the store read-only since queries never write (spec.md §4.7).
func QueryStore(ctx context.Context, root, name string, q index.QuerySpec) (index.Page, error) {
	if err := requireStoreExists(root, name); err != nil {
		return index.Page{}, err
	}
	h, err := store.OpenReadOnly(ctx, name, store.DBPath(root, name))
	if err != nil {
		return index.Page{}, engineerr.New(engineerr.KindStoreIO, "failed to open store", err)
	}
	defer func() { _ = h.Close() }()

	page, err := index.Query(ctx, h.DB, q)
	if err != nil {
		return index.Page{}, engineerr.New(engineerr.KindStoreIndex, "query failed", err)
	}
	return page, nil
}

// SearchStore runs a full-text search over name's posts_fts table.
func SearchStore(ctx context.Context, root, name string, q index.SearchQuery) (index.SearchPage, error) {
	if err := requireStoreExists(root, name); err != nil {
		return index.SearchPage{}, err
	}
	h, err := store.OpenReadOnly(ctx, name, store.DBPath(root, name))
	if err != nil {
		return index.SearchPage{}, engineerr.New(engineerr.KindStoreIO, "failed to open store", err)
	}
	defer func() { _ = h.Close() }()

	page, err := index.Search(ctx, h.DB, q)
	if err != nil {
		return index.SearchPage{}, engineerr.New(engineerr.KindStoreIndex, "search failed", err)
	}
	return page, nil
}

// ThreadRun returns every post in uri's thread, ordered oldest first.
func ThreadRun(ctx context.Context, root, name, uri string) ([]*types.Post, error) {
	if err := requireStoreExists(root, name); err != nil {
		return nil, err
	}
	h, err := store.OpenReadOnly(ctx, name, store.DBPath(root, name))
	if err != nil {
		return nil, engineerr.New(engineerr.KindStoreIO, "failed to open store", err)
	}
	defer func() { _ = h.Close() }()

	posts, err := index.ThreadPosts(ctx, h.DB, uri)
	if err != nil {
		return nil, engineerr.New(engineerr.KindStoreIndex, "thread lookup failed", err)
	}
	return posts, nil
}

// ThreadGroupsRun summarizes every thread matching filter.
func ThreadGroupsRun(ctx context.Context, root, name string, filter filterast.Expr) ([]index.ThreadGroup, error) {
	if err := requireStoreExists(root, name); err != nil {
		return nil, err
	}
	h, err := store.OpenReadOnly(ctx, name, store.DBPath(root, name))
	if err != nil {
		return nil, engineerr.New(engineerr.KindStoreIO, "failed to open store", err)
	}
	defer func() { _ = h.Close() }()

	groups, err := index.ThreadGroups(ctx, h.DB, filter)
	if err != nil {
		return nil, engineerr.New(engineerr.KindStoreIndex, "thread grouping failed", err)
	}
	return groups, nil
}
