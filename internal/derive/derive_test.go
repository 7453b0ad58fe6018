package derive_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/derive"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, name string) *store.Handle {
	t.Helper()
	dir := t.TempDir()
	h, err := store.Open(context.Background(), name, filepath.Join(dir, name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, index.Bootstrap(context.Background(), h.DB))
	return h
}

func seedPost(t *testing.T, c *committer.Committer, uri, text string) {
	t.Helper()
	p := &types.Post{
		URI:       ids.URI(uri),
		Author:    "alice.bsky",
		Text:      text,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	p.Normalize()
	_, err := c.AppendUpsert(context.Background(), types.NewPostUpsert(p, types.EventMeta{Source: "source", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)
}

func newDeps(t *testing.T, sourceDB, targetDB *store.Handle) derive.Deps {
	t.Helper()
	dir := t.TempDir()
	return derive.Deps{
		SourceName:        "source",
		SourceDB:          sourceDB.DB,
		TargetName:        "target",
		TargetDB:          targetDB.DB,
		TargetCommitter:   committer.New(targetDB.DB),
		TargetCheckpoints: store.NewCheckpoints(filepath.Join(dir, "kv")),
		TargetRuntime:     filterrt.New(filterrt.Collaborators{}),
	}
}

// TestDeriveIdempotenceS5 mirrors scenario S5: deriving all three posts
// once processes and matches all three; re-running processes nothing new
// but leaves the target unchanged.
func TestDeriveIdempotenceS5(t *testing.T) {
	source := openTestStore(t, "source")
	target := openTestStore(t, "target")
	sc := committer.New(source.DB)
	seedPost(t, sc, "at://s/1", "p1")
	seedPost(t, sc, "at://s/2", "p2")
	seedPost(t, sc, "at://s/3", "p3")

	deps := newDeps(t, source, target)

	res1, err := derive.Derive(context.Background(), deps, filterast.All(), derive.Options{Mode: types.ModeEventTime})
	require.NoError(t, err)
	assert.Equal(t, 3, res1.Processed)
	assert.Equal(t, 3, res1.Matched)

	res2, err := derive.Derive(context.Background(), deps, filterast.All(), derive.Options{Mode: types.ModeEventTime})
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Processed)
	assert.Equal(t, 0, res2.Matched)

	page, err := index.Query(context.Background(), target.DB, index.QuerySpec{Filter: filterast.All()})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)
}

// TestDeriveDeletePropagationS6 mirrors scenario S6: an upsert followed by
// a delete for the same post, filtered to match nobody, yields
// {processed:2, matched:0, deletesPropagated:1} and leaves no target row.
func TestDeriveDeletePropagationS6(t *testing.T) {
	source := openTestStore(t, "source")
	target := openTestStore(t, "target")
	sc := committer.New(source.DB)
	seedPost(t, sc, "at://s/1", "p1")
	_, err := sc.AppendDelete(context.Background(), types.NewPostDelete(ids.URI("at://s/1"), ids.CID(""), types.EventMeta{Source: "source", CreatedAt: time.Now().UTC()}))
	require.NoError(t, err)

	deps := newDeps(t, source, target)
	res, err := derive.Derive(context.Background(), deps, filterast.Expr{Tag: filterast.TagAuthor, Author: "nobody"}, derive.Options{Mode: types.ModeEventTime})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 0, res.Matched)
	assert.Equal(t, 1, res.DeletesPropagated)

	page, err := index.Query(context.Background(), target.DB, index.QuerySpec{Filter: filterast.All()})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
}

// TestDeriveRejectsSameStore checks the source==target precondition.
func TestDeriveRejectsSameStore(t *testing.T) {
	source := openTestStore(t, "source")
	deps := newDeps(t, source, source)
	deps.TargetName = deps.SourceName

	_, err := derive.Derive(context.Background(), deps, filterast.All(), derive.Options{Mode: types.ModeEventTime})
	assert.Error(t, err)
}

// TestDeriveRejectsImpureFilterInEventTime checks the event_time precondition
// that the filter must be pure.
func TestDeriveRejectsImpureFilterInEventTime(t *testing.T) {
	source := openTestStore(t, "source")
	target := openTestStore(t, "target")
	deps := newDeps(t, source, target)

	_, err := derive.Derive(context.Background(), deps, filterast.Expr{Tag: filterast.TagTrending}, derive.Options{Mode: types.ModeEventTime})
	assert.Error(t, err)
}

// TestDeriveFingerprintMismatchRejected checks that re-deriving with a
// different filter (without reset) is rejected rather than silently
// resuming.
func TestDeriveFingerprintMismatchRejected(t *testing.T) {
	source := openTestStore(t, "source")
	target := openTestStore(t, "target")
	sc := committer.New(source.DB)
	seedPost(t, sc, "at://s/1", "p1")
	deps := newDeps(t, source, target)

	_, err := derive.Derive(context.Background(), deps, filterast.All(), derive.Options{Mode: types.ModeEventTime})
	require.NoError(t, err)

	_, err = derive.Derive(context.Background(), deps, filterast.Expr{Tag: filterast.TagAuthor, Author: "alice.bsky"}, derive.Options{Mode: types.ModeEventTime})
	assert.Error(t, err)
}

// TestDeriveResetClearsTargetAndCheckpoint checks that reset=true ignores
// a mismatched checkpoint and starts fresh.
func TestDeriveResetClearsTargetAndCheckpoint(t *testing.T) {
	source := openTestStore(t, "source")
	target := openTestStore(t, "target")
	sc := committer.New(source.DB)
	seedPost(t, sc, "at://s/1", "p1")
	deps := newDeps(t, source, target)

	_, err := derive.Derive(context.Background(), deps, filterast.All(), derive.Options{Mode: types.ModeEventTime})
	require.NoError(t, err)

	res, err := derive.Derive(context.Background(), deps, filterast.Expr{Tag: filterast.TagAuthor, Author: "alice.bsky"}, derive.Options{Mode: types.ModeEventTime, Reset: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Matched)
}
