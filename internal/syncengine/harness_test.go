package syncengine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/committer"
	"github.com/mepuka/bsky-cli-sub001/internal/filterrt"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/syncengine"
	"github.com/stretchr/testify/require"
)

// newTestDeps opens a fresh SQLite-backed store in a temp directory, bootstraps
// the index, and wires the committer and checkpoint KV store. Tests that need
// collaborator-driven filter leaves pass their own filterrt.Collaborators.
func newTestDeps(t *testing.T, collab filterrt.Collaborators) syncengine.Deps {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	h, err := store.Open(ctx, "test", filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	require.NoError(t, index.Bootstrap(ctx, h.DB))

	return syncengine.Deps{
		DB:          h.DB,
		Checkpoints: store.NewCheckpoints(filepath.Join(dir, "kv")),
		Committer:   committer.New(h.DB),
		Runtime:     filterrt.New(collab),
	}
}
