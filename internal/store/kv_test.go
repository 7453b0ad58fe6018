package store_test

import (
	"path/filepath"
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVGetMissing(t *testing.T) {
	kv := store.NewKV(t.TempDir())

	var out types.SyncCheckpoint
	ok, err := kv.Get("nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVPutGetRoundTrip(t *testing.T) {
	kv := store.NewKV(t.TempDir())

	in := types.SyncCheckpoint{Source: "feed:at://did/app.bsky.feed.generator/x", Cursor: "abc123"}
	require.NoError(t, kv.Put("sync:"+in.Source, in))

	var out types.SyncCheckpoint
	ok, err := kv.Get("sync:"+in.Source, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestKVPutOverwrites(t *testing.T) {
	kv := store.NewKV(t.TempDir())

	require.NoError(t, kv.Put("k", types.SyncCheckpoint{Cursor: "first"}))
	require.NoError(t, kv.Put("k", types.SyncCheckpoint{Cursor: "second"}))

	var out types.SyncCheckpoint
	ok, err := kv.Get("k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", out.Cursor)
}

func TestKVDelete(t *testing.T) {
	kv := store.NewKV(t.TempDir())

	require.NoError(t, kv.Put("k", types.SyncCheckpoint{Cursor: "x"}))
	require.NoError(t, kv.Delete("k"))

	var out types.SyncCheckpoint
	ok, err := kv.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an already-absent key is not an error.
	assert.NoError(t, kv.Delete("k"))
}

func TestKVKeyEscaping(t *testing.T) {
	dir := t.TempDir()
	kv := store.NewKV(dir)

	// Keys containing ':' and '/' (source keys look like
	// "feed:at://did/app.bsky.feed.generator/x") must not be interpreted as
	// nested paths.
	key := "feed:at://did:plc:abc/app.bsky.feed.generator/x"
	require.NoError(t, kv.Put(key, types.SyncCheckpoint{Cursor: "v"}))

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var out types.SyncCheckpoint
	ok, err := kv.Get(key, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", out.Cursor)
}
