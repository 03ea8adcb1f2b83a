package subscriber

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	created, err := store.Add(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Add(ctx, 1001)
	require.NoError(t, err)
	assert.False(t, created, "second add of the same chat is a no-op")

	require.NoError(t, store.SetSelectedGroup(ctx, 1001, "104"))

	gid, err := store.SelectedGroup(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "104", gid)

	removed, err := store.Remove(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, 1001)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFileStoreListFiltersByGroup(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, chat := range []int64{3, 1, 2} {
		_, err := store.Add(ctx, chat)
		require.NoError(t, err)
	}
	require.NoError(t, store.SetSelectedGroup(ctx, 1, "104"))
	require.NoError(t, store.SetSelectedGroup(ctx, 3, "104"))
	require.NoError(t, store.SetSelectedGroup(ctx, 2, "205"))

	chats, err := store.ListSubscribers(ctx, "104")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, chats)

	chats, err = store.ListSubscribers(ctx, "205")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, chats)
}

func TestFileStoreSurvivesReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = store.Add(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, store.SetSelectedGroup(ctx, 42, "104"))

	reloaded, err := NewFileStore(dir)
	require.NoError(t, err)

	chats, err := reloaded.ListSubscribers(ctx, "104")
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, chats)

	gid, err := reloaded.SelectedGroup(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "104", gid)
}

func TestSubscriberWithoutGroupNeverListed(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Add(ctx, 7)
	require.NoError(t, err)

	chats, err := store.ListSubscribers(ctx, "104")
	require.NoError(t, err)
	assert.Empty(t, chats)

	gid, err := store.SelectedGroup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "", gid)
}
