package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `bson:"name"`
	Count int    `bson:"count"`
}

func TestMemoryStoreCRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Create(ctx, "things", testDoc{Name: "alpha", Count: 1})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var got testDoc
	err = store.Get(ctx, "things", id, &got)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)
	assert.Equal(t, 1, got.Count)

	err = store.Update(ctx, "things", id, testDoc{Name: "alpha", Count: 2})
	require.NoError(t, err)

	err = store.Get(ctx, "things", id, &got)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	err = store.Delete(ctx, "things", id)
	require.NoError(t, err)

	err = store.Get(ctx, "things", id, &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var got testDoc
	assert.ErrorIs(t, store.Get(ctx, "things", "missing", &got), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "things", "missing"), ErrNotFound)
}

func TestMemoryStoreListPreservesInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id1, err := store.Create(ctx, "things", testDoc{Name: "first"})
	require.NoError(t, err)
	id2, err := store.Create(ctx, "things", testDoc{Name: "second"})
	require.NoError(t, err)

	docs, err := store.List(ctx, "things")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, id1, docs[0].ID)
	assert.Equal(t, id2, docs[1].ID)

	var got testDoc
	require.NoError(t, docs[1].Decode(&got))
	assert.Equal(t, "second", got.Name)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "things", testDoc{Name: "seed"})
	require.NoError(t, err)

	snapshots, cancel, err := store.Subscribe(ctx, "things")
	require.NoError(t, err)
	defer cancel()

	// initial snapshot carries the current contents
	snap := waitForSnapshot(t, snapshots)
	assert.Equal(t, "things", snap.Collection)
	assert.Len(t, snap.Documents, 1)

	_, err = store.Create(ctx, "things", testDoc{Name: "added"})
	require.NoError(t, err)

	snap = waitForSnapshot(t, snapshots)
	assert.Len(t, snap.Documents, 2)
}

func TestMemoryStoreSubscribeCancelClosesChannel(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snapshots, cancel, err := store.Subscribe(ctx, "things")
	require.NoError(t, err)

	cancel()

	// drain whatever was buffered, then the channel must close
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-snapshots:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func waitForSnapshot(t *testing.T, snapshots <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-snapshots:
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}
