package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"coffeehouse-service/internal/blobstore"
	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournalFixture() (*JournalService, *docstore.MemoryStore, *blobstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	blobs := blobstore.NewMemoryStore()
	return NewJournalService(store, blobs), store, blobs
}

func TestJournalAdd(t *testing.T) {
	svc, _, _ := newJournalFixture()
	ctx := context.Background()

	entry, err := svc.Add(ctx, "user-1", "First cup", "A bright Ethiopian pour-over", "cup.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.NotEmpty(t, entry.StoreID)
	assert.NotEmpty(t, entry.ImageURI)
	assert.Equal(t, "First cup", entry.Title)

	var photo bytes.Buffer
	require.NoError(t, svc.Photo(ctx, "user-1", entry.StoreID, &photo))
	assert.Equal(t, "jpeg-bytes", photo.String())
}

func TestJournalAddRequiresAllFields(t *testing.T) {
	svc, store, _ := newJournalFixture()
	ctx := context.Background()

	cases := []struct {
		name    string
		title   string
		content string
	}{
		{"missing title", "", "some content"},
		{"missing content", "a title", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Add(ctx, "user-1", tc.title, tc.content, "cup.jpg", strings.NewReader("jpeg-bytes"))
			assert.ErrorIs(t, err, ErrMissingJournalFields)
		})
	}

	_, err := svc.Add(ctx, "user-1", "a title", "some content", "", nil)
	assert.ErrorIs(t, err, ErrMissingJournalFields)

	docs, err := store.List(ctx, models.CollectionJournals)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestJournalListNewestFirst(t *testing.T) {
	svc, _, _ := newJournalFixture()
	ctx := context.Background()

	ts := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return ts }
	_, err := svc.Add(ctx, "user-1", "Morning", "first entry", "a.jpg", strings.NewReader("a"))
	require.NoError(t, err)

	svc.now = func() time.Time { return ts.Add(6 * time.Hour) }
	_, err = svc.Add(ctx, "user-1", "Afternoon", "second entry", "b.jpg", strings.NewReader("b"))
	require.NoError(t, err)

	entries, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Afternoon", entries[0].Title)
	assert.Equal(t, "Morning", entries[1].Title)
}

func TestJournalDeleteRemovesEntryAndPhoto(t *testing.T) {
	svc, _, blobs := newJournalFixture()
	ctx := context.Background()

	entry, err := svc.Add(ctx, "user-1", "First cup", "content", "cup.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-1", entry.StoreID))

	entries, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	var photo bytes.Buffer
	assert.Error(t, blobs.Download(ctx, entry.ImageURI, &photo))
}

func TestJournalOwnership(t *testing.T) {
	svc, _, _ := newJournalFixture()
	ctx := context.Background()

	entry, err := svc.Add(ctx, "user-1", "First cup", "content", "cup.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "user-2", entry.StoreID), docstore.ErrNotFound)

	var photo bytes.Buffer
	assert.ErrorIs(t, svc.Photo(ctx, "user-2", entry.StoreID, &photo), docstore.ErrNotFound)
}
