package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"coffeehouse-service/internal/blobstore"
	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/util"

	"go.uber.org/zap"
)

// ErrMissingJournalFields rejects an entry without title, content or photo
var ErrMissingJournalFields = errors.New("title, content and photo are all required")

// JournalService manages the photo journal: entry documents in the
// document store, photo bytes in the blob store.
type JournalService struct {
	store  docstore.Store
	blobs  blobstore.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewJournalService creates a new journal service
func NewJournalService(store docstore.Store, blobs blobstore.Store) *JournalService {
	return &JournalService{
		store:  store,
		blobs:  blobs,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Add uploads the photo and creates the journal entry referencing it
func (s *JournalService) Add(ctx context.Context, userID, title, content, imageName string, image io.Reader) (*models.JournalEntry, error) {
	ctx, span := util.StartSpan(ctx, "JournalService.Add")
	defer span.End()

	if title == "" || content == "" || image == nil {
		return nil, ErrMissingJournalFields
	}

	ref, err := s.blobs.Upload(ctx, imageName, image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload journal photo: %w", err)
	}
	util.JournalUploadsTotal.Inc()

	entry := models.JournalEntry{
		UserID:   userID,
		Title:    title,
		Content:  content,
		Date:     models.Timestamp(s.now()),
		ImageURI: ref,
	}

	id, err := s.store.Create(ctx, models.CollectionJournals, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to save journal entry: %w", err)
	}
	entry.StoreID = id

	s.logger.Info("Journal entry added",
		zap.String("user_id", userID),
		zap.String("entry_id", id))
	return &entry, nil
}

// List returns the user's journal entries, newest first
func (s *JournalService) List(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	docs, err := s.store.List(ctx, models.CollectionJournals)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	entries := make([]models.JournalEntry, 0, len(docs))
	for _, doc := range docs {
		var entry models.JournalEntry
		if err := doc.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry %s: %w", doc.ID, err)
		}
		if entry.UserID != userID {
			continue
		}
		entry.StoreID = doc.ID
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
	return entries, nil
}

// Delete removes an entry and, best effort, its photo
func (s *JournalService) Delete(ctx context.Context, userID, id string) error {
	var entry models.JournalEntry
	if err := s.store.Get(ctx, models.CollectionJournals, id, &entry); err != nil {
		return err
	}
	if entry.UserID != userID {
		return docstore.ErrNotFound
	}

	if err := s.store.Delete(ctx, models.CollectionJournals, id); err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}

	if entry.ImageURI != "" {
		if err := s.blobs.Delete(ctx, entry.ImageURI); err != nil {
			s.logger.Warn("Failed to delete journal photo",
				zap.String("entry_id", id),
				zap.String("ref", entry.ImageURI),
				zap.Error(err))
		}
	}
	return nil
}

// Photo streams the photo of one of the user's entries
func (s *JournalService) Photo(ctx context.Context, userID, id string, w io.Writer) error {
	var entry models.JournalEntry
	if err := s.store.Get(ctx, models.CollectionJournals, id, &entry); err != nil {
		return err
	}
	if entry.UserID != userID {
		return docstore.ErrNotFound
	}
	return s.blobs.Download(ctx, entry.ImageURI, w)
}
