package service

import (
	"context"
	"fmt"
	"sort"

	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
)

// NotificationService reads the order confirmations written by the worker
type NotificationService struct {
	store docstore.Store
}

// NewNotificationService creates a new notification service
func NewNotificationService(store docstore.Store) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	docs, err := s.store.List(ctx, models.CollectionNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]models.Notification, 0, len(docs))
	for _, doc := range docs {
		var n models.Notification
		if err := doc.Decode(&n); err != nil {
			return nil, fmt.Errorf("failed to decode notification %s: %w", doc.ID, err)
		}
		if n.UserID != userID {
			continue
		}
		n.StoreID = doc.ID
		notifications = append(notifications, n)
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt > notifications[j].CreatedAt
	})
	return notifications, nil
}
