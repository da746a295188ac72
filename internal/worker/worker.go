package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"coffeehouse-service/internal/broker"
	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/util"

	"go.uber.org/zap"
)

// ProcessedMarker deduplicates event handling. Satisfied by
// redisclient.Client.
type ProcessedMarker interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) error
}

// NotificationWorker consumes OrderPlaced events and writes per-user order
// confirmation documents
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        docstore.Store
	marker       ProcessedMarker
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, store docstore.Store, marker ProcessedMarker) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    store,
		marker:   marker,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

// HandleOrderPlaced writes the order confirmation notification, once per
// event id
func (w *NotificationWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.marker.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	notification := models.Notification{
		UserID:    event.UserID,
		OrderID:   event.OrderID,
		Message:   fmt.Sprintf("Your order of %d item(s) for $%s is confirmed", len(event.Items), event.Amount),
		CreatedAt: models.Timestamp(time.Now()),
	}

	if _, err := w.store.Create(ctx, models.CollectionNotifications, notification); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	util.NotificationsWrittenTotal.Inc()

	if err := w.marker.MarkEventProcessed(ctx, event.EventID, 7*24*time.Hour); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Order notification written",
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID))
	return nil
}
