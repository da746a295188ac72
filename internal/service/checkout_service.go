package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoPaymentMethod is the validation failure for a missing selection;
	// nothing is written when it is returned.
	ErrNoPaymentMethod = errors.New("no payment method selected")

	// ErrEmptyCart rejects checkout of a cart with no line items
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCheckoutInProgress means another checkout holds this user's lock
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// CheckoutLocker serializes checkouts per user and remembers idempotency
// keys. Satisfied by redisclient.Client.
type CheckoutLocker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
}

// OrderEventPublisher publishes order lifecycle events. Satisfied by
// broker.EventPublisher.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CheckoutService materializes immutable orders from live cart contents
type CheckoutService struct {
	store     docstore.Store
	cart      *CartService
	locker    CheckoutLocker
	publisher OrderEventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store docstore.Store, cart *CartService, locker CheckoutLocker, publisher OrderEventPublisher) *CheckoutService {
	return &CheckoutService{
		store:     store,
		cart:      cart,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// ConfirmPayment snapshots the user's live cart into an immutable order,
// persists it, then clears the cart one line item at a time. The order
// create strictly happens-before cart clearing; clearing is best effort
// with no rollback, so a deletion failure leaves the order in place and a
// partially non-empty cart, which the live cart subscription re-displays
// as is. The order amount is computed from the snapshotted line items at
// this moment, never taken from the client.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, userID string, method *models.PaymentMethod, idempotencyKey string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.ConfirmPayment")
	defer span.End()

	start := s.now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if method == nil {
		util.OrdersFailedTotal.WithLabelValues("no_payment_method").Inc()
		return nil, ErrNoPaymentMethod
	}

	acquired, err := s.locker.AcquireLock(ctx, "checkout:"+userID, 30*time.Second)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable, proceeding unlocked",
			zap.String("user_id", userID),
			zap.Error(err))
	} else if !acquired {
		util.OrdersFailedTotal.WithLabelValues("in_progress").Inc()
		return nil, ErrCheckoutInProgress
	} else {
		defer func() {
			if err := s.locker.ReleaseLock(context.Background(), "checkout:"+userID); err != nil {
				s.logger.Error("Failed to release checkout lock", zap.Error(err))
			}
		}()
	}

	if idempotencyKey != "" {
		existingID, err := s.locker.GetIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		} else if existingID != "" {
			s.logger.Info("Duplicate checkout request",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("order_id", existingID))
			return s.Order(ctx, userID, existingID)
		}
	}

	items, err := s.cart.Items(ctx, userID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("cart_read").Inc()
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	snapshot := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, models.OrderItem{
			CoffeeID:  item.CoffeeID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURI:  item.ImageURI,
		})
	}

	order := models.Order{
		UserID:             userID,
		PaymentMethodID:    method.StoreID,
		PaymentMethodLabel: method.CardNumberMasked,
		Amount:             s.cart.ComputeTotal(items),
		Items:              snapshot,
		Status:             models.OrderStatusCompleted,
		Timestamp:          models.Timestamp(s.now()),
	}

	orderID, err := s.store.Create(ctx, models.CollectionOrders, order)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.StoreID = orderID

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.String("amount", order.Amount.String()))

	if idempotencyKey != "" {
		if err := s.locker.SetIdempotencyKey(ctx, idempotencyKey, orderID, 24*time.Hour); err != nil {
			s.logger.Error("Failed to store idempotency key", zap.Error(err))
		}
	}

	s.publishOrderPlaced(ctx, &order, items)

	// order creation happens-before cart clearing, never the reverse
	for _, item := range items {
		if err := s.store.Delete(ctx, models.CollectionCart, item.StoreID); err != nil {
			util.CartClearFailuresTotal.Inc()
			s.logger.Error("Failed to clear cart line item after checkout",
				zap.String("order_id", orderID),
				zap.String("line_item_id", item.StoreID),
				zap.Error(err))
			return nil, fmt.Errorf("order %s created but cart clear failed: %w", orderID, err)
		}
	}

	return &order, nil
}

// Order reads one order and checks ownership
func (s *CheckoutService) Order(ctx context.Context, userID, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.store.Get(ctx, models.CollectionOrders, orderID, &order); err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, docstore.ErrNotFound
	}
	order.StoreID = orderID
	return &order, nil
}

// Orders returns the user's order history, newest first
func (s *CheckoutService) Orders(ctx context.Context, userID string) ([]models.Order, error) {
	docs, err := s.store.List(ctx, models.CollectionOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		var order models.Order
		if err := doc.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order %s: %w", doc.ID, err)
		}
		if order.UserID != userID {
			continue
		}
		order.StoreID = doc.ID
		orders = append(orders, order)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp > orders[j].Timestamp
	})
	return orders, nil
}

func (s *CheckoutService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.CartItem) {
	eventItems := make([]models.OrderItemEvent, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemEvent{
			CoffeeID:  item.CoffeeID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: s.now(),
		},
		OrderID: order.StoreID,
		UserID:  order.UserID,
		Amount:  order.Amount.String(),
		Items:   eventItems,
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}
