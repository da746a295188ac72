package service

import (
	"context"
	"errors"
	"fmt"

	"coffeehouse-service/internal/catalog"
	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/util"

	"go.uber.org/zap"
)

// ErrSizeUnavailable is returned when a catalog item does not carry the
// requested size; such a configuration is not purchasable.
var ErrSizeUnavailable = errors.New("size not available for this item")

// CartService manages cart line items. The cart is not held here: it is a
// derived view over the document store, kept live through subscriptions.
type CartService struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store docstore.Store) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// AddToCart creates a new line item for the item/size at the unit price
// current in the catalog. Repeated adds of the same configuration create
// parallel line items rather than incrementing an existing one; the cart
// view shows them separately. A persistence failure is logged and counted
// but not surfaced: the cart display rehydrates from the live subscription.
func (s *CartService) AddToCart(ctx context.Context, userID string, item models.CatalogItem, size string, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	price, ok := catalog.PriceBySize(item, size)
	if !ok {
		return fmt.Errorf("%w: item=%s size=%s", ErrSizeUnavailable, item.ID, size)
	}

	if quantity < 1 {
		quantity = 1
	}

	line := models.CartItem{
		UserID:    userID,
		CoffeeID:  item.ID,
		Name:      item.Name,
		ImageURI:  item.ImageSquare,
		Size:      size,
		UnitPrice: price,
		Quantity:  quantity,
	}

	if _, err := s.store.Create(ctx, models.CollectionCart, line); err != nil {
		util.CartWriteFailuresTotal.WithLabelValues("add").Inc()
		s.logger.Error("Failed to persist cart line item",
			zap.String("user_id", userID),
			zap.String("coffee_id", item.ID),
			zap.Error(err))
		return nil
	}

	util.CartAddsTotal.Inc()
	return nil
}

// IncreaseQuantity adds one to the line item's quantity. The unit price is
// left untouched. This is a read-modify-write, not an atomic delta:
// concurrent increments from two sessions of the same account can lose an
// update (last writer wins at the store layer).
func (s *CartService) IncreaseQuantity(ctx context.Context, lineItemID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.IncreaseQuantity")
	defer span.End()

	var line models.CartItem
	if err := s.store.Get(ctx, models.CollectionCart, lineItemID, &line); err != nil {
		return fmt.Errorf("failed to read cart line item: %w", err)
	}

	line.Quantity++
	if err := s.store.Update(ctx, models.CollectionCart, lineItemID, line); err != nil {
		return fmt.Errorf("failed to update cart line item: %w", err)
	}
	return nil
}

// DecreaseQuantity subtracts one from the line item's quantity. A line
// item never reaches quantity 0: at quantity 1 it is deleted outright.
func (s *CartService) DecreaseQuantity(ctx context.Context, lineItemID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.DecreaseQuantity")
	defer span.End()

	var line models.CartItem
	if err := s.store.Get(ctx, models.CollectionCart, lineItemID, &line); err != nil {
		return fmt.Errorf("failed to read cart line item: %w", err)
	}

	if line.Quantity <= 1 {
		if err := s.store.Delete(ctx, models.CollectionCart, lineItemID); err != nil {
			return fmt.Errorf("failed to delete cart line item: %w", err)
		}
		return nil
	}

	line.Quantity--
	if err := s.store.Update(ctx, models.CollectionCart, lineItemID, line); err != nil {
		return fmt.Errorf("failed to update cart line item: %w", err)
	}
	return nil
}

// Items returns the user's current cart line items. The store is read
// whole and filtered here by owning user id.
func (s *CartService) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	docs, err := s.store.List(ctx, models.CollectionCart)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	return decodeCartItems(docs, userID)
}

// ComputeTotal sums unit price times quantity over the given line items.
// An empty cart totals exactly zero.
func (s *CartService) ComputeTotal(items []models.CartItem) models.Money {
	total := models.Zero()
	for _, item := range items {
		total = total.Add(item.UnitPrice.MulInt(item.Quantity))
	}
	return total
}

// Watch pushes the user's cart on every change to the backing collection,
// starting with the current contents. The returned cancel func tears the
// subscription down; the channel closes afterwards.
func (s *CartService) Watch(ctx context.Context, userID string) (<-chan []models.CartItem, func(), error) {
	snapshots, cancel, err := s.store.Subscribe(ctx, models.CollectionCart)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to cart: %w", err)
	}

	out := make(chan []models.CartItem, 1)
	go func() {
		defer close(out)
		for snap := range snapshots {
			items, err := decodeCartItems(snap.Documents, userID)
			if err != nil {
				s.logger.Error("Failed to decode cart snapshot", zap.Error(err))
				continue
			}
			select {
			case out <- items:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

func decodeCartItems(docs []docstore.Document, userID string) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0, len(docs))
	for _, doc := range docs {
		var line models.CartItem
		if err := doc.Decode(&line); err != nil {
			return nil, fmt.Errorf("failed to decode cart line item %s: %w", doc.ID, err)
		}
		if line.UserID != userID {
			continue
		}
		line.StoreID = doc.ID
		items = append(items, line)
	}
	return items, nil
}
