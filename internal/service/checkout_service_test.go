package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	locks    map[string]bool
	keys     map[string]string
	lockErr  error
	rejected bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{
		locks: make(map[string]bool),
		keys:  make(map[string]string),
	}
}

func (l *fakeLocker) AcquireLock(_ context.Context, lockKey string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return false, l.lockErr
	}
	if l.rejected || l.locks[lockKey] {
		return false, nil
	}
	l.locks[lockKey] = true
	return true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, lockKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, lockKey)
	return nil
}

func (l *fakeLocker) SetIdempotencyKey(_ context.Context, key string, value interface{}, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = value.(string)
	return nil
}

func (l *fakeLocker) GetIdempotencyKey(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keys[key], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.OrderPlacedEvent
	err    error
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []*models.OrderPlacedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

func newCheckoutFixture(t *testing.T) (*CheckoutService, *CartService, *docstore.MemoryStore, *fakeLocker, *fakePublisher) {
	t.Helper()
	store := docstore.NewMemoryStore()
	cart := NewCartService(store)
	locker := newFakeLocker()
	publisher := &fakePublisher{}
	checkout := NewCheckoutService(store, cart, locker, publisher)
	checkout.now = func() time.Time {
		return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	}
	return checkout, cart, store, locker, publisher
}

func savedCard(t *testing.T, store docstore.Store) *models.PaymentMethod {
	t.Helper()
	svc := NewPaymentMethodService(store)
	svc.now = func() time.Time { return cardTestNow }
	method, validationErrs, err := svc.Save(context.Background(), "user-1", validCard())
	require.NoError(t, err)
	require.Empty(t, validationErrs)
	return method
}

func TestConfirmPaymentWithoutMethodWritesNothing(t *testing.T) {
	checkout, cart, store, _, publisher := newCheckoutFixture(t)
	ctx := context.Background()

	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	order, err := checkout.ConfirmPayment(ctx, "user-1", nil, "")
	assert.ErrorIs(t, err, ErrNoPaymentMethod)
	assert.Nil(t, order)

	// no order document, no event, cart untouched
	docs, err := store.List(ctx, models.CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, publisher.published())

	items, err := cart.Items(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestConfirmPaymentEmptyCart(t *testing.T) {
	checkout, _, store, _, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)

	order, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, order)

	docs, err := store.List(ctx, models.CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestConfirmPaymentPlacesOrderAndClearsCart(t *testing.T) {
	checkout, cart, store, _, publisher := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)

	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "L", 2)) // 2 x 4.50
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1)) // 1 x 3.00

	order, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.True(t, order.Amount.Equal(models.MustMoney("12.00")))
	assert.Len(t, order.Items, 2)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, "****1111", order.PaymentMethodLabel)
	assert.Equal(t, method.StoreID, order.PaymentMethodID)
	assert.Equal(t, "2024-06-15T12:00:00Z", order.Timestamp)
	assert.NotEmpty(t, order.StoreID)

	items, err := cart.Items(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, order.StoreID, events[0].OrderID)
	assert.Equal(t, "12", events[0].Amount)
}

func TestConfirmPaymentOnlyClearsOwnCart(t *testing.T) {
	checkout, cart, store, _, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)

	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))
	require.NoError(t, cart.AddToCart(ctx, "user-2", americano(), "M", 1))

	_, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)

	items, err := cart.Items(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestConfirmPaymentRejectsConcurrentCheckout(t *testing.T) {
	checkout, cart, store, locker, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	locker.rejected = true

	_, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
}

func TestConfirmPaymentProceedsWhenLockerDown(t *testing.T) {
	checkout, cart, store, locker, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	locker.lockErr = errors.New("connection refused")

	order, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestConfirmPaymentIdempotency(t *testing.T) {
	checkout, cart, store, _, publisher := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	first, err := checkout.ConfirmPayment(ctx, "user-1", method, "key-abc")
	require.NoError(t, err)

	// the retry returns the existing order and creates nothing new
	second, err := checkout.ConfirmPayment(ctx, "user-1", method, "key-abc")
	require.NoError(t, err)
	assert.Equal(t, first.StoreID, second.StoreID)

	docs, err := store.List(ctx, models.CollectionOrders)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Len(t, publisher.published(), 1)
}

func TestConfirmPaymentCartClearFailureKeepsOrder(t *testing.T) {
	mem := docstore.NewMemoryStore()
	store := &faultyStore{Store: mem}
	cart := NewCartService(store)
	checkout := NewCheckoutService(store, cart, newFakeLocker(), &fakePublisher{})
	ctx := context.Background()

	method := savedCard(t, store)
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "L", 2))
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	store.deleteErr = errors.New("connection reset")

	order, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	assert.Error(t, err)
	assert.Nil(t, order)

	// the order document was created before clearing began and is not
	// rolled back
	docs, err := mem.List(ctx, models.CollectionOrders)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var placed models.Order
	require.NoError(t, docs[0].Decode(&placed))
	assert.True(t, placed.Amount.Equal(models.MustMoney("12.00")))
	assert.Len(t, placed.Items, 2)

	// the undeleted line items stay visible
	items, err := cart.Items(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestOrderSnapshotSurvivesMethodDeletion(t *testing.T) {
	checkout, cart, store, _, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	order, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, models.CollectionPaymentMethods, method.StoreID))

	got, err := checkout.Order(ctx, "user-1", order.StoreID)
	require.NoError(t, err)
	assert.Equal(t, "****1111", got.PaymentMethodLabel)
}

func TestOrderOwnership(t *testing.T) {
	checkout, cart, store, _, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))

	order, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)

	_, err = checkout.Order(ctx, "user-2", order.StoreID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestOrdersNewestFirst(t *testing.T) {
	checkout, cart, store, _, _ := newCheckoutFixture(t)
	ctx := context.Background()

	method := savedCard(t, store)

	ts := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	checkout.now = func() time.Time { return ts }

	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "M", 1))
	first, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)

	checkout.now = func() time.Time { return ts.Add(time.Hour) }
	require.NoError(t, cart.AddToCart(ctx, "user-1", americano(), "L", 1))
	second, err := checkout.ConfirmPayment(ctx, "user-1", method, "")
	require.NoError(t, err)

	orders, err := checkout.Orders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.StoreID, orders[0].StoreID)
	assert.Equal(t, first.StoreID, orders[1].StoreID)
}
