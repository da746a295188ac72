package catalog

import (
	"context"
	"fmt"

	"coffeehouse-service/internal/models"
)

// Provider is the read-only catalog view served to clients. Items are
// indexed once at construction and never mutated afterwards.
type Provider struct {
	items []models.CatalogItem
	byID  map[string]models.CatalogItem
}

// NewProvider loads the catalog from the store
func NewProvider(ctx context.Context, store *Store) (*Provider, error) {
	items, err := store.LoadItems(ctx)
	if err != nil {
		return nil, err
	}
	return NewProviderFromItems(items), nil
}

// NewProviderFromItems builds a provider over an already-loaded item list
func NewProviderFromItems(items []models.CatalogItem) *Provider {
	byID := make(map[string]models.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &Provider{items: items, byID: byID}
}

// Items returns every catalog item
func (p *Provider) Items() []models.CatalogItem {
	return p.items
}

// Item looks up a catalog item by id
func (p *Provider) Item(id string) (models.CatalogItem, error) {
	item, ok := p.byID[id]
	if !ok {
		return models.CatalogItem{}, fmt.Errorf("catalog item not found: %s", id)
	}
	return item, nil
}

// PriceBySize looks up the price for a size of an item. The second return
// is false when the item does not carry that size; such an item is not
// purchasable at that size and the zero amount must not be used in
// arithmetic.
func PriceBySize(item models.CatalogItem, size string) (models.Money, bool) {
	for _, option := range item.Prices {
		if option.Size == size {
			return option.Price, true
		}
	}
	return models.Money{}, false
}
