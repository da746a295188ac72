package service

import (
	"context"
	"fmt"

	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/util"

	"go.uber.org/zap"
)

// FavoritesService manages per-user favorite marks on catalog items
type FavoritesService struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewFavoritesService creates a new favorites service
func NewFavoritesService(store docstore.Store) *FavoritesService {
	return &FavoritesService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Toggle flips the favorite state of a catalog item for a user and reports
// the new state. Toggling off removes every matching favorite document, so
// duplicates from earlier races are cleaned up in passing.
func (s *FavoritesService) Toggle(ctx context.Context, userID string, item models.CatalogItem) (bool, error) {
	ctx, span := util.StartSpan(ctx, "FavoritesService.Toggle")
	defer span.End()

	existing, err := s.matching(ctx, userID, item.ID)
	if err != nil {
		return false, err
	}

	if len(existing) > 0 {
		for _, fav := range existing {
			if err := s.store.Delete(ctx, models.CollectionFavorites, fav.StoreID); err != nil {
				return true, fmt.Errorf("failed to remove favorite: %w", err)
			}
		}
		return false, nil
	}

	fav := models.Favorite{
		UserID:            userID,
		CoffeeID:          item.ID,
		Name:              item.Name,
		ImageURI:          item.ImagePortrait,
		SpecialIngredient: item.SpecialIngredient,
		Description:       item.Description,
		Type:              item.Type,
		Ingredients:       item.Ingredients,
		Roasted:           item.Roasted,
	}
	if _, err := s.store.Create(ctx, models.CollectionFavorites, fav); err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return true, nil
}

// IsFavorite reports whether the user has favorited the catalog item
func (s *FavoritesService) IsFavorite(ctx context.Context, userID, coffeeID string) (bool, error) {
	existing, err := s.matching(ctx, userID, coffeeID)
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

// List returns the user's favorites
func (s *FavoritesService) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	docs, err := s.store.List(ctx, models.CollectionFavorites)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	favorites := make([]models.Favorite, 0, len(docs))
	for _, doc := range docs {
		var fav models.Favorite
		if err := doc.Decode(&fav); err != nil {
			return nil, fmt.Errorf("failed to decode favorite %s: %w", doc.ID, err)
		}
		if fav.UserID != userID {
			continue
		}
		fav.StoreID = doc.ID
		favorites = append(favorites, fav)
	}
	return favorites, nil
}

func (s *FavoritesService) matching(ctx context.Context, userID, coffeeID string) ([]models.Favorite, error) {
	favorites, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	matched := favorites[:0]
	for _, fav := range favorites {
		if fav.CoffeeID == coffeeID {
			matched = append(matched, fav)
		}
	}
	return matched, nil
}
