package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/repository"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// favoritesSchemaVersion tags stored favorites documents.
const favoritesSchemaVersion = 1

// MaxFavorites is the maximum number of saved items per identity.
const MaxFavorites = 200

// SaveFavoriteInput holds the parameters for saving an item.
type SaveFavoriteInput struct {
	VariantID string `json:"variant_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
}

// FavoritesService implements the business logic for saved items.
type FavoritesService struct {
	favorites *ScopedCollection[domain.Favorites]
	logger    *slog.Logger
	now       func() time.Time
}

// NewFavoritesService creates a new favorites service.
func NewFavoritesService(favorites *ScopedCollection[domain.Favorites], logger *slog.Logger) *FavoritesService {
	return &FavoritesService{
		favorites: favorites,
		logger:    logger,
		now:       time.Now,
	}
}

// NewFavoritesCollection builds the identity-scoped favorites collection.
func NewFavoritesCollection(repo repository.CollectionRepository) *ScopedCollection[domain.Favorites] {
	return NewScopedCollection(repo, "favorites", favoritesSchemaVersion, func() domain.Favorites { return domain.Favorites{} })
}

// List returns the identity's saved items, newest first not guaranteed;
// insertion order is preserved.
func (s *FavoritesService) List(ctx context.Context, identity domain.Identity) ([]domain.FavoriteItem, error) {
	favorites, err := s.favorites.Load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if favorites.Items == nil {
		return []domain.FavoriteItem{}, nil
	}
	return favorites.Items, nil
}

// Save stores an item in the identity's favorites. Saving an already-saved
// variant is a no-op.
func (s *FavoritesService) Save(ctx context.Context, identity domain.Identity, input SaveFavoriteInput) ([]domain.FavoriteItem, error) {
	if input.VariantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	favorites, err := s.favorites.Mutate(ctx, identity, func(f *domain.Favorites) error {
		if !f.Contains(input.VariantID) && len(f.Items) >= MaxFavorites {
			return apperrors.InvalidInput("favorites list is full")
		}
		f.Add(domain.FavoriteItem{
			VariantID: input.VariantID,
			ProductID: input.ProductID,
			Name:      input.Name,
			UnitPrice: input.UnitPrice,
			AddedAt:   s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "favorite saved",
		slog.String("variant_id", input.VariantID),
	)

	return favorites.Items, nil
}

// Remove drops a saved variant. Removing an absent variant is not an error.
func (s *FavoritesService) Remove(ctx context.Context, identity domain.Identity, variantID string) ([]domain.FavoriteItem, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}

	favorites, err := s.favorites.Mutate(ctx, identity, func(f *domain.Favorites) error {
		f.Remove(variantID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if favorites.Items == nil {
		return []domain.FavoriteItem{}, nil
	}
	return favorites.Items, nil
}
