package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	"github.com/rentbridge/service-booking/pkg/domain"
	"go.uber.org/zap"
)

// WishlistService manages the properties a user has saved.
type WishlistService struct {
	favorites  propertyDomain.FavoriteRepository
	properties propertyDomain.PropertyRepository
	logger     *zap.Logger
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(favorites propertyDomain.FavoriteRepository, properties propertyDomain.PropertyRepository, logger *zap.Logger) *WishlistService {
	return &WishlistService{favorites: favorites, properties: properties, logger: logger}
}

// AddFavorite saves a listed property to the user's wishlist.
func (s *WishlistService) AddFavorite(ctx context.Context, userID, propertyID uuid.UUID) (*FavoriteStatusDTO, error) {
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		return nil, err
	}
	if err := s.favorites.Add(ctx, userID, propertyID); err != nil {
		return nil, err
	}
	return &FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: true}, nil
}

// RemoveFavorite drops a property from the wishlist. Removing a property that
// was never saved succeeds.
func (s *WishlistService) RemoveFavorite(ctx context.Context, userID, propertyID uuid.UUID) (*FavoriteStatusDTO, error) {
	if _, err := s.favorites.Remove(ctx, userID, propertyID); err != nil {
		return nil, err
	}
	return &FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: false}, nil
}

// ToggleFavorite removes the property if it is saved and saves it otherwise.
func (s *WishlistService) ToggleFavorite(ctx context.Context, userID, propertyID uuid.UUID) (*FavoriteStatusDTO, error) {
	removed, err := s.favorites.Remove(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}
	if removed {
		return &FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: false}, nil
	}
	return s.AddFavorite(ctx, userID, propertyID)
}

// ListWishlist returns the user's saved listings, most recently saved first.
// Only the user or an admin may read it.
func (s *WishlistService) ListWishlist(ctx context.Context, caller Caller, userID uuid.UUID, page, limit int) (domain.PaginatedResult[PropertyDTO], error) {
	if caller.ID != userID && !caller.IsAdmin() {
		return domain.PaginatedResult[PropertyDTO]{}, domain.NewForbiddenError("you can only view your own wishlist")
	}

	ids, total, err := s.favorites.ListPropertyIDs(ctx, userID, page, limit)
	if err != nil {
		return domain.PaginatedResult[PropertyDTO]{}, err
	}
	props, err := s.properties.FindByIDs(ctx, ids)
	if err != nil {
		return domain.PaginatedResult[PropertyDTO]{}, fmt.Errorf("failed to load wishlist properties: %w", err)
	}

	items := make([]*propertyDomain.Property, 0, len(ids))
	for _, id := range ids {
		if p, ok := props[id]; ok {
			items = append(items, p)
		}
	}
	return propertyPage(items, total, page, limit), nil
}

// ClearWishlist forgets every favorite of a removed user.
func (s *WishlistService) ClearWishlist(ctx context.Context, userID uuid.UUID) error {
	return s.favorites.DeleteByUser(ctx, userID)
}
