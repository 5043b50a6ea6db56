package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/domain"
	"go.uber.org/zap"
)

// UserRemovedReason is recorded on bookings voided because a party left.
const UserRemovedReason = "User account removed"

// UserService keeps the local user directory in step with the identity
// service and cascades account removal.
type UserService struct {
	users      userDomain.Repository
	bookings   *BookingService
	properties *PropertyService
	wishlist   *WishlistService
	logger     *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	users userDomain.Repository,
	bookings *BookingService,
	properties *PropertyService,
	wishlist *WishlistService,
	logger *zap.Logger,
) *UserService {
	return &UserService{users: users, bookings: bookings, properties: properties, wishlist: wishlist, logger: logger}
}

// SyncUser upserts a directory entry.
func (s *UserService) SyncUser(ctx context.Context, u *userDomain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// RemoveUser voids the user's active bookings, delists their properties,
// clears their wishlist and drops the directory entry. A missing entry is not
// an error.
func (s *UserService) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	voided, voidErr := s.bookings.VoidBookingsForUser(ctx, userID, UserRemovedReason)
	delisted, delistErr := s.properties.DelistOwnerProperties(ctx, userID)
	wishlistErr := s.wishlist.ClearWishlist(ctx, userID)
	if err := errors.Join(voidErr, delistErr, wishlistErr); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil && !domain.IsNotFound(err) {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user removed",
		zap.String("user_id", userID.String()),
		zap.Int("voided_bookings", voided),
		zap.Int("delisted_properties", delisted),
	)
	return nil
}
