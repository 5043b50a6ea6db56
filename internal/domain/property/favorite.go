package property

import (
	"context"

	"github.com/google/uuid"
)

// FavoriteRepository stores renters' wishlists. A favorite is a plain
// (user, property) pair; adding twice or removing a missing pair is a no-op.
type FavoriteRepository interface {
	Add(ctx context.Context, userID, propertyID uuid.UUID) error
	// Remove reports whether the pair existed.
	Remove(ctx context.Context, userID, propertyID uuid.UUID) (bool, error)
	// ListPropertyIDs returns the user's favorites on listed properties,
	// most recently added first.
	ListPropertyIDs(ctx context.Context, userID uuid.UUID, page, limit int) ([]uuid.UUID, int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
