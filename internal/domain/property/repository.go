package property

import (
	"context"

	"github.com/google/uuid"
)

// PropertyRepository defines the persistence contract for property aggregates.
type PropertyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
	// FindByIDForUpdate holds the property row lock until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Property, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Property, error)
	FindIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
	ListByStatus(ctx context.Context, status Status, page, limit int) ([]*Property, int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Property, int64, error)
	ListAll(ctx context.Context, page, limit int) ([]*Property, int64, error)
	Count(ctx context.Context) (int64, error)
	Save(ctx context.Context, p *Property) error
	// Update persists changes with optimistic locking.
	Update(ctx context.Context, p *Property) error
	// Delete soft-deletes the listing.
	Delete(ctx context.Context, id uuid.UUID) error
}
