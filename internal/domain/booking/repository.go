package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows party listings.
type ListFilter struct {
	ActiveOnly bool
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIDForUpdate retrieves a booking and holds its row lock until the
	// enclosing transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindActiveByProperty returns the pending and approved bookings of a property.
	FindActiveByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Booking, error)

	// HasActiveForRenter reports whether the renter already holds an active
	// booking on the property.
	HasActiveForRenter(ctx context.Context, propertyID, renterID uuid.UUID) (bool, error)

	// FindActiveByUser returns active bookings where the user is renter or owner.
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error)

	// FindElapsedApproved returns approved bookings whose stay ended before now.
	FindElapsedApproved(ctx context.Context, now time.Time, limit int) ([]*Booking, error)

	// FindByRenterID lists a renter's bookings, newest first.
	FindByRenterID(ctx context.Context, renterID uuid.UUID, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// FindByOwnerID lists bookings on an owner's properties, newest first.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error

	// Delete removes a booking permanently.
	Delete(ctx context.Context, id uuid.UUID) error
}
