package application

import (
	"context"

	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
)

// TxRepositories are the repositories bound to one open transaction.
type TxRepositories struct {
	Bookings   bookingDomain.BookingRepository
	Properties propertyDomain.PropertyRepository
}

// UnitOfWork runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise, so booking and
// property writes made through repos land together or not at all.
type UnitOfWork interface {
	WithTransaction(ctx context.Context, fn func(repos TxRepositories) error) error
}
