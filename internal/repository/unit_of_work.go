package repository

import (
	"context"

	"github.com/rentbridge/service-booking/internal/application"
	"gorm.io/gorm"
)

// GormUnitOfWork runs application transactions on a single *gorm.DB transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

var _ application.UnitOfWork = (*GormUnitOfWork)(nil)

// NewGormUnitOfWork creates a new GormUnitOfWork.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// WithTransaction commits when fn returns nil and rolls back otherwise.
func (u *GormUnitOfWork) WithTransaction(ctx context.Context, fn func(repos application.TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(application.TxRepositories{
			Bookings:   NewGormBookingRepository(tx),
			Properties: NewGormPropertyRepository(tx),
		})
	})
}
