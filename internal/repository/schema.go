package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// partialIndexes enforce at most one active booking per property and per
// (property, renter). GORM tags cannot express partial indexes.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active_property
		ON bookings (property_id) WHERE status IN ('pending', 'approved')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active_renter
		ON bookings (property_id, renter_id) WHERE status IN ('pending', 'approved')`,
}

// AutoMigrate creates or updates the tables for development setups and adds
// the partial unique indexes. Production uses the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&PropertyModel{}, &BookingModel{}, &UserModel{}, &FavoriteModel{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
