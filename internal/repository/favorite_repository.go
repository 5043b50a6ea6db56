package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	"github.com/rentbridge/service-booking/pkg/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteModel is one wishlist entry.
type FavoriteModel struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (FavoriteModel) TableName() string { return "favorites" }

// GormFavoriteRepository implements property.FavoriteRepository using GORM.
type GormFavoriteRepository struct {
	db *gorm.DB
}

var _ propertyDomain.FavoriteRepository = (*GormFavoriteRepository)(nil)

func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

func (r *GormFavoriteRepository) Add(ctx context.Context, userID, propertyID uuid.UUID) error {
	model := FavoriteModel{UserID: userID, PropertyID: propertyID, CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *GormFavoriteRepository) Remove(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&FavoriteModel{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListPropertyIDs skips favorites whose property has been delisted.
func (r *GormFavoriteRepository) ListPropertyIDs(ctx context.Context, userID uuid.UUID, page, limit int) ([]uuid.UUID, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Model(&FavoriteModel{}).
			Joins("JOIN properties ON properties.id = favorites.property_id AND properties.deleted_at IS NULL").
			Where("favorites.user_id = ?", userID)
	}

	var total int64
	if err := r.db.WithContext(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count favorites: %w", err)
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("favorites.created_at DESC").
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Pluck("favorites.property_id", &ids).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list favorites: %w", err)
	}
	return ids, total, nil
}

func (r *GormFavoriteRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&FavoriteModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear favorites: %w", err)
	}
	return nil
}
