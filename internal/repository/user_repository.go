package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserModel is the local copy of identity-service accounts.
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null;size:200"`
	Email     string    `gorm:"size:320;index"`
	Role      string    `gorm:"not null;size:20;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// GormUserRepository implements user.Repository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

var _ userDomain.Repository = (*GormUserRepository)(nil)

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Upsert inserts the user or refreshes name, email and role.
func (r *GormUserRepository) Upsert(ctx context.Context, u *userDomain.User) error {
	now := time.Now().UTC()
	model := UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "role", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id.String())
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return toUserDomain(&model), nil
}

func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*userDomain.User, error) {
	out := make(map[uuid.UUID]*userDomain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	for i := range models {
		out[models[i].ID] = toUserDomain(&models[i])
	}
	return out, nil
}

func (r *GormUserRepository) CountByRole(ctx context.Context) (map[userDomain.Role]int64, error) {
	type roleCount struct {
		Role  string
		Count int64
	}
	var results []roleCount
	if err := r.db.WithContext(ctx).Model(&UserModel{}).
		Select("role, count(*) as count").
		Group("role").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	counts := make(map[userDomain.Role]int64, len(results))
	for _, rc := range results {
		counts[userDomain.Role(rc.Role)] = rc.Count
	}
	return counts, nil
}

func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("User", id.String())
	}
	return nil
}

func toUserDomain(m *UserModel) *userDomain.User {
	return &userDomain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      userDomain.Role(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
