package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	"github.com/rentbridge/service-booking/pkg/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyModel is the GORM model for the properties table. Deleted listings
// are kept as soft-deleted rows so booking history still resolves.
type PropertyModel struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Code              string         `gorm:"uniqueIndex;not null;size:16"`
	OwnerID           uuid.UUID      `gorm:"type:uuid;index;not null"`
	Title             string         `gorm:"not null;size:300"`
	PropertyType      string         `gorm:"not null;size:50"`
	AdvertisementType string         `gorm:"size:50"`
	Address           string         `gorm:"not null;size:500"`
	City              string         `gorm:"size:100"`
	State             string         `gorm:"size:100"`
	OwnerContact      string         `gorm:"size:200"`
	RentCents         int64          `gorm:"not null;default:0"`
	Images            pq.StringArray `gorm:"type:text[];not null"`
	Description       string         `gorm:"type:text"`
	Status            string         `gorm:"not null;size:20;index"`
	Version           int64          `gorm:"not null;default:1"`
	CreatedAt         time.Time      `gorm:"not null;index"`
	UpdatedAt         time.Time      `gorm:"not null"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for the GORM model.
func (PropertyModel) TableName() string { return "properties" }

// GormPropertyRepository implements PropertyRepository using GORM.
type GormPropertyRepository struct {
	db *gorm.DB
}

var _ propertyDomain.PropertyRepository = (*GormPropertyRepository)(nil)

// NewGormPropertyRepository creates a new GormPropertyRepository.
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the property row until the transaction ends.
func (r *GormPropertyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPropertyRepository) findOne(db *gorm.DB, id uuid.UUID) (*propertyDomain.Property, error) {
	var model PropertyModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, fmt.Errorf("failed to find property by ID: %w", err)
	}
	return toPropertyDomain(&model)
}

func (r *GormPropertyRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*propertyDomain.Property, error) {
	out := make(map[uuid.UUID]*propertyDomain.Property, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []PropertyModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find properties: %w", err)
	}
	for i := range models {
		p, err := toPropertyDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out[p.ID()] = p
	}
	return out, nil
}

func (r *GormPropertyRepository) FindIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&PropertyModel{}).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to find owner property IDs: %w", err)
	}
	return ids, nil
}

func (r *GormPropertyRepository) ListByStatus(ctx context.Context, status propertyDomain.Status, page, limit int) ([]*propertyDomain.Property, int64, error) {
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("status = ?", string(status)) }, page, limit)
}

func (r *GormPropertyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*propertyDomain.Property, int64, error) {
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("owner_id = ?", ownerID) }, page, limit)
}

func (r *GormPropertyRepository) ListAll(ctx context.Context, page, limit int) ([]*propertyDomain.Property, int64, error) {
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB { return db }, page, limit)
}

func (r *GormPropertyRepository) paginate(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page, limit int) ([]*propertyDomain.Property, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&PropertyModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	var models []PropertyModel
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}

	props := make([]*propertyDomain.Property, len(models))
	for i := range models {
		p, err := toPropertyDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		props[i] = p
	}
	return props, total, nil
}

func (r *GormPropertyRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&PropertyModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return total, nil
}

func (r *GormPropertyRepository) Save(ctx context.Context, p *propertyDomain.Property) error {
	if err := r.db.WithContext(ctx).Create(toPropertyModel(p)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("property code already in use")
		}
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

// Update persists listing and status changes with optimistic locking.
func (r *GormPropertyRepository) Update(ctx context.Context, p *propertyDomain.Property) error {
	model := toPropertyModel(p)
	result := r.db.WithContext(ctx).
		Model(&PropertyModel{}).
		Where("id = ? AND version = ?", model.ID, p.Version()-1).
		Updates(map[string]interface{}{
			"title":              model.Title,
			"property_type":      model.PropertyType,
			"advertisement_type": model.AdvertisementType,
			"address":            model.Address,
			"city":               model.City,
			"state":              model.State,
			"owner_contact":      model.OwnerContact,
			"rent_cents":         model.RentCents,
			"images":             model.Images,
			"description":        model.Description,
			"status":             model.Status,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("property was modified by another transaction")
	}
	return nil
}

// Delete soft-deletes the listing.
func (r *GormPropertyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PropertyModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Property", id.String())
	}
	return nil
}

func toPropertyModel(p *propertyDomain.Property) *PropertyModel {
	l := p.Listing()
	return &PropertyModel{
		ID:                p.ID(),
		Code:              p.Code(),
		OwnerID:           p.OwnerID(),
		Title:             l.Title,
		PropertyType:      l.PropertyType,
		AdvertisementType: l.AdvertisementType,
		Address:           l.Address,
		City:              l.City,
		State:             l.State,
		OwnerContact:      l.OwnerContact,
		RentCents:         l.RentCents,
		Images:            pq.StringArray(l.Images),
		Description:       l.Description,
		Status:            string(p.Status()),
		Version:           p.Version(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}
}

func toPropertyDomain(m *PropertyModel) (*propertyDomain.Property, error) {
	status, err := propertyDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	return propertyDomain.ReconstructProperty(
		m.ID,
		m.Code,
		m.OwnerID,
		propertyDomain.Listing{
			Title:             m.Title,
			PropertyType:      m.PropertyType,
			AdvertisementType: m.AdvertisementType,
			Address:           m.Address,
			City:              m.City,
			State:             m.State,
			OwnerContact:      m.OwnerContact,
			RentCents:         m.RentCents,
			Images:            []string(m.Images),
			Description:       m.Description,
		},
		status,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
