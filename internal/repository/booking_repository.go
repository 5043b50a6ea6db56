package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	"github.com/rentbridge/service-booking/pkg/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRecord is the JSON shape of one thread message inside bookings.messages.
type MessageRecord struct {
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID                          `gorm:"type:uuid;primaryKey"`
	Code               string                             `gorm:"uniqueIndex;not null;size:32"`
	PropertyID         uuid.UUID                          `gorm:"type:uuid;index;not null"`
	RenterID           uuid.UUID                          `gorm:"type:uuid;index;not null"`
	OwnerID            uuid.UUID                          `gorm:"type:uuid;index;not null"`
	RenterName         string                             `gorm:"not null;size:200"`
	OwnerName          string                             `gorm:"size:200"`
	PropertyName       string                             `gorm:"size:300"`
	StartDate          time.Time                          `gorm:"not null"`
	EndDate            time.Time                          `gorm:"not null;index"`
	Status             string                             `gorm:"not null;size:20;index"`
	Messages           datatypes.JSONSlice[MessageRecord] `gorm:"type:jsonb;not null;default:'[]'"`
	CancelledAt        *time.Time                         `gorm:""`
	CancellationReason string                             `gorm:"size:500"`
	CompletedAt        *time.Time                         `gorm:""`
	Version            int64                              `gorm:"not null;default:1"`
	CreatedAt          time.Time                          `gorm:"not null;index"`
	UpdatedAt          time.Time                          `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

var _ bookingDomain.BookingRepository = (*GormBookingRepository)(nil)

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func activeStatuses() []string {
	out := make([]string, len(bookingDomain.ActiveStatuses))
	for i, s := range bookingDomain.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate retrieves a booking with SELECT ... FOR UPDATE.
func (r *GormBookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBookingRepository) findOne(db *gorm.DB, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindActiveByProperty returns the pending and approved bookings of a property.
func (r *GormBookingRepository) FindActiveByProperty(ctx context.Context, propertyID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND status IN ?", propertyID, activeStatuses()).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find active property bookings: %w", err)
	}
	return toDomainBookings(models)
}

// HasActiveForRenter reports whether the renter holds an active booking on the property.
func (r *GormBookingRepository) HasActiveForRenter(ctx context.Context, propertyID, renterID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("property_id = ? AND renter_id = ? AND status IN ?", propertyID, renterID, activeStatuses()).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count renter bookings: %w", err)
	}
	return count > 0, nil
}

// FindActiveByUser returns active bookings where the user is renter or owner.
func (r *GormBookingRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("(renter_id = ? OR owner_id = ?) AND status IN ?", userID, userID, activeStatuses()).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find active user bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindElapsedApproved returns approved bookings whose stay ended before now.
func (r *GormBookingRepository) FindElapsedApproved(ctx context.Context, now time.Time, limit int) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", string(bookingDomain.StatusApproved), now.UTC()).
		Order("end_date ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find elapsed bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindByRenterID retrieves bookings made by a renter with pagination.
func (r *GormBookingRepository) FindByRenterID(ctx context.Context, renterID uuid.UUID, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.paginate(ctx, r.partyScope("renter_id", renterID, filter), page, limit)
}

// FindByOwnerID retrieves bookings on an owner's properties with pagination.
func (r *GormBookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.paginate(ctx, r.partyScope("owner_id", ownerID, filter), page, limit)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB { return db }, page, limit)
}

func (r *GormBookingRepository) partyScope(column string, id uuid.UUID, filter bookingDomain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where(column+" = ?", id)
		if filter.ActiveOnly {
			db = db.Where("status IN ?", activeStatuses())
		}
		return db
	}
}

func (r *GormBookingRepository) paginate(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking. A violation of the one-active-booking indexes
// surfaces as a conflict.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("an active booking already exists for this property")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// IncrementVersion has already run, so the stored row carries version-1.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"owner_name":          model.OwnerName,
			"property_name":       model.PropertyName,
			"messages":            model.Messages,
			"cancelled_at":        model.CancelledAt,
			"cancellation_reason": model.CancellationReason,
			"completed_at":        model.CompletedAt,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("an active booking already exists for this property")
		}
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// Delete removes a booking permanently.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	messages := make(datatypes.JSONSlice[MessageRecord], 0, len(bk.Messages()))
	for _, m := range bk.Messages() {
		messages = append(messages, MessageRecord{
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			Timestamp:  m.SentAt,
		})
	}

	return &BookingModel{
		ID:                 bk.ID(),
		Code:               bk.Code(),
		PropertyID:         bk.PropertyID(),
		RenterID:           bk.RenterID(),
		OwnerID:            bk.OwnerID(),
		RenterName:         bk.RenterName(),
		OwnerName:          bk.OwnerName(),
		PropertyName:       bk.PropertyName(),
		StartDate:          bk.Period().Start,
		EndDate:            bk.Period().End,
		Status:             string(bk.Status()),
		Messages:           messages,
		CancelledAt:        bk.CancelledAt(),
		CancellationReason: bk.CancellationReason(),
		CompletedAt:        bk.CompletedAt(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	messages := make([]bookingDomain.Message, len(m.Messages))
	for i, rec := range m.Messages {
		messages[i] = bookingDomain.Message{
			SenderID:   rec.SenderID,
			SenderName: rec.SenderName,
			Content:    rec.Content,
			SentAt:     rec.Timestamp,
		}
	}

	return bookingDomain.ReconstructBooking(bookingDomain.Snapshot{
		ID:                 m.ID,
		Code:               m.Code,
		PropertyID:         m.PropertyID,
		RenterID:           m.RenterID,
		OwnerID:            m.OwnerID,
		RenterName:         m.RenterName,
		OwnerName:          m.OwnerName,
		PropertyName:       m.PropertyName,
		Period:             bookingDomain.DateRange{Start: m.StartDate.UTC(), End: m.EndDate.UTC()},
		Status:             status,
		Messages:           messages,
		CancelledAt:        m.CancelledAt,
		CancellationReason: m.CancellationReason,
		CompletedAt:        m.CompletedAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
