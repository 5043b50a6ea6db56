package application

import (
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/auth"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the caller has the admin role.
func (c Caller) IsAdmin() bool { return c.Role == auth.RoleAdmin }

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	PropertyID uuid.UUID `json:"property_id" binding:"required"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
	UserName   string    `json:"user_name"`
	OwnerName  string    `json:"owner_name"`
}

// CancelBookingRequest carries an optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// AppendMessageRequest is a new thread message.
type AppendMessageRequest struct {
	Content    string `json:"content" binding:"required"`
	SenderName string `json:"sender_name"`
}

// PropertyRequest is the body of create and update listing calls.
type PropertyRequest struct {
	Title             string   `json:"title" binding:"required"`
	PropertyType      string   `json:"property_type" binding:"required"`
	AdvertisementType string   `json:"advertisement_type"`
	Address           string   `json:"address" binding:"required"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	OwnerContact      string   `json:"owner_contact"`
	RentCents         int64    `json:"rent_cents" binding:"min=0"`
	Images            []string `json:"images"`
	Description       string   `json:"description"`
}

// ToListing converts the request into domain listing attributes.
func (r PropertyRequest) ToListing() propertyDomain.Listing {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return propertyDomain.Listing{
		Title:             r.Title,
		PropertyType:      r.PropertyType,
		AdvertisementType: r.AdvertisementType,
		Address:           r.Address,
		City:              r.City,
		State:             r.State,
		OwnerContact:      r.OwnerContact,
		RentCents:         r.RentCents,
		Images:            images,
		Description:       r.Description,
	}
}

// MessageDTO is one thread message.
type MessageDTO struct {
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID    `json:"id"`
	Code               string       `json:"code"`
	PropertyID         uuid.UUID    `json:"property_id"`
	RenterID           uuid.UUID    `json:"user_id"`
	OwnerID            uuid.UUID    `json:"owner_id"`
	RenterName         string       `json:"user_name"`
	OwnerName          string       `json:"owner_name"`
	PropertyName       string       `json:"property_name"`
	StartDate          time.Time    `json:"start_date"`
	EndDate            time.Time    `json:"end_date"`
	Nights             int          `json:"nights"`
	Status             string       `json:"status"`
	Messages           []MessageDTO `json:"messages"`
	CancelledAt        *time.Time   `json:"cancelled_at,omitempty"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	Version            int64        `json:"version"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// PropertySummary is the listing data embedded in booking views.
type PropertySummary struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	RentCents int64     `json:"rent_cents"`
	Images    []string  `json:"images"`
	Status    string    `json:"status"`
}

// PartySummary is the contact data of a renter or owner.
type PartySummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// BookingView is a booking joined with its property and both parties.
type BookingView struct {
	BookingDTO
	Property *PropertySummary `json:"property,omitempty"`
	Renter   PartySummary     `json:"renter"`
	Owner    PartySummary     `json:"owner"`
}

// PropertyDTO is the response representation of a listing.
type PropertyDTO struct {
	ID                uuid.UUID `json:"id"`
	Code              string    `json:"code"`
	OwnerID           uuid.UUID `json:"owner_id"`
	Title             string    `json:"title"`
	PropertyType      string    `json:"property_type"`
	AdvertisementType string    `json:"advertisement_type"`
	Address           string    `json:"address"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	OwnerContact      string    `json:"owner_contact"`
	RentCents         int64     `json:"rent_cents"`
	Images            []string  `json:"images"`
	Description       string    `json:"description"`
	Status            string    `json:"status"`
	Version           int64     `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FavoriteStatusDTO reports whether a property is on the caller's wishlist.
type FavoriteStatusDTO struct {
	PropertyID uuid.UUID `json:"property_id"`
	IsFavorite bool      `json:"is_favorite"`
}

// StatsDTO is the admin dashboard summary.
type StatsDTO struct {
	Owners           int64            `json:"owners"`
	Renters          int64            `json:"renters"`
	Properties       int64            `json:"properties"`
	Bookings         int64            `json:"bookings"`
	BookingsByStatus map[string]int64 `json:"bookings_by_status"`
}

func toBookingDTO(b *bookingDomain.Booking) *BookingDTO {
	msgs := b.Messages()
	out := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = MessageDTO{SenderID: m.SenderID, SenderName: m.SenderName, Content: m.Content, Timestamp: m.SentAt}
	}
	return &BookingDTO{
		ID:                 b.ID(),
		Code:               b.Code(),
		PropertyID:         b.PropertyID(),
		RenterID:           b.RenterID(),
		OwnerID:            b.OwnerID(),
		RenterName:         b.RenterName(),
		OwnerName:          b.OwnerName(),
		PropertyName:       b.PropertyName(),
		StartDate:          b.Period().Start,
		EndDate:            b.Period().End,
		Nights:             b.Period().Nights(),
		Status:             b.Status().String(),
		Messages:           out,
		CancelledAt:        b.CancelledAt(),
		CancellationReason: b.CancellationReason(),
		CompletedAt:        b.CompletedAt(),
		Version:            b.Version(),
		CreatedAt:          b.CreatedAt(),
		UpdatedAt:          b.UpdatedAt(),
	}
}

func toPropertyDTO(p *propertyDomain.Property) *PropertyDTO {
	l := p.Listing()
	return &PropertyDTO{
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
		Images:            l.Images,
		Description:       l.Description,
		Status:            p.Status().String(),
		Version:           p.Version(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}
}

func toPropertySummary(p *propertyDomain.Property) *PropertySummary {
	l := p.Listing()
	return &PropertySummary{
		ID:        p.ID(),
		Code:      p.Code(),
		Title:     l.Title,
		Address:   l.Address,
		City:      l.City,
		State:     l.State,
		RentCents: l.RentCents,
		Images:    l.Images,
		Status:    p.Status().String(),
	}
}

func toPartySummary(id uuid.UUID, fallbackName string, u *userDomain.User) PartySummary {
	if u == nil {
		return PartySummary{ID: id, Name: fallbackName}
	}
	return PartySummary{ID: id, Name: u.Name, Email: u.Email}
}
