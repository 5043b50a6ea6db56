package property

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/pkg/domain"
)

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Listing is the owner-editable part of a property.
type Listing struct {
	Title             string
	PropertyType      string
	AdvertisementType string
	Address           string
	City              string
	State             string
	OwnerContact      string
	RentCents         int64
	Images            []string
	Description       string
}

func (l Listing) normalize() (Listing, error) {
	l.Title = strings.TrimSpace(l.Title)
	l.PropertyType = strings.TrimSpace(l.PropertyType)
	l.AdvertisementType = strings.TrimSpace(l.AdvertisementType)
	l.Address = strings.TrimSpace(l.Address)
	l.City = strings.TrimSpace(l.City)
	l.State = strings.TrimSpace(l.State)
	l.OwnerContact = strings.TrimSpace(l.OwnerContact)
	l.Description = strings.TrimSpace(l.Description)

	if l.Title == "" {
		return Listing{}, domain.NewValidationError("title is required")
	}
	if l.PropertyType == "" {
		return Listing{}, domain.NewValidationError("property type is required")
	}
	if l.Address == "" {
		return Listing{}, domain.NewValidationError("address is required")
	}
	if l.RentCents < 0 {
		return Listing{}, domain.NewValidationError("rent amount cannot be negative")
	}
	l.Images = sanitizeImages(l.Images)
	return l, nil
}

// sanitizeImages keeps only remote URLs and inline image data.
func sanitizeImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if strings.HasPrefix(img, "http") || strings.HasPrefix(img, "data:image") {
			out = append(out, img)
		}
	}
	return out
}

// Property is the aggregate root for a rental listing.
type Property struct {
	id        uuid.UUID
	code      string
	ownerID   uuid.UUID
	listing   Listing
	status    Status
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// GenerateCode creates a public property code in the format "PR-XXXXXXXX".
func GenerateCode() (string, error) {
	result := make([]byte, 8)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate property code: %w", err)
		}
		result[i] = codeChars[n.Int64()]
	}
	return "PR-" + string(result), nil
}

// NewProperty creates an available listing owned by ownerID.
func NewProperty(ownerID uuid.UUID, listing Listing) (*Property, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	l, err := listing.normalize()
	if err != nil {
		return nil, err
	}
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Property{
		id:        uuid.New(),
		code:      code,
		ownerID:   ownerID,
		listing:   l,
		status:    StatusAvailable,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructProperty rebuilds a Property from persistence data (no validation).
func ReconstructProperty(
	id uuid.UUID,
	code string,
	ownerID uuid.UUID,
	listing Listing,
	status Status,
	version int64,
	createdAt, updatedAt time.Time,
) *Property {
	if listing.Images == nil {
		listing.Images = []string{}
	}
	return &Property{
		id:        id,
		code:      code,
		ownerID:   ownerID,
		listing:   listing,
		status:    status,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the storage identifier.
func (p *Property) ID() uuid.UUID { return p.id }

// Code returns the public property code.
func (p *Property) Code() string { return p.code }

// OwnerID returns the listing owner's user ID.
func (p *Property) OwnerID() uuid.UUID { return p.ownerID }

// Listing returns the editable listing attributes.
func (p *Property) Listing() Listing {
	l := p.listing
	l.Images = make([]string, len(p.listing.Images))
	copy(l.Images, p.listing.Images)
	return l
}

// Status returns the current availability.
func (p *Property) Status() Status { return p.status }

// Version returns the entity version for optimistic locking.
func (p *Property) Version() int64 { return p.version }

// CreatedAt returns the creation timestamp.
func (p *Property) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (p *Property) UpdatedAt() time.Time { return p.updatedAt }

// DisplayName is the title, or the address when the title is blank.
func (p *Property) DisplayName() string {
	if p.listing.Title != "" {
		return p.listing.Title
	}
	return p.listing.Address
}

// IsOwnedBy reports whether userID owns the listing.
func (p *Property) IsOwnedBy(userID uuid.UUID) bool { return p.ownerID == userID }

// IsAvailable reports whether new bookings may be placed.
func (p *Property) IsAvailable() bool { return p.status == StatusAvailable }

// UpdateListing replaces the editable attributes. Status is untouched.
func (p *Property) UpdateListing(listing Listing) error {
	l, err := listing.normalize()
	if err != nil {
		return err
	}
	p.listing = l
	p.updatedAt = time.Now().UTC()
	return nil
}

// SetStatus records the availability derived by the booking lifecycle. It
// reports whether the status changed.
func (p *Property) SetStatus(status Status) bool {
	if p.status == status {
		return false
	}
	p.status = status
	p.updatedAt = time.Now().UTC()
	return true
}

// IncrementVersion bumps the version for optimistic locking.
func (p *Property) IncrementVersion() {
	p.version++
	p.updatedAt = time.Now().UTC()
}
