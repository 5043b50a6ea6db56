package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/pkg/domain"
)

// Role of a directory entry.
type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleRenter || r == RoleOwner || r == RoleAdmin
}

// User is the local read model of an identity-service account. It only
// carries what bookings and listings need to display.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the fields required for an upsert and normalizes them.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return domain.NewValidationError("user ID is required")
	}
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return domain.NewValidationError("user name is required")
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Role == "" {
		u.Role = RoleRenter
	}
	if !u.Role.IsValid() {
		return domain.NewValidationError("invalid role: " + string(u.Role))
	}
	return nil
}

// Repository stores the user directory.
type Repository interface {
	Upsert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error)
	CountByRole(ctx context.Context) (map[Role]int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
