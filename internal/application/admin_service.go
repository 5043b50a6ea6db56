package application

import (
	"context"
	"fmt"

	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
)

// AdminService serves the admin dashboard.
type AdminService struct {
	bookings   bookingDomain.BookingRepository
	properties propertyDomain.PropertyRepository
	users      userDomain.Repository
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	bookings bookingDomain.BookingRepository,
	properties propertyDomain.PropertyRepository,
	users userDomain.Repository,
) *AdminService {
	return &AdminService{bookings: bookings, properties: properties, users: users}
}

// Stats counts users by role, properties and bookings by status.
func (s *AdminService) Stats(ctx context.Context) (*StatsDTO, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	properties, err := s.properties.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}
	byStatus, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}

	stats := &StatsDTO{
		Owners:           byRole[userDomain.RoleOwner],
		Renters:          byRole[userDomain.RoleRenter],
		Properties:       properties,
		BookingsByStatus: byStatus,
	}
	for _, n := range byStatus {
		stats.Bookings += n
	}
	return stats, nil
}
