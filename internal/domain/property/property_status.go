package property

import "fmt"

// Status is the availability of a listing as seen by renters.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusBooked    Status = "booked"
)

// IsValid returns true if the status is a recognized property status.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusBooked:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string { return string(s) }

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid property status: %s", s)
	}
	return status, nil
}

// StatusFromBookings derives the status implied by a property's active
// bookings. An approved booking wins over a pending one.
func StatusFromBookings(hasApproved, hasPending bool) Status {
	switch {
	case hasApproved:
		return StatusBooked
	case hasPending:
		return StatusPending
	default:
		return StatusAvailable
	}
}
