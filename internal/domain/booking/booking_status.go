package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	// StatusConfirmed is a legacy value. Nothing produces it and nothing leaves it.
	StatusConfirmed BookingStatus = "confirmed"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCancelled, StatusCompleted},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusCompleted: {},
	StatusConfirmed: {},
}

// ActiveStatuses are the statuses that hold a property.
var ActiveStatuses = []BookingStatus{StatusPending, StatusApproved}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsActive reports whether a booking in this status occupies its property.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

// CanBeCancelled returns true if the booking can be cancelled from this status.
func (s BookingStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// CreationMode selects the initial status of a new booking.
type CreationMode string

const (
	// ModeRequest creates a pending booking that awaits the owner's decision.
	ModeRequest CreationMode = "REQUEST"
	// ModeDirect creates an approved booking immediately.
	ModeDirect CreationMode = "DIRECT"
)

// InitialStatus returns the status a booking starts in for this mode.
func (m CreationMode) InitialStatus() (BookingStatus, bool) {
	switch m {
	case ModeRequest:
		return StatusPending, true
	case ModeDirect:
		return StatusApproved, true
	}
	return "", false
}
