package booking

import (
	"time"

	"github.com/rentbridge/service-booking/pkg/domain"
)

// DateRange is the requested stay. End is strictly after Start.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and normalises a stay to UTC.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, domain.NewValidationError("start and end dates are required")
	}
	if !end.After(start) {
		return DateRange{}, domain.NewValidationError("end date must be after start date")
	}
	return DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Nights returns the number of whole days covered, at least one.
func (r DateRange) Nights() int {
	n := int(r.End.Sub(r.Start).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// EndedBefore reports whether the stay is over at t.
func (r DateRange) EndedBefore(t time.Time) bool {
	return r.End.Before(t)
}
