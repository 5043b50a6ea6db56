package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/pkg/domain"
)

// DefaultCancellationReason is recorded when a renter cancels without a reason.
const DefaultCancellationReason = "Cancelled by renter"

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id         uuid.UUID
	code       string
	propertyID uuid.UUID
	renterID   uuid.UUID
	ownerID    uuid.UUID

	renterName   string
	ownerName    string
	propertyName string

	period   DateRange
	status   BookingStatus
	messages []Message

	cancelledAt        *time.Time
	cancellationReason string
	completedAt        *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingParams carries everything captured when a booking is created.
type NewBookingParams struct {
	PropertyID   uuid.UUID
	RenterID     uuid.UUID
	OwnerID      uuid.UUID
	RenterName   string
	OwnerName    string
	PropertyName string
	Period       DateRange
	Mode         CreationMode
}

// NewBooking creates a new Booking aggregate in the status implied by its mode.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if p.PropertyID == uuid.Nil {
		return nil, domain.NewValidationError("property ID is required")
	}
	if p.RenterID == uuid.Nil {
		return nil, domain.NewValidationError("renter ID is required")
	}
	if p.OwnerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if strings.TrimSpace(p.RenterName) == "" {
		return nil, domain.NewValidationError("renter name is required")
	}
	if _, err := NewDateRange(p.Period.Start, p.Period.End); err != nil {
		return nil, err
	}
	status, ok := p.Mode.InitialStatus()
	if !ok {
		return nil, domain.NewValidationError("invalid booking mode: " + string(p.Mode))
	}

	now := time.Now().UTC()
	code, err := GenerateCode(now)
	if err != nil {
		return nil, err
	}

	return &Booking{
		id:           uuid.New(),
		code:         code,
		propertyID:   p.PropertyID,
		renterID:     p.RenterID,
		ownerID:      p.OwnerID,
		renterName:   strings.TrimSpace(p.RenterName),
		ownerName:    p.OwnerName,
		propertyName: p.PropertyName,
		period:       p.Period,
		status:       status,
		messages:     []Message{},
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Snapshot holds persisted booking state for ReconstructBooking.
type Snapshot struct {
	ID                 uuid.UUID
	Code               string
	PropertyID         uuid.UUID
	RenterID           uuid.UUID
	OwnerID            uuid.UUID
	RenterName         string
	OwnerName          string
	PropertyName       string
	Period             DateRange
	Status             BookingStatus
	Messages           []Message
	CancelledAt        *time.Time
	CancellationReason string
	CompletedAt        *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(s Snapshot) *Booking {
	messages := s.Messages
	if messages == nil {
		messages = []Message{}
	}
	return &Booking{
		id:                 s.ID,
		code:               s.Code,
		propertyID:         s.PropertyID,
		renterID:           s.RenterID,
		ownerID:            s.OwnerID,
		renterName:         s.RenterName,
		ownerName:          s.OwnerName,
		propertyName:       s.PropertyName,
		period:             s.Period,
		status:             s.Status,
		messages:           messages,
		cancelledAt:        s.CancelledAt,
		cancellationReason: s.CancellationReason,
		completedAt:        s.CompletedAt,
		version:            s.Version,
		createdAt:          s.CreatedAt,
		updatedAt:          s.UpdatedAt,
	}
}

// Snapshot exports the booking state for persistence.
func (b *Booking) Snapshot() Snapshot {
	return Snapshot{
		ID:                 b.id,
		Code:               b.code,
		PropertyID:         b.propertyID,
		RenterID:           b.renterID,
		OwnerID:            b.ownerID,
		RenterName:         b.renterName,
		OwnerName:          b.ownerName,
		PropertyName:       b.propertyName,
		Period:             b.period,
		Status:             b.status,
		Messages:           b.Messages(),
		CancelledAt:        b.cancelledAt,
		CancellationReason: b.cancellationReason,
		CompletedAt:        b.completedAt,
		Version:            b.version,
		CreatedAt:          b.createdAt,
		UpdatedAt:          b.updatedAt,
	}
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID            { return b.id }
func (b *Booking) Code() string             { return b.code }
func (b *Booking) PropertyID() uuid.UUID    { return b.propertyID }
func (b *Booking) RenterID() uuid.UUID      { return b.renterID }
func (b *Booking) OwnerID() uuid.UUID       { return b.ownerID }
func (b *Booking) RenterName() string       { return b.renterName }
func (b *Booking) OwnerName() string        { return b.ownerName }
func (b *Booking) PropertyName() string     { return b.propertyName }
func (b *Booking) Period() DateRange        { return b.period }
func (b *Booking) Status() BookingStatus    { return b.status }
func (b *Booking) CancelledAt() *time.Time  { return b.cancelledAt }
func (b *Booking) CompletedAt() *time.Time  { return b.completedAt }
func (b *Booking) Version() int64           { return b.version }
func (b *Booking) CreatedAt() time.Time     { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time     { return b.updatedAt }

// CancellationReason is empty unless the booking was cancelled.
func (b *Booking) CancellationReason() string { return b.cancellationReason }

// Messages returns a copy of the conversation thread in append order.
func (b *Booking) Messages() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// IsRenter reports whether userID made this booking.
func (b *Booking) IsRenter(userID uuid.UUID) bool { return b.renterID == userID }

// IsOwner reports whether userID owns the booked property.
func (b *Booking) IsOwner(userID uuid.UUID) bool { return b.ownerID == userID }

// IsParty reports whether userID is the renter or the owner.
func (b *Booking) IsParty(userID uuid.UUID) bool {
	return b.IsRenter(userID) || b.IsOwner(userID)
}

// Counterparty returns the other party of a conversation started by userID.
func (b *Booking) Counterparty(userID uuid.UUID) uuid.UUID {
	if b.IsRenter(userID) {
		return b.ownerID
	}
	return b.renterID
}

// --- Behavior ---

// Approve transitions the booking from pending to approved.
func (b *Booking) Approve() error {
	return b.transition(StatusApproved)
}

// Reject transitions the booking from pending to rejected.
func (b *Booking) Reject() error {
	return b.transition(StatusRejected)
}

// Cancel transitions an active booking to cancelled. An empty reason records
// DefaultCancellationReason.
func (b *Booking) Cancel(reason string) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancellationReason = reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// Complete transitions an approved booking whose stay is over to completed.
func (b *Booking) Complete(at time.Time) error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	if !b.period.EndedBefore(at) {
		return domain.NewValidationError("stay has not ended yet")
	}
	at = at.UTC()
	b.status = StatusCompleted
	b.completedAt = &at
	b.updatedAt = time.Now().UTC()
	return nil
}

// AppendMessage adds a message from one of the two parties to the thread.
func (b *Booking) AppendMessage(senderID uuid.UUID, senderName, content string) (Message, error) {
	if !b.IsParty(senderID) {
		return Message{}, domain.NewForbiddenError("only the renter or the owner can message on this booking")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, domain.NewValidationError("message content is required")
	}
	msg := Message{
		SenderID:   senderID,
		SenderName: strings.TrimSpace(senderName),
		Content:    content,
		SentAt:     time.Now().UTC(),
	}
	b.messages = append(b.messages, msg)
	b.updatedAt = msg.SentAt
	return msg, nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

func (b *Booking) transition(target BookingStatus) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	b.status = target
	b.updatedAt = time.Now().UTC()
	return nil
}
