// Package contracts holds the topics, event types and payloads this service
// exchanges with the rest of the marketplace.
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies this service in published CloudEvents.
const Source = "service-booking"

// Topics.
const (
	TopicBookingEvents  = "booking.events"
	TopicPropertyEvents = "property.events"
	TopicUserEvents     = "user.events"
)

// Booking event types.
const (
	BookingRequested    = "booking.requested"
	BookingConfirmed    = "booking.confirmed"
	BookingApproved     = "booking.approved"
	BookingRejected     = "booking.rejected"
	BookingCancelled    = "booking.cancelled"
	BookingCompleted    = "booking.completed"
	BookingDeleted      = "booking.deleted"
	BookingMessageAdded = "booking.message_added"
)

// Property event types.
const (
	PropertyListed   = "property.listed"
	PropertyUpdated  = "property.updated"
	PropertyDelisted = "property.delisted"
)

// User event types consumed from the identity service.
const (
	UserRegistered = "user.registered"
	UserUpdated    = "user.updated"
	UserDeleted    = "user.deleted"
)

// BookingEvent is the payload of every booking lifecycle event.
type BookingEvent struct {
	BookingID          uuid.UUID `json:"booking_id"`
	BookingCode        string    `json:"booking_code"`
	PropertyID         uuid.UUID `json:"property_id"`
	PropertyName       string    `json:"property_name"`
	RenterID           uuid.UUID `json:"renter_id"`
	OwnerID            uuid.UUID `json:"owner_id"`
	Status             string    `json:"status"`
	PropertyStatus     string    `json:"property_status,omitempty"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// BookingMessageEvent notifies the recipient of a new thread message.
type BookingMessageEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	BookingCode string    `json:"booking_code"`
	SenderID    uuid.UUID `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PropertyEvent is the payload of listing events.
type PropertyEvent struct {
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyCode string    `json:"property_code"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// UserEvent is the payload published by the identity service.
type UserEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}
