package booking

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry of a booking's conversation thread.
type Message struct {
	SenderID   uuid.UUID
	SenderName string
	Content    string
	SentAt     time.Time
}
