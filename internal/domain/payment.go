package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment is a settle-up transfer that actually happened between two members
type Payment struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	Transfer  Transfer
	Note      string
	CreatedAt time.Time
}
