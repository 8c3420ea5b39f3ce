package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is an issue report attached to an order.
type Ticket struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	OwnerID   string
	Details   string
	CreatedAt time.Time
}
