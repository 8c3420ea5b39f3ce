package repository

import (
	"context"
	"fmt"

	"github.com/set-night/boostly/internal/domain"
)

const createTicket = `
INSERT INTO tickets (id, order_id, owner_id, details, created_at)
VALUES ($1, $2, $3, $4, $5)
`

func (q *Queries) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	if _, err := q.db.Exec(ctx, createTicket, t.ID, t.OrderID, t.OwnerID, t.Details, timeToPgTimestamptz(t.CreatedAt)); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}
