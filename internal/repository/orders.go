package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/boostly/internal/domain"
)

const createOrder = `
INSERT INTO orders (id, batch_id, owner_id, platform, speed_tier, payment_method, status, failure_reason, amount, repeat_of, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const createOrderLine = `
INSERT INTO order_lines (order_id, line_index, service_id, target_url, quantity, unit_price, discount, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// CreateOrder inserts the order and its lines. Run it inside a
// transaction so a partial order is never visible.
func (q *Queries) CreateOrder(ctx context.Context, o *domain.Order) error {
	if _, err := q.db.Exec(ctx, createOrder,
		o.ID,
		o.BatchID,
		o.OwnerID,
		string(o.Platform),
		string(o.SpeedTier),
		string(o.PaymentMethod),
		string(o.Status),
		o.FailureReason,
		o.Amount,
		o.RepeatOf,
		timeToPgTimestamptz(o.CreatedAt),
		timeToPgTimestamptz(o.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, l := range o.Lines {
		if _, err := q.db.Exec(ctx, createOrderLine,
			o.ID, i, l.ServiceID, l.TargetURL, l.Quantity, l.UnitPrice, l.Discount, l.LineTotal,
		); err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}
	return nil
}

const orderColumns = `id, batch_id, owner_id, platform, speed_tier, payment_method, status, failure_reason, amount, repeat_of, created_at, updated_at`

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, getOrder, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Lines, err = q.orderLines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

// GetOrderForUpdate locks the order row without loading its lines.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

const listBatchOrders = `SELECT ` + orderColumns + ` FROM orders WHERE batch_id = $1 ORDER BY created_at, id`

func (q *Queries) ListBatchOrders(ctx context.Context, batchID uuid.UUID) ([]*domain.Order, error) {
	rows, err := q.db.Query(ctx, listBatchOrders, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list batch orders: %w", err)
	}
	rows.Close()

	for _, o := range orders {
		if o.Lines, err = q.orderLines(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

const listOrderLines = `
SELECT service_id, target_url, quantity, unit_price, discount, line_total
FROM order_lines
WHERE order_id = $1
ORDER BY line_index
`

func (q *Queries) orderLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ServiceID, &l.TargetURL, &l.Quantity, &l.UnitPrice, &l.Discount, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const transitionOrder = `
UPDATE orders
SET status = $3, failure_reason = $4, updated_at = $5
WHERE id = $1 AND status = $2
`

func (q *Queries) TransitionOrder(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, reason string, at time.Time) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	tag, err := q.db.Exec(ctx, transitionOrder, id, string(from), string(to), reason, timeToPgTimestamptz(at))
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                domain.Order
		platform, tier   string
		method, status   string
		createdAt, updAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&o.ID,
		&o.BatchID,
		&o.OwnerID,
		&platform,
		&tier,
		&method,
		&status,
		&o.FailureReason,
		&o.Amount,
		&o.RepeatOf,
		&createdAt,
		&updAt,
	); err != nil {
		return nil, err
	}
	o.Platform = domain.Platform(platform)
	o.SpeedTier = domain.SpeedTier(tier)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = pgTimestamptzToTime(createdAt)
	o.UpdatedAt = pgTimestamptzToTime(updAt)
	return &o, nil
}
