package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
)

const reserveBalance = `
UPDATE balances
SET available = available - $2, updated_at = now()
WHERE owner_id = $1 AND available >= $2
RETURNING available
`

// ReserveBalance checks and deducts in one statement. No row means the
// account is missing or cannot cover amount.
func (q *Queries) ReserveBalance(ctx context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var available decimal.Decimal
	err := q.db.QueryRow(ctx, reserveBalance, ownerID, amount).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("reserve balance: %w", err)
	}
	return available, nil
}

const creditBalance = `
INSERT INTO balances (owner_id, available)
VALUES ($1, $2)
ON CONFLICT (owner_id) DO UPDATE
SET available = balances.available + EXCLUDED.available, updated_at = now()
RETURNING available
`

func (q *Queries) CreditBalance(ctx context.Context, ownerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var available decimal.Decimal
	if err := q.db.QueryRow(ctx, creditBalance, ownerID, amount).Scan(&available); err != nil {
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}
	return available, nil
}

const getBalance = `SELECT available FROM balances WHERE owner_id = $1`

func (q *Queries) GetBalance(ctx context.Context, ownerID string) (domain.BalanceAccount, error) {
	acc := domain.BalanceAccount{OwnerID: ownerID, Available: decimal.Zero}
	err := q.db.QueryRow(ctx, getBalance, ownerID).Scan(&acc.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return acc, nil
	}
	if err != nil {
		return domain.BalanceAccount{}, fmt.Errorf("get balance: %w", err)
	}
	return acc, nil
}

const createTransaction = `
INSERT INTO transactions (owner_id, amount, tx_type, description, order_id, task_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
`

func (q *Queries) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := q.db.Exec(ctx, createTransaction,
		tx.OwnerID,
		tx.Amount,
		string(tx.TxType),
		tx.Description,
		tx.OrderID,
		tx.TaskID,
		timeToPgTimestamptz(tx.CreatedAt),
	)
	return err
}
