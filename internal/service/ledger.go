package service

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerService owns balance reservation, release and payouts. Every
// mutation is journaled in the same unit of work.
type LedgerService struct {
	store Store
	now   func() time.Time
}

func NewLedgerService(store Store) *LedgerService {
	return &LedgerService{store: store, now: time.Now}
}

// SetClock replaces the time source.
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// Reserve atomically deducts amount from the owner's balance.
func (s *LedgerService) Reserve(ctx context.Context, ownerID string, amount decimal.Decimal, ref domain.LedgerRef) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := s.store.WithinTx(ctx, func(r Repository) error {
		var err error
		newBalance, err = s.reserveWith(ctx, r, ownerID, amount, ref)
		return err
	})
	return newBalance, err
}

// Release returns a previous reservation to the owner.
func (s *LedgerService) Release(ctx context.Context, ownerID string, amount decimal.Decimal, ref domain.LedgerRef) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := s.store.WithinTx(ctx, func(r Repository) error {
		var err error
		newBalance, err = s.creditWith(ctx, r, ownerID, amount, ref)
		return err
	})
	return newBalance, err
}

// Credit adds funds to the owner's balance.
func (s *LedgerService) Credit(ctx context.Context, ownerID string, amount decimal.Decimal, ref domain.LedgerRef) (decimal.Decimal, error) {
	return s.Release(ctx, ownerID, amount, ref)
}

func (s *LedgerService) Balance(ctx context.Context, ownerID string) (domain.BalanceAccount, error) {
	acc, err := s.store.GetBalance(ctx, ownerID)
	if err != nil {
		return domain.BalanceAccount{}, fmt.Errorf("get balance: %w", err)
	}
	return acc, nil
}

func (s *LedgerService) reserveWith(ctx context.Context, r Repository, ownerID string, amount decimal.Decimal, ref domain.LedgerRef) (decimal.Decimal, error) {
	amount = domain.Settle(amount)
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	newBalance, err := r.ReserveBalance(ctx, ownerID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := r.CreateTransaction(ctx, domain.Transaction{
		OwnerID:     ownerID,
		Amount:      amount.Neg(),
		TxType:      domain.TxTypeDebit,
		Description: ref.Description,
		OrderID:     ref.OrderID,
		TaskID:      ref.TaskID,
		CreatedAt:   s.now(),
	}); err != nil {
		return decimal.Zero, fmt.Errorf("create transaction: %w", err)
	}
	return newBalance, nil
}

func (s *LedgerService) creditWith(ctx context.Context, r Repository, ownerID string, amount decimal.Decimal, ref domain.LedgerRef) (decimal.Decimal, error) {
	amount = domain.Settle(amount)
	if amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	newBalance, err := r.CreditBalance(ctx, ownerID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	if amount.IsZero() {
		return newBalance, nil
	}

	if err := r.CreateTransaction(ctx, domain.Transaction{
		OwnerID:     ownerID,
		Amount:      amount,
		TxType:      domain.TxTypeCredit,
		Description: ref.Description,
		OrderID:     ref.OrderID,
		TaskID:      ref.TaskID,
		CreatedAt:   s.now(),
	}); err != nil {
		return decimal.Zero, fmt.Errorf("create transaction: %w", err)
	}
	return newBalance, nil
}
