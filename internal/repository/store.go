package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/boostly/internal/service"
)

type Store struct {
	*Queries
	db *pgxpool.Pool
}

var _ service.Store = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{Queries: New(db), db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(service.Repository) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
