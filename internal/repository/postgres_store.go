package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store on a *sql.DB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Promotions() PromotionStore { return NewPromotionRepo(s.db) }
func (s *PostgresStore) Orders() OrderStore         { return NewOrderRepo(s.db) }

type pgTx struct {
	tx *sql.Tx
}

func (t pgTx) Promotions() PromotionStore { return NewPromotionRepo(t.tx) }
func (t pgTx) Orders() OrderStore         { return &OrderRepo{db: t.tx, lock: true} }

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// ensure rollback on any exit
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}
