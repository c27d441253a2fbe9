package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// Customer returns a CustomerRepository using the current executor
func (s *Store) Customer() domain.CustomerRepository {
	return NewCustomerRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. The transaction
// commits when fn returns nil and rolls back on error or panic.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	// Only the pool can begin transactions; a TxWrapper cannot
	db, ok := s.executor.(DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.Internal("failed to begin transaction", err)
	}

	txStore := &Store{
		executor: &TxWrapper{Tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.Internal("failed to commit transaction", err)
	}
	return nil
}
