package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

const transactionColumns = `
	t.id, t.transaction_reference, t.type, t.amount, t.balance_after, t.description,
	t.account_id, a.account_number, t.destination_account_number, t.created_at`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(transaction_reference, type, amount, balance_after, description, account_id, destination_account_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now().UTC().Truncate(time.Microsecond)

	// Handle optional destination account
	var destination interface{}
	if tx.DestinationAccountNumber != nil {
		destination = *tx.DestinationAccountNumber
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		tx.Reference,
		tx.Type,
		tx.Amount.String(),
		tx.BalanceAfter.String(),
		tx.Description,
		tx.AccountID,
		destination,
		now,
	).Scan(&tx.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgUniqueViolation {
			r.logger.Warn("Duplicate transaction reference", "reference", tx.Reference)
		}
		r.logger.Error("Failed to create transaction",
			"account_id", tx.AccountID,
			"type", tx.Type,
			"amount", tx.Amount,
			"error", err)
		return errors.Internal("failed to create transaction", err)
	}

	tx.CreatedAt = now
	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "reference", tx.Reference)
	return nil
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Transaction not found", "transaction_id", id)
			return nil, errors.NewAppErrorf(errors.TransactionNotFound, "transaction not found with id: %d", id)
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Internal("failed to get transaction", err)
	}
	return tx, nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query, args := buildListQuery(accountID, filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, errors.Internal("failed to list transactions", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "account_id", accountID, "error", err)
			return nil, errors.Internal("failed to read transaction", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list transactions", err)
	}

	return transactions, nil
}

func buildListQuery(accountID int64, filter domain.TransactionFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + `
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE t.account_id = $1`)
	args := []interface{}{accountID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		fmt.Fprintf(&sb, " AND t.type = $%d", len(args))
	}

	if filter.Range != nil {
		from, to := filter.Range.Bounds()
		args = append(args, from, to)
		fmt.Fprintf(&sb, " AND t.created_at BETWEEN $%d AND $%d", len(args)-1, len(args))
	}

	sb.WriteString(" ORDER BY t.created_at DESC, t.id DESC")
	return sb.String(), args
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr, balanceAfterStr string
	var description, destination sql.NullString

	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.Type,
		&amountStr,
		&balanceAfterStr,
		&description,
		&tx.AccountID,
		&tx.AccountNumber,
		&destination,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if tx.BalanceAfter, err = decimal.NewFromString(balanceAfterStr); err != nil {
		return nil, fmt.Errorf("parse balance_after: %w", err)
	}

	tx.Description = description.String
	if destination.Valid {
		value := destination.String
		tx.DestinationAccountNumber = &value
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	return &tx, nil
}
