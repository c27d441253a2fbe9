package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

const accountColumns = `id, account_number, account_type, balance, status, customer_id, created_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (account_number, account_type, balance, status, customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := r.db.QueryRowContext(
		ctx,
		query,
		account.AccountNumber,
		account.AccountType,
		account.Balance.String(),
		account.Status,
		account.CustomerID,
		now,
	).Scan(&account.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case pgUniqueViolation:
				r.logger.Warn("Duplicate account number", "account_number", account.AccountNumber)
				return errors.ErrDuplicateAccount
			case pgForeignKeyViolation:
				r.logger.Warn("Account owner does not exist", "customer_id", account.CustomerID)
				return errors.NewAppErrorf(errors.CustomerNotFound, "customer not found with id: %d", account.CustomerID)
			}
		}
		r.logger.Error("Failed to create account", "account_number", account.AccountNumber, "error", err)
		return errors.Internal("failed to create account", err)
	}

	account.CreatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID, "account_number", account.AccountNumber)
	return nil
}

func (r *accountRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	return r.getAccount(ctx, query, accountNumber)
}

func (r *accountRepository) GetAccountByNumberForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`

	return r.getAccount(ctx, query, accountNumber)
}

func (r *accountRepository) getAccount(ctx context.Context, query, accountNumber string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_number", accountNumber)
			return nil, errors.NewAppErrorf(errors.AccountNotFound, "account not found: %s", accountNumber)
		}
		r.logger.Error("Failed to get account", "account_number", accountNumber, "error", err)
		return nil, errors.Internal("failed to get account", err)
	}
	return account, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
	return r.queryAccounts(ctx, query)
}

func (r *accountRepository) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY id`
	return r.queryAccounts(ctx, query, customerID)
}

func (r *accountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list accounts", "args", args, "error", err)
		return nil, errors.Internal("failed to list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, errors.Internal("failed to read account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list accounts", err)
	}

	return accounts, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts 
		SET balance = $1, status = $2, updated_at = $3 
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, account.Balance.String(), account.Status, time.Now().UTC(), account.ID)
	if err != nil {
		r.logger.Error("Failed to update account", "account_id", account.ID, "error", err)
		return errors.Internal("failed to update account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", account.ID)
		return errors.NewAppErrorf(errors.AccountNotFound, "account not found: %s", account.AccountNumber)
	}

	r.logger.Info("Account updated",
		"account_number", account.AccountNumber,
		"balance", account.Balance,
		"status", account.Status)
	return nil
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.AccountType,
		&balanceStr,
		&account.Status,
		&account.CustomerID,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, err
	}

	account.Balance = balance
	account.CreatedAt = account.CreatedAt.UTC()
	return &account, nil
}
