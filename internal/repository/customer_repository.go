package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type customerRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewCustomerRepository(db SQLExecutor, logger *slog.Logger) domain.CustomerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *customerRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (first_name, last_name, email, phone_number, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := r.db.QueryRowContext(ctx, query,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		nullIfEmpty(customer.PhoneNumber),
		nullIfEmpty(customer.Address),
		now,
	).Scan(&customer.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgUniqueViolation {
			r.logger.Warn("Duplicate customer email", "email", customer.Email)
			return errors.ErrDuplicateCustomer
		}
		r.logger.Error("Failed to create customer", "email", customer.Email, "error", err)
		return errors.Internal("failed to create customer", err)
	}

	customer.CreatedAt = now
	r.logger.Info("Customer created successfully", "customer_id", customer.ID)
	return nil
}

func (r *customerRepository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone_number, address, created_at
		FROM customers WHERE id = $1
	`

	var customer domain.Customer
	var phone, address sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&phone,
		&address,
		&customer.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Customer not found", "customer_id", id)
			return nil, errors.NewAppErrorf(errors.CustomerNotFound, "customer not found with id: %d", id)
		}
		r.logger.Error("Failed to get customer", "customer_id", id, "error", err)
		return nil, errors.Internal("failed to get customer", err)
	}

	customer.PhoneNumber = phone.String
	customer.Address = address.String
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (r *customerRepository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check customer existence", "customer_id", id, "error", err)
		return false, errors.Internal("failed to check customer", err)
	}
	return exists, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
