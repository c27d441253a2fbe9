package memory

import (
	"context"
	"log/slog"
	"strings"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type customerRepository struct {
	exec   executor
	logger *slog.Logger
	clock  *clock
}

func (r *customerRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	return r.exec.update(func(st *state) error {
		email := strings.ToLower(customer.Email)
		if _, ok := st.customerEmails[email]; ok {
			r.logger.Warn("Duplicate customer email", "email", customer.Email)
			return errors.ErrDuplicateCustomer
		}

		st.nextCustomerID++
		customer.ID = st.nextCustomerID
		customer.CreatedAt = r.clock.Now()
		st.customers[customer.ID] = *customer
		st.customerEmails[email] = customer.ID

		r.logger.Info("Customer created successfully", "customer_id", customer.ID)
		return nil
	})
}

func (r *customerRepository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.exec.view(func(st *state) error {
		customer, ok := st.customers[id]
		if !ok {
			r.logger.Warn("Customer not found", "customer_id", id)
			return errors.NewAppErrorf(errors.CustomerNotFound, "customer not found with id: %d", id)
		}
		out = &customer
		return nil
	})
	return out, err
}

func (r *customerRepository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.exec.view(func(st *state) error {
		_, exists = st.customers[id]
		return nil
	})
	return exists, err
}
