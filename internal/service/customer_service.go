package service

import (
	"context"
	"log/slog"
	"strings"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// CustomerService is the thin collaborator the ledger checks ownership against.
type CustomerService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewCustomerService(store domain.Store, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		store:  store,
		logger: logger,
	}
}

type CreateCustomerRequest struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
}

func (s *CustomerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*domain.Customer, error) {
	customer := domain.Customer{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Address:     strings.TrimSpace(req.Address),
	}

	if customer.FirstName == "" || customer.LastName == "" || customer.Email == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "first name, last name and email are required")
	}

	if err := s.store.Customer().CreateCustomer(ctx, &customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer created", "customer_id", customer.ID)
	return &customer, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.store.Customer().GetCustomer(ctx, id)
}
