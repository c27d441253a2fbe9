package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// maxAccountNumberAttempts bounds retries when a generated account number collides.
const maxAccountNumberAttempts = 5

type AccountService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

type CreateAccountRequest struct {
	CustomerID     int64
	AccountType    domain.AccountType
	InitialDeposit *decimal.Decimal
}

func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account",
		"customer_id", req.CustomerID,
		"account_type", req.AccountType,
		"initial_deposit", req.InitialDeposit)

	if !req.AccountType.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "invalid account type: %q", req.AccountType)
	}

	initialDeposit := decimal.Zero
	if req.InitialDeposit != nil {
		if err := domain.ValidateInitialDeposit(*req.InitialDeposit); err != nil {
			return nil, err
		}
		initialDeposit = *req.InitialDeposit
	}

	exists, err := s.store.Customer().CustomerExists(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewAppErrorf(errors.CustomerNotFound, "customer not found with id: %d", req.CustomerID)
	}

	for attempt := 1; ; attempt++ {
		account := domain.NewAccount(req.CustomerID, req.AccountType, initialDeposit)
		err := s.store.Account().CreateAccount(ctx, &account)
		if err == nil {
			s.logger.Info("Account created successfully",
				"account_id", account.ID,
				"account_number", account.AccountNumber)
			return &account, nil
		}
		if errors.CodeOf(err) != errors.DuplicateAccount || attempt == maxAccountNumberAttempts {
			return nil, err
		}
		s.logger.Warn("Account number collision, regenerating", "attempt", attempt)
	}
}

func (s *AccountService) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	s.logger.Info("Getting account", "account_number", accountNumber)

	return s.store.Account().GetAccountByNumber(ctx, accountNumber)
}

func (s *AccountService) GetBalance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := s.store.Account().GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.store.Account().ListAccounts(ctx)
}

func (s *AccountService) ListCustomerAccounts(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	exists, err := s.store.Customer().CustomerExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewAppErrorf(errors.CustomerNotFound, "customer not found with id: %d", customerID)
	}

	return s.store.Account().ListAccountsByCustomer(ctx, customerID)
}

func (s *AccountService) SuspendAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.transition(ctx, "suspend", accountNumber, domain.Account.Suspend)
}

func (s *AccountService) ActivateAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.transition(ctx, "activate", accountNumber, domain.Account.Activate)
}

func (s *AccountService) CloseAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.transition(ctx, "close", accountNumber, domain.Account.Close)
}

// transition loads the account under lock, applies a status change and persists it.
func (s *AccountService) transition(
	ctx context.Context,
	action string,
	accountNumber string,
	apply func(domain.Account) (domain.Account, error),
) (*domain.Account, error) {
	s.logger.Info("Changing account status", "action", action, "account_number", accountNumber)

	var updated domain.Account
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := tx.Account().GetAccountByNumberForUpdate(ctx, accountNumber)
		if err != nil {
			return err
		}

		next, err := apply(*account)
		if err != nil {
			return err
		}

		if err := tx.Account().UpdateAccount(ctx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		s.logger.Warn("Account status change rejected", "action", action, "account_number", accountNumber, "error", err)
		return nil, err
	}

	s.logger.Info("Account status changed", "action", action, "account_number", accountNumber, "status", updated.Status)
	return &updated, nil
}
