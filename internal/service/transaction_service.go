package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

const (
	defaultDepositDescription    = "Deposit"
	defaultWithdrawalDescription = "Withdrawal"
	defaultTransferDescription   = "Transfer"
)

type TransactionService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewTransactionService(store domain.Store, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		logger: logger,
	}
}

type MovementRequest struct {
	AccountNumber string
	Amount        decimal.Decimal
	Description   *string
}

type TransferRequest struct {
	SourceAccountNumber      string
	DestinationAccountNumber string
	Amount                   decimal.Decimal
	Description              *string
}

func (s *TransactionService) Deposit(ctx context.Context, req MovementRequest) (*domain.Transaction, error) {
	return s.applyMovement(ctx, domain.TransactionTypeDeposit, req, defaultDepositDescription, domain.Account.Credit)
}

func (s *TransactionService) Withdraw(ctx context.Context, req MovementRequest) (*domain.Transaction, error) {
	return s.applyMovement(ctx, domain.TransactionTypeWithdrawal, req, defaultWithdrawalDescription, domain.Account.Debit)
}

// applyMovement changes one account's balance and records the entry in one unit of work.
func (s *TransactionService) applyMovement(
	ctx context.Context,
	txType domain.TransactionType,
	req MovementRequest,
	defaultDescription string,
	apply func(domain.Account, decimal.Decimal) (domain.Account, error),
) (*domain.Transaction, error) {
	s.logger.Info("Processing movement",
		"type", txType,
		"account_number", req.AccountNumber,
		"amount", req.Amount)

	var recorded domain.Transaction
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := tx.Account().GetAccountByNumberForUpdate(ctx, req.AccountNumber)
		if err != nil {
			return err
		}

		next, err := apply(*account, req.Amount)
		if err != nil {
			return err
		}

		if err := tx.Account().UpdateAccount(ctx, &next); err != nil {
			return err
		}

		entry := domain.NewTransaction(txType, next, req.Amount, describe(req.Description, defaultDescription))
		if err := tx.Transaction().CreateTransaction(ctx, &entry); err != nil {
			return err
		}

		recorded = entry
		return nil
	})
	if err != nil {
		s.logFailure("Movement failed", err, "type", txType, "account_number", req.AccountNumber)
		return nil, err
	}

	s.logger.Info("Movement completed",
		"type", txType,
		"transaction_id", recorded.ID,
		"reference", recorded.Reference,
		"balance_after", recorded.BalanceAfter)
	return &recorded, nil
}

// Transfer moves money between two accounts and records one entry per side,
// outgoing first. Both accounts are locked in account-number order so that
// opposite transfers between the same pair cannot deadlock.
func (s *TransactionService) Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, *domain.Transaction, error) {
	s.logger.Info("Processing transfer",
		"source_account_number", req.SourceAccountNumber,
		"destination_account_number", req.DestinationAccountNumber,
		"amount", req.Amount)

	if req.SourceAccountNumber == req.DestinationAccountNumber {
		return nil, nil, errors.ErrSameAccountTransfer
	}

	var outgoing, incoming domain.Transaction
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		locked, err := lockAccounts(ctx, tx.Account(), req.SourceAccountNumber, req.DestinationAccountNumber)
		if err != nil {
			return err
		}

		source, destination := locked[0], locked[1]
		if source.err != nil {
			return source.err
		}
		if err := source.account.EnsureActive(); err != nil {
			return err
		}
		if destination.err != nil {
			return destination.err
		}
		if err := destination.account.EnsureActive(); err != nil {
			return err
		}
		if err := domain.ValidateAmount(req.Amount); err != nil {
			return err
		}

		newSource, err := source.account.Debit(req.Amount)
		if err != nil {
			return err
		}
		newDestination, err := destination.account.Credit(req.Amount)
		if err != nil {
			return err
		}

		if err := tx.Account().UpdateAccount(ctx, &newSource); err != nil {
			return err
		}
		if err := tx.Account().UpdateAccount(ctx, &newDestination); err != nil {
			return err
		}

		description := describe(req.Description, defaultTransferDescription)

		outgoing = domain.NewTransaction(domain.TransactionTypeTransfer, newSource, req.Amount,
			description+" to "+newDestination.AccountNumber)
		outgoing.DestinationAccountNumber = stringPtr(newDestination.AccountNumber)

		incoming = domain.NewTransaction(domain.TransactionTypeTransfer, newDestination, req.Amount,
			description+" from "+newSource.AccountNumber)
		incoming.DestinationAccountNumber = stringPtr(newSource.AccountNumber)

		if err := tx.Transaction().CreateTransaction(ctx, &outgoing); err != nil {
			return err
		}
		return tx.Transaction().CreateTransaction(ctx, &incoming)
	})
	if err != nil {
		s.logFailure("Transfer failed", err,
			"source_account_number", req.SourceAccountNumber,
			"destination_account_number", req.DestinationAccountNumber)
		return nil, nil, err
	}

	s.logger.Info("Transfer completed successfully",
		"outgoing_transaction_id", outgoing.ID,
		"incoming_transaction_id", incoming.ID)
	return &outgoing, &incoming, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, accountNumber string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	account, err := s.store.Account().GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if filter.Type != nil && !filter.Type.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "invalid transaction type: %q", *filter.Type)
	}

	return s.store.Transaction().ListTransactions(ctx, account.ID, filter)
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.store.Transaction().GetTransactionByID(ctx, id)
}

func (s *TransactionService) logFailure(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.IsNotFound(err) || errors.IsInvalidOperation(err) {
		s.logger.Warn(msg, args...)
		return
	}
	s.logger.Error(msg, args...)
}

type lockedAccount struct {
	account domain.Account
	err     error
}

// lockAccounts locks the given accounts in ascending account-number order and
// returns them in argument order. A missing account is reported per entry so
// the caller decides precedence; any other store error aborts.
func lockAccounts(ctx context.Context, repo domain.AccountRepository, numbers ...string) ([]lockedAccount, error) {
	order := make([]int, len(numbers))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return numbers[order[a]] < numbers[order[b]] })

	out := make([]lockedAccount, len(numbers))
	for _, i := range order {
		account, err := repo.GetAccountByNumberForUpdate(ctx, numbers[i])
		if err != nil {
			if !errors.IsNotFound(err) {
				return nil, err
			}
			out[i].err = err
			continue
		}
		out[i].account = *account
	}
	return out, nil
}

func describe(description *string, fallback string) string {
	if description == nil {
		return fallback
	}
	return *description
}

func stringPtr(s string) *string {
	return &s
}
