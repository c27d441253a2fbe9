package memory

import (
	"context"
	"log/slog"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type accountRepository struct {
	exec   executor
	logger *slog.Logger
	clock  *clock
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	return r.exec.update(func(st *state) error {
		if _, ok := st.customers[account.CustomerID]; !ok {
			r.logger.Warn("Account owner does not exist", "customer_id", account.CustomerID)
			return errors.NewAppErrorf(errors.CustomerNotFound, "customer not found with id: %d", account.CustomerID)
		}
		if _, ok := st.accountNumbers[account.AccountNumber]; ok {
			r.logger.Warn("Duplicate account number", "account_number", account.AccountNumber)
			return errors.ErrDuplicateAccount
		}

		st.nextAccountID++
		account.ID = st.nextAccountID
		account.CreatedAt = r.clock.Now()
		st.accounts[account.ID] = *account
		st.accountNumbers[account.AccountNumber] = account.ID

		r.logger.Info("Account created successfully", "account_id", account.ID, "account_number", account.AccountNumber)
		return nil
	})
}

func (r *accountRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var out *domain.Account
	err := r.exec.view(func(st *state) error {
		id, ok := st.accountNumbers[accountNumber]
		if !ok {
			r.logger.Warn("Account not found", "account_number", accountNumber)
			return errors.NewAppErrorf(errors.AccountNotFound, "account not found: %s", accountNumber)
		}
		account := st.accounts[id]
		out = &account
		return nil
	})
	return out, err
}

// GetAccountByNumberForUpdate needs no row lock: units of work are already serialized.
func (r *accountRepository) GetAccountByNumberForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.GetAccountByNumber(ctx, accountNumber)
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0)
	err := r.exec.view(func(st *state) error {
		for id := int64(1); id <= st.nextAccountID; id++ {
			if account, ok := st.accounts[id]; ok {
				accounts = append(accounts, &account)
			}
		}
		return nil
	})
	return accounts, err
}

func (r *accountRepository) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0)
	err := r.exec.view(func(st *state) error {
		for id := int64(1); id <= st.nextAccountID; id++ {
			account, ok := st.accounts[id]
			if ok && account.CustomerID == customerID {
				accounts = append(accounts, &account)
			}
		}
		return nil
	})
	return accounts, err
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	return r.exec.update(func(st *state) error {
		current, ok := st.accounts[account.ID]
		if !ok {
			r.logger.Warn("No account found to update", "account_id", account.ID)
			return errors.NewAppErrorf(errors.AccountNotFound, "account not found: %s", account.AccountNumber)
		}

		current.Balance = account.Balance
		current.Status = account.Status
		st.accounts[account.ID] = current

		r.logger.Info("Account updated",
			"account_number", current.AccountNumber,
			"balance", current.Balance,
			"status", current.Status)
		return nil
	})
}
