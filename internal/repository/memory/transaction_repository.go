package memory

import (
	"context"
	"log/slog"
	"sort"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type transactionRepository struct {
	exec   executor
	logger *slog.Logger
	clock  *clock
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.exec.update(func(st *state) error {
		if _, ok := st.accounts[tx.AccountID]; !ok {
			return errors.NewAppErrorf(errors.AccountNotFound, "account not found: %s", tx.AccountNumber)
		}

		st.nextTransactionID++
		tx.ID = st.nextTransactionID
		tx.CreatedAt = r.clock.Now()
		st.transactions[tx.ID] = copyTransaction(*tx)
		st.byAccount[tx.AccountID] = append(st.byAccount[tx.AccountID], tx.ID)

		r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "reference", tx.Reference)
		return nil
	})
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.exec.view(func(st *state) error {
		stored, ok := st.transactions[id]
		if !ok {
			r.logger.Warn("Transaction not found", "transaction_id", id)
			return errors.NewAppErrorf(errors.TransactionNotFound, "transaction not found with id: %d", id)
		}
		tx := copyTransaction(stored)
		out = &tx
		return nil
	})
	return out, err
}

func (r *transactionRepository) ListTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	transactions := make([]*domain.Transaction, 0)
	err := r.exec.view(func(st *state) error {
		for _, id := range st.byAccount[accountID] {
			tx := copyTransaction(st.transactions[id])
			if filter.Matches(&tx) {
				transactions = append(transactions, &tx)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		if !transactions[i].CreatedAt.Equal(transactions[j].CreatedAt) {
			return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
		}
		return transactions[i].ID > transactions[j].ID
	})
	return transactions, nil
}

// copyTransaction detaches the destination pointer so a stored entry cannot be
// changed through a value handed in or out.
func copyTransaction(tx domain.Transaction) domain.Transaction {
	if tx.DestinationAccountNumber != nil {
		destination := *tx.DestinationAccountNumber
		tx.DestinationAccountNumber = &destination
	}
	return tx
}
