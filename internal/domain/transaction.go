package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry owned by exactly one account.
type Transaction struct {
	ID                       int64           `json:"id"`
	Reference                string          `json:"transaction_reference"`
	Type                     TransactionType `json:"type"`
	Amount                   decimal.Decimal `json:"amount"`
	BalanceAfter             decimal.Decimal `json:"balance_after"`
	Description              string          `json:"description"`
	AccountID                int64           `json:"account_id"`
	AccountNumber            string          `json:"account_number"`
	DestinationAccountNumber *string         `json:"destination_account_number,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
}

// NewTransaction records a movement against account; balance-after is the account's
// current (already updated) balance.
func NewTransaction(txType TransactionType, account Account, amount decimal.Decimal, description string) Transaction {
	return Transaction{
		Reference:     NewTransactionReference(),
		Type:          txType,
		Amount:        amount,
		BalanceAfter:  account.Balance,
		Description:   description,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
	}
}

// NewTransactionReference returns "TXN" followed by 32 upper-case hex digits.
func NewTransactionReference() string {
	return "TXN" + strings.ToUpper(hexID())
}

// DateRange is a day-granular, inclusive range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds expands the range to [start 00:00:00, end 23:59:59] in UTC.
func (r DateRange) Bounds() (time.Time, time.Time) {
	sy, sm, sd := r.Start.Date()
	ey, em, ed := r.End.Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ey, em, ed, 23, 59, 59, 0, time.UTC)
	return from, to
}

type TransactionFilter struct {
	Type  *TransactionType
	Range *DateRange
}

// Matches applies the filter to one transaction.
func (f TransactionFilter) Matches(tx *Transaction) bool {
	if f.Type != nil && tx.Type != *f.Type {
		return false
	}
	if f.Range != nil {
		from, to := f.Range.Bounds()
		at := tx.CreatedAt.UTC()
		if at.Before(from) || at.After(to) {
			return false
		}
	}
	return true
}

type TransactionRepository interface {
	// CreateTransaction assigns ID and CreatedAt on success.
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByID(ctx context.Context, id int64) (*Transaction, error)
	// ListTransactions returns the account's entries newest first.
	ListTransactions(ctx context.Context, accountID int64, filter TransactionFilter) ([]*Transaction, error)
}
