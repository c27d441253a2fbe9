package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/errors"
)

type AccountType string

const (
	AccountTypeSavings AccountType = "SAVINGS"
	AccountTypeCurrent AccountType = "CURRENT"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeCurrent
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusClosed    AccountStatus = "CLOSED"
)

// Account is a value; state changes produce a new Account and never touch the receiver.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	AccountType   AccountType     `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	CustomerID    int64           `json:"customer_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewAccount builds an ACTIVE account with a freshly generated number.
func NewAccount(customerID int64, accountType AccountType, initialDeposit decimal.Decimal) Account {
	return Account{
		AccountNumber: NewAccountNumber(),
		AccountType:   accountType,
		Balance:       initialDeposit,
		Status:        AccountStatusActive,
		CustomerID:    customerID,
	}
}

// EnsureActive gates money movement on the ACTIVE status.
func (a Account) EnsureActive() error {
	if a.Status != AccountStatusActive {
		return errors.NewAppErrorf(errors.AccountNotActive,
			"account %s is not active: status %s", a.AccountNumber, a.Status)
	}
	return nil
}

func (a Account) Suspend() (Account, error) {
	if a.Status == AccountStatusClosed {
		return a, errors.NewAppError(errors.AccountClosed, "cannot suspend a closed account")
	}
	a.Status = AccountStatusSuspended
	return a, nil
}

func (a Account) Activate() (Account, error) {
	if a.Status == AccountStatusClosed {
		return a, errors.NewAppError(errors.AccountClosed, "cannot activate a closed account")
	}
	a.Status = AccountStatusActive
	return a, nil
}

// Close is terminal and only allowed on an exactly zero balance.
func (a Account) Close() (Account, error) {
	if a.Status == AccountStatusClosed {
		return a, errors.NewAppError(errors.AccountClosed, "account is already closed")
	}
	if !a.Balance.IsZero() {
		return a, errors.NewAppErrorf(errors.NonZeroBalance,
			"cannot close account with non-zero balance: current balance %s", a.Balance.StringFixed(2))
	}
	a.Status = AccountStatusClosed
	return a, nil
}

func (a Account) Credit(amount decimal.Decimal) (Account, error) {
	if err := a.EnsureActive(); err != nil {
		return a, err
	}
	if err := ValidateAmount(amount); err != nil {
		return a, err
	}
	balance := a.Balance.Add(amount)
	if integerDigits(balance) > MaxIntegerDigits {
		return a, errors.ErrBalanceTooLarge
	}
	a.Balance = balance
	return a, nil
}

func (a Account) Debit(amount decimal.Decimal) (Account, error) {
	if err := a.EnsureActive(); err != nil {
		return a, err
	}
	if err := ValidateAmount(amount); err != nil {
		return a, err
	}
	if a.Balance.LessThan(amount) {
		return a, errors.NewAppErrorf(errors.InsufficientBalance,
			"insufficient balance: available %s", a.Balance.StringFixed(2))
	}
	a.Balance = a.Balance.Sub(amount)
	return a, nil
}

// Money columns are NUMERIC(19,2): 17 integer digits and 2 fractional digits.
const (
	MaxIntegerDigits = 17
	MaxScale         = 2
)

// ValidateAmount accepts strictly positive amounts that fit the money columns.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	return checkMoney(amount)
}

// ValidateInitialDeposit is ValidateAmount that also accepts zero.
func ValidateInitialDeposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.ErrNegativeInitialDeposit
	}
	if amount.IsZero() {
		return nil
	}
	return checkMoney(amount)
}

// checkMoney looks at the coefficient length and exponent before any rescaling,
// so values such as 1e2000000 are rejected without being expanded.
func checkMoney(amount decimal.Decimal) error {
	digits := coefficientDigits(amount)
	exp := int64(amount.Exponent())

	if integerDigits(amount) > MaxIntegerDigits {
		return errors.ErrAmountTooLarge
	}
	if exp < -MaxScale {
		// a coefficient shorter than the shift cannot end in enough zeros
		if -exp-MaxScale >= digits || !amount.Equal(amount.Round(MaxScale)) {
			return errors.ErrInvalidAmountScale
		}
	}
	return nil
}

func coefficientDigits(d decimal.Decimal) int64 {
	c := d.Coefficient()
	if c.Sign() == 0 {
		return 1
	}
	return int64(len(c.Abs(c).String()))
}

// integerDigits counts digits left of the decimal point, possibly <= 0 for
// values below one.
func integerDigits(d decimal.Decimal) int64 {
	return coefficientDigits(d) + int64(d.Exponent())
}

// NewAccountNumber returns "ACC" followed by 16 upper-case hex digits of a random UUID.
func NewAccountNumber() string {
	return "ACC" + strings.ToUpper(hexID()[:16])
}

func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type AccountRepository interface {
	// CreateAccount assigns ID and CreatedAt on success.
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByNumber(ctx context.Context, accountNumber string) (*Account, error)
	// GetAccountByNumberForUpdate locks the row until the surrounding unit of work ends.
	GetAccountByNumberForUpdate(ctx context.Context, accountNumber string) (*Account, error)
	// ListAccounts returns every account in creation order.
	ListAccounts(ctx context.Context) ([]*Account, error)
	ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*Account, error)
	// UpdateAccount persists balance and status.
	UpdateAccount(ctx context.Context, account *Account) error
}
