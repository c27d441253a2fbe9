package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound     ErrorCode = "account_not_found"
	CustomerNotFound    ErrorCode = "customer_not_found"
	TransactionNotFound ErrorCode = "transaction_not_found"

	InvalidAmount       ErrorCode = "invalid_amount"
	InsufficientBalance ErrorCode = "insufficient_balance"
	AccountNotActive    ErrorCode = "account_not_active"
	AccountClosed       ErrorCode = "account_closed"
	NonZeroBalance      ErrorCode = "non_zero_balance"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	InvalidInput        ErrorCode = "invalid_input"

	DuplicateAccount  ErrorCode = "duplicate_account"
	DuplicateCustomer ErrorCode = "duplicate_customer"

	InternalError ErrorCode = "internal_error"
)

// Kind groups error codes by how callers are expected to react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidOperation
	KindConflict
)

var codeKinds = map[ErrorCode]Kind{
	AccountNotFound:     KindNotFound,
	CustomerNotFound:    KindNotFound,
	TransactionNotFound: KindNotFound,
	InvalidAmount:       KindInvalidOperation,
	InsufficientBalance: KindInvalidOperation,
	AccountNotActive:    KindInvalidOperation,
	AccountClosed:       KindInvalidOperation,
	NonZeroBalance:      KindInvalidOperation,
	SameAccountTransfer: KindInvalidOperation,
	InvalidInput:        KindInvalidOperation,
	DuplicateAccount:    KindConflict,
	DuplicateCustomer:   KindConflict,
	InternalError:       KindInternal,
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an AppError with the same code, so that
// errors.Is(err, ErrAccountNotFound) matches any account_not_found error.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) Kind() Kind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindInternal
}

func (e *AppError) HTTPStatus() int {
	if e.Code == InsufficientBalance {
		return http.StatusUnprocessableEntity
	}

	switch e.Kind() {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidOperation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details; e itself is left untouched.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Internal wraps a store or driver failure as an internal_error.
func Internal(message string, err error) *AppError {
	appErr := NewAppError(InternalError, message)
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// As extracts the AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind() == KindNotFound
}

func IsInvalidOperation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind() == KindInvalidOperation
}

func IsConflict(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind() == KindConflict
}

// Predefined errors for common cases
var (
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrCustomerNotFound       = NewAppError(CustomerNotFound, "customer not found")
	ErrTransactionNotFound    = NewAppError(TransactionNotFound, "transaction not found")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be greater than 0")
	ErrInvalidAmountScale     = NewAppError(InvalidAmount, "amount must have at most 2 decimal places")
	ErrAmountTooLarge         = NewAppError(InvalidAmount, "amount must have at most 17 integer digits")
	ErrBalanceTooLarge        = NewAppError(InvalidAmount, "resulting balance would exceed 17 integer digits")
	ErrNegativeInitialDeposit = NewAppError(InvalidAmount, "initial deposit must not be negative")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrDuplicateCustomer      = NewAppError(DuplicateCustomer, "customer with this email already exists")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin a transaction inside another transaction")
)
