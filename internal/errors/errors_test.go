package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{AccountNotFound, http.StatusNotFound},
		{CustomerNotFound, http.StatusNotFound},
		{TransactionNotFound, http.StatusNotFound},
		{InvalidAmount, http.StatusBadRequest},
		{AccountNotActive, http.StatusBadRequest},
		{AccountClosed, http.StatusBadRequest},
		{NonZeroBalance, http.StatusBadRequest},
		{SameAccountTransfer, http.StatusBadRequest},
		{InvalidInput, http.StatusBadRequest},
		{InsufficientBalance, http.StatusUnprocessableEntity},
		{DuplicateAccount, http.StatusConflict},
		{DuplicateCustomer, http.StatusConflict},
		{InternalError, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, NewAppError(tt.code, "msg").HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := NewAppErrorf(AccountNotFound, "account not found: %s", "ACC1")
	wrapped := fmt.Errorf("loading: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrAccountNotFound))
	assert.False(t, stderrors.Is(wrapped, ErrCustomerNotFound))
	assert.False(t, stderrors.Is(stderrors.New("plain"), ErrAccountNotFound))
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsNotFound(ErrTransactionNotFound))
	assert.True(t, IsInvalidOperation(ErrSameAccountTransfer))
	assert.True(t, IsInvalidOperation(NewAppError(InsufficientBalance, "insufficient balance")))
	assert.True(t, IsConflict(ErrDuplicateCustomer))
	assert.False(t, IsNotFound(stderrors.New("plain")))
	assert.Equal(t, KindInternal, ErrCannotBeginTransaction.Kind())
}

func TestWithDetailsLeavesOriginalUntouched(t *testing.T) {
	detailed := ErrAccountNotFound.WithDetails("ACC123")

	assert.Equal(t, "ACC123", detailed.Details)
	assert.Empty(t, ErrAccountNotFound.Details)
	assert.Equal(t, ErrAccountNotFound.Code, detailed.Code)
}

func TestInternalKeepsCause(t *testing.T) {
	err := Internal("failed to update account", stderrors.New("connection reset"))

	assert.Equal(t, InternalError, err.Code)
	assert.Equal(t, "connection reset", err.Details)
	assert.Equal(t, "internal_error: failed to update account", err.Error())
}

func TestCodeOf(t *testing.T) {
	appErr, ok := As(fmt.Errorf("wrap: %w", ErrInvalidAmount))
	require.True(t, ok)
	assert.Equal(t, InvalidAmount, appErr.Code)

	assert.Equal(t, DuplicateAccount, CodeOf(ErrDuplicateAccount))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}
