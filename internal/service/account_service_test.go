package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type AccountServiceTestSuite struct {
	serviceSuite
}

func (s *AccountServiceTestSuite) TestCreateAccountWithoutDeposit() {
	account, err := s.accounts.CreateAccount(s.ctx, CreateAccountRequest{
		CustomerID:  s.customer.ID,
		AccountType: domain.AccountTypeCurrent,
	})
	s.Require().NoError(err)

	s.Equal("0.00", account.Balance.StringFixed(2))
	s.Equal(domain.AccountStatusActive, account.Status)
	s.Equal(domain.AccountTypeCurrent, account.AccountType)
	s.NotZero(account.ID)
	s.Regexp(`^ACC[0-9A-F]{16}$`, account.AccountNumber)
}

func (s *AccountServiceTestSuite) TestCreateAccountWithDepositRecordsNoTransaction() {
	account := s.openAccount("250.50")

	s.Equal("250.50", s.balanceOf(account.AccountNumber))

	history, err := s.transactions.ListTransactions(s.ctx, account.AccountNumber, domain.TransactionFilter{})
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *AccountServiceTestSuite) TestCreateAccountRejections() {
	negative := decimal.RequireFromString("-1")
	fractional := decimal.RequireFromString("1.001")
	huge := decimal.RequireFromString("1e20")

	tests := []struct {
		name string
		req  CreateAccountRequest
		want errors.ErrorCode
	}{
		{
			name: "unknown type",
			req:  CreateAccountRequest{CustomerID: s.customer.ID, AccountType: "CHECKING"},
			want: errors.InvalidInput,
		},
		{
			name: "negative deposit",
			req:  CreateAccountRequest{CustomerID: s.customer.ID, AccountType: domain.AccountTypeSavings, InitialDeposit: &negative},
			want: errors.InvalidAmount,
		},
		{
			name: "deposit with three decimals",
			req:  CreateAccountRequest{CustomerID: s.customer.ID, AccountType: domain.AccountTypeSavings, InitialDeposit: &fractional},
			want: errors.InvalidAmount,
		},
		{
			name: "deposit beyond storage",
			req:  CreateAccountRequest{CustomerID: s.customer.ID, AccountType: domain.AccountTypeSavings, InitialDeposit: &huge},
			want: errors.InvalidAmount,
		},
		{
			name: "unknown customer",
			req:  CreateAccountRequest{CustomerID: 999, AccountType: domain.AccountTypeSavings},
			want: errors.CustomerNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.accounts.CreateAccount(s.ctx, tt.req)
			s.Equal(tt.want, errors.CodeOf(err))
		})
	}

	accounts, err := s.accounts.ListCustomerAccounts(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Empty(accounts)
}

func (s *AccountServiceTestSuite) TestGetAccountNotFound() {
	_, err := s.accounts.GetAccount(s.ctx, "ACC0000000000000000")
	s.ErrorIs(err, errors.ErrAccountNotFound)

	_, err = s.accounts.GetBalance(s.ctx, "ACC0000000000000000")
	s.ErrorIs(err, errors.ErrAccountNotFound)
}

func (s *AccountServiceTestSuite) TestListCustomerAccounts() {
	first := s.openAccount("1")
	second := s.openAccount("")

	accounts, err := s.accounts.ListCustomerAccounts(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Require().Len(accounts, 2)
	s.Equal(first.AccountNumber, accounts[0].AccountNumber)
	s.Equal(second.AccountNumber, accounts[1].AccountNumber)

	_, err = s.accounts.ListCustomerAccounts(s.ctx, 999)
	s.ErrorIs(err, errors.ErrCustomerNotFound)
}

func (s *AccountServiceTestSuite) TestListAccounts() {
	empty, err := s.accounts.ListAccounts(s.ctx)
	s.Require().NoError(err)
	s.Empty(empty)

	first := s.openAccount("1")
	second := s.openAccount("")

	accounts, err := s.accounts.ListAccounts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 2)
	s.Equal(first.AccountNumber, accounts[0].AccountNumber)
	s.Equal(second.AccountNumber, accounts[1].AccountNumber)
}

func (s *AccountServiceTestSuite) TestSuspendBlocksMovementsUntilActivated() {
	account := s.openAccount("100")

	suspended, err := s.accounts.SuspendAccount(s.ctx, account.AccountNumber)
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusSuspended, suspended.Status)

	_, err = s.transactions.Deposit(s.ctx, MovementRequest{AccountNumber: account.AccountNumber, Amount: amount("10")})
	s.Equal(errors.AccountNotActive, errors.CodeOf(err))
	s.Equal("100.00", s.balanceOf(account.AccountNumber))

	activated, err := s.accounts.ActivateAccount(s.ctx, account.AccountNumber)
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusActive, activated.Status)

	_, err = s.transactions.Deposit(s.ctx, MovementRequest{AccountNumber: account.AccountNumber, Amount: amount("10")})
	s.NoError(err)
	s.Equal("110.00", s.balanceOf(account.AccountNumber))
}

func (s *AccountServiceTestSuite) TestCloseAccount() {
	account := s.openAccount("25")

	_, err := s.accounts.CloseAccount(s.ctx, account.AccountNumber)
	s.Equal(errors.NonZeroBalance, errors.CodeOf(err))

	stored, err := s.accounts.GetAccount(s.ctx, account.AccountNumber)
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusActive, stored.Status)

	_, err = s.transactions.Withdraw(s.ctx, MovementRequest{AccountNumber: account.AccountNumber, Amount: amount("25")})
	s.Require().NoError(err)

	closed, err := s.accounts.CloseAccount(s.ctx, account.AccountNumber)
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusClosed, closed.Status)

	_, err = s.transactions.Deposit(s.ctx, MovementRequest{AccountNumber: account.AccountNumber, Amount: amount("1")})
	s.Equal(errors.AccountNotActive, errors.CodeOf(err))

	_, err = s.accounts.ActivateAccount(s.ctx, account.AccountNumber)
	s.Equal(errors.AccountClosed, errors.CodeOf(err))

	_, err = s.accounts.CloseAccount(s.ctx, account.AccountNumber)
	s.Equal(errors.AccountClosed, errors.CodeOf(err))
}

func (s *AccountServiceTestSuite) TestStatusChangeOnMissingAccount() {
	_, err := s.accounts.SuspendAccount(s.ctx, "ACC404")
	s.ErrorIs(err, errors.ErrAccountNotFound)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
