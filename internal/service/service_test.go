package service

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/repository/memory"
)

// serviceSuite wires the services to a fresh in-memory store per test.
type serviceSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
	store  *memory.Store

	customers    *CustomerService
	accounts     *AccountService
	transactions *TransactionService

	customer *domain.Customer
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = memory.NewStore(s.logger)

	s.customers = NewCustomerService(s.store, s.logger)
	s.accounts = NewAccountService(s.store, s.logger)
	s.transactions = NewTransactionService(s.store, s.logger)

	customer, err := s.customers.CreateCustomer(s.ctx, CreateCustomerRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	s.Require().NoError(err)
	s.customer = customer
}

func (s *serviceSuite) openAccount(initialDeposit string) *domain.Account {
	req := CreateAccountRequest{
		CustomerID:  s.customer.ID,
		AccountType: domain.AccountTypeSavings,
	}
	if initialDeposit != "" {
		amount := decimal.RequireFromString(initialDeposit)
		req.InitialDeposit = &amount
	}

	account, err := s.accounts.CreateAccount(s.ctx, req)
	s.Require().NoError(err)
	return account
}

func (s *serviceSuite) balanceOf(accountNumber string) string {
	balance, err := s.accounts.GetBalance(s.ctx, accountNumber)
	s.Require().NoError(err)
	return balance.StringFixed(2)
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var errInjected = stderrors.New("injected failure")

// failingStore makes the Nth CreateTransaction inside a unit of work fail.
type failingStore struct {
	domain.Store
	failOnCall int
}

func (f *failingStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	calls := 0
	return f.Store.WithTransaction(ctx, func(tx domain.Store) error {
		return fn(&failingTx{Store: tx, calls: &calls, failOnCall: f.failOnCall})
	})
}

type failingTx struct {
	domain.Store
	calls      *int
	failOnCall int
}

func (f *failingTx) Transaction() domain.TransactionRepository {
	return &failingTransactionRepository{TransactionRepository: f.Store.Transaction(), tx: f}
}

type failingTransactionRepository struct {
	domain.TransactionRepository
	tx *failingTx
}

func (r *failingTransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	*r.tx.calls++
	if *r.tx.calls == r.tx.failOnCall {
		return errInjected
	}
	return r.TransactionRepository.CreateTransaction(ctx, tx)
}
