// Package memory is an in-process implementation of domain.Store.
//
// Units of work are serialized and applied copy-on-write: the live state is
// cloned, the work runs against the clone, and the clone replaces the live
// state only when the work succeeds. Single writes outside WithTransaction are
// units of work of their own.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type state struct {
	customers      map[int64]domain.Customer
	customerEmails map[string]int64
	accounts       map[int64]domain.Account
	accountNumbers map[string]int64
	transactions   map[int64]domain.Transaction
	// byAccount indexes transaction ids per owning account, in insertion order.
	byAccount map[int64][]int64

	nextCustomerID    int64
	nextAccountID     int64
	nextTransactionID int64
}

func newState() *state {
	return &state{
		customers:      make(map[int64]domain.Customer),
		customerEmails: make(map[string]int64),
		accounts:       make(map[int64]domain.Account),
		accountNumbers: make(map[string]int64),
		transactions:   make(map[int64]domain.Transaction),
		byAccount:      make(map[int64][]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		customers:         make(map[int64]domain.Customer, len(s.customers)),
		customerEmails:    make(map[string]int64, len(s.customerEmails)),
		accounts:          make(map[int64]domain.Account, len(s.accounts)),
		accountNumbers:    make(map[string]int64, len(s.accountNumbers)),
		transactions:      make(map[int64]domain.Transaction, len(s.transactions)),
		byAccount:         make(map[int64][]int64, len(s.byAccount)),
		nextCustomerID:    s.nextCustomerID,
		nextAccountID:     s.nextAccountID,
		nextTransactionID: s.nextTransactionID,
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.customerEmails {
		c.customerEmails[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.accountNumbers {
		c.accountNumbers[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.byAccount {
		c.byAccount[k] = append([]int64(nil), v...)
	}
	return c
}

// executor gives repositories read and write access to a state.
type executor interface {
	view(fn func(*state) error) error
	update(fn func(*state) error) error
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex // guards live
	txMu   sync.Mutex   // serializes units of work
	live   *state
	exec   executor
	logger *slog.Logger
	clock  *clock
}

var _ domain.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	s := &Store{
		live:   newState(),
		logger: logger,
		clock:  &clock{now: func() time.Time { return time.Now().UTC() }},
	}
	s.exec = rootExecutor{s: s}
	return s
}

// SetClock overrides the timestamp source used for created_at values. It
// applies to repositories already handed out as well.
func (s *Store) SetClock(now func() time.Time) {
	s.clock.set(now)
}

func (s *Store) Account() domain.AccountRepository {
	return &accountRepository{exec: s.exec, logger: s.logger, clock: s.clock}
}

func (s *Store) Transaction() domain.TransactionRepository {
	return &transactionRepository{exec: s.exec, logger: s.logger, clock: s.clock}
}

func (s *Store) Customer() domain.CustomerRepository {
	return &customerRepository{exec: s.exec, logger: s.logger, clock: s.clock}
}

func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	root, ok := s.exec.(rootExecutor)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}
	return root.update(func(st *state) error {
		if err := ctx.Err(); err != nil {
			return errors.Internal("unit of work cancelled", err)
		}
		txStore := &Store{
			exec:   txExecutor{st: st},
			logger: s.logger,
			clock:  s.clock,
		}
		return fn(txStore)
	})
}

type rootExecutor struct {
	s *Store
}

func (e rootExecutor) view(fn func(*state) error) error {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	return fn(e.s.live)
}

func (e rootExecutor) update(fn func(*state) error) error {
	e.s.txMu.Lock()
	defer e.s.txMu.Unlock()

	// live only changes under txMu, so reading the pointer here is safe.
	next := e.s.live.clone()
	if err := fn(next); err != nil {
		return err
	}

	e.s.mu.Lock()
	e.s.live = next
	e.s.mu.Unlock()
	return nil
}

type txExecutor struct {
	st *state
}

func (e txExecutor) view(fn func(*state) error) error   { return fn(e.st) }
func (e txExecutor) update(fn func(*state) error) error { return fn(e.st) }

// clock is shared by a Store, its unit-of-work stores and their repositories.
type clock struct {
	mu  sync.RWMutex
	now func() time.Time
}

func (c *clock) Now() time.Time {
	c.mu.RLock()
	now := c.now
	c.mu.RUnlock()
	return now()
}

func (c *clock) set(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
