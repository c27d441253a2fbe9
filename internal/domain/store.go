package domain

import "context"

// Store is the unit-of-work boundary shared by every persistence backend.
// Repositories obtained from the Store passed to WithTransaction's fn see and
// write the same transaction; fn returning an error rolls everything back.
type Store interface {
	Account() AccountRepository
	Transaction() TransactionRepository
	Customer() CustomerRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
