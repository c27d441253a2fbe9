package domain

import (
	"context"
	"time"
)

type Customer struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *Customer) error
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	CustomerExists(ctx context.Context, id int64) (bool, error)
}
