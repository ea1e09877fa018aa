package entity

import "time"

type User struct {
	ID    string
	Email string

	Plan    string
	Credits int64

	FreedomPayRecurringProfileID *string
	PaymeCardToken               *string
	PaddleCustomerID             *string
	PaddleSubscriptionID         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
