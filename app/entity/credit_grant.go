package entity

import "time"

type CreditGrant struct {
	ID uint64

	UserID            string
	Provider          string
	ProviderPaymentID string
	WebhookEventID    *uint64

	Plan    string
	Cycle   string
	Credits int64

	CreatedAt time.Time
}

type ProviderRefs struct {
	FreedomPayRecurringProfileID *string
	PaymeCardToken               *string
	PaddleCustomerID             *string
	PaddleSubscriptionID         *string
}
