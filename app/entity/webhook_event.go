package entity

import "time"

const (
	WebhookEventReceived   int32 = 0
	WebhookEventCredited   int32 = 10
	WebhookEventDuplicate  int32 = 11
	WebhookEventIgnored    int32 = 12
	WebhookEventUnresolved int32 = 20
	WebhookEventRejected   int32 = 30
	WebhookEventFailed     int32 = 40
)

type WebhookEvent struct {
	ID uint64

	Provider          string
	ProviderEventID   string
	ProviderPaymentID string
	EventType         string
	PaymentStatus     string

	UserRef string
	Email   string
	Plan    string
	Cycle   string

	CustomerID     *string
	SubscriptionID *string
	RecurringRef   *string

	Signature   string
	PayloadJSON string

	Status        int32
	Attempts      int32
	NextAttemptAt *time.Time
	Error         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
