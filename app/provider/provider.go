package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/plan"
)

const (
	NameFreedomPay = "freedompay"
	NamePayme      = "payme"
	NamePaddle     = "paddle"
)

var (
	ErrNotConfigured        = errors.New("provider credentials are not configured")
	ErrUpstream             = errors.New("provider request failed")
	ErrSignatureMismatch    = errors.New("signature mismatch")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
	ErrRecurringUnsupported = errors.New("recurring payments are not supported by provider")
	ErrRecurringNotSetUp    = errors.New("no recurring payment method stored for user")
)

type Outcome int

const (
	OutcomeOther Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "other"
	}
}

type CheckoutInput struct {
	UserID           string
	Email            string
	PaddleCustomerID *string
	Phone            string

	Tier    plan.Tier
	Cycle   plan.Cycle
	Price   plan.Price
	OrderID string
}

type CheckoutOutput struct {
	CheckoutURL   string
	TransactionID string
	PaymentID     string
}

type RecurringInput struct {
	User    *entity.User
	Tier    plan.Tier
	Cycle   plan.Cycle
	Price   plan.Price
	OrderID string
}

type RecurringOutput struct {
	PaymentID string
	Status    string
	Paid      bool
}

type StatusOutput struct {
	Reference string
	Status    string
	Paid      bool
	Details   map[string]string
}

type WebhookRequest struct {
	Body        []byte
	ContentType string
	Header      http.Header
}

type WebhookEvent struct {
	ProviderEventID   string
	ProviderPaymentID string
	EventType         string
	PaymentStatus     string
	Outcome           Outcome

	OrderID string
	UserRef string
	Email   string
	Plan    string
	Cycle   string

	CustomerID     *string
	SubscriptionID *string
	RecurringRef   *string

	Signature        string
	SignatureSkipped bool
	Payload          map[string]interface{}
}

type Provider interface {
	Name() string
	Checkout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error)
	ParseWebhook(ctx context.Context, req *WebhookRequest) (*WebhookEvent, error)
	PaymentStatus(ctx context.Context, reference string) (*StatusOutput, error)
	ChargeRecurring(ctx context.Context, input *RecurringInput) (*RecurringOutput, error)
}
