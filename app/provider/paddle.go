package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const PaddleSignatureHeader = "Paddle-Signature"

type PaddleConfig struct {
	APIKey                    string
	WebhookSecret             string
	BaseURL                   string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type PaddleProvider struct {
	cfg    PaddleConfig
	client *resty.Client
	now    func() time.Time
}

func NewPaddleProvider(cfg PaddleConfig) *PaddleProvider {
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}
	return &PaddleProvider{
		cfg:    cfg,
		client: newRestyClient(cfg.BaseURL, cfg.HTTPTimeout),
		now:    time.Now,
	}
}

func (p *PaddleProvider) Name() string {
	return NamePaddle
}

func (p *PaddleProvider) Checkout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: paddle api key missing", ErrNotConfigured)
	}
	if strings.TrimSpace(input.Price.PriceID) == "" {
		return nil, fmt.Errorf("%w: paddle price id missing for %s %s", ErrNotConfigured, input.Tier, input.Cycle)
	}

	customData := map[string]string{
		"user_id":       input.UserID,
		"plan":          string(input.Tier),
		"billing_cycle": string(input.Cycle),
		"order_id":      input.OrderID,
	}
	setIfNotEmpty(customData, "email", input.Email)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"price_id": input.Price.PriceID, "quantity": 1},
		},
		"custom_data":     customData,
		"collection_mode": "automatic",
	}
	if input.PaddleCustomerID != nil && *input.PaddleCustomerID != "" {
		body["customer_id"] = *input.PaddleCustomerID
	}

	var payload struct {
		Data paddleTransaction `json:"data"`
	}
	if err := p.do(ctx, p.client.R().SetBody(body), "POST", "/transactions", &payload); err != nil {
		return nil, err
	}
	if payload.Data.ID == "" {
		return nil, fmt.Errorf("%w: paddle transaction id missing", ErrUpstream)
	}

	return &CheckoutOutput{
		TransactionID: payload.Data.ID,
		CheckoutURL:   payload.Data.Checkout.URL,
	}, nil
}

func (p *PaddleProvider) PaymentStatus(ctx context.Context, reference string) (*StatusOutput, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: paddle api key missing", ErrNotConfigured)
	}

	var payload struct {
		Data paddleTransaction `json:"data"`
	}
	if err := p.do(ctx, p.client.R(), "GET", "/transactions/"+url.PathEscape(reference), &payload); err != nil {
		return nil, err
	}

	return &StatusOutput{
		Reference: reference,
		Status:    payload.Data.Status,
		Paid:      payload.Data.Status == "completed" || payload.Data.Status == "paid",
		Details: map[string]string{
			"transaction_id":  payload.Data.ID,
			"customer_id":     payload.Data.CustomerID,
			"subscription_id": payload.Data.SubscriptionID,
		},
	}, nil
}

func (p *PaddleProvider) ChargeRecurring(_ context.Context, _ *RecurringInput) (*RecurringOutput, error) {
	return nil, ErrRecurringUnsupported
}

func (p *PaddleProvider) ParseWebhook(_ context.Context, req *WebhookRequest) (*WebhookEvent, error) {
	signature := strings.TrimSpace(req.Header.Get(PaddleSignatureHeader))
	event := &WebhookEvent{Signature: signature}

	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		event.SignatureSkipped = true
	} else if !VerifyPaddle(req.Body, signature, p.cfg.WebhookSecret, p.cfg.SignatureToleranceSeconds, p.now()) {
		return nil, ErrSignatureMismatch
	}

	var body struct {
		EventID   string            `json:"event_id"`
		EventType string            `json:"event_type"`
		Data      paddleTransaction `json:"data"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := json.Unmarshal(req.Body, &event.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	data := body.Data
	event.ProviderEventID = body.EventID
	event.ProviderPaymentID = data.ID
	event.EventType = body.EventType
	event.PaymentStatus = data.Status

	switch body.EventType {
	case "transaction.completed", "transaction.paid":
		event.Outcome = OutcomeSuccess
	case "transaction.payment_failed", "transaction.canceled":
		event.Outcome = OutcomeFailure
	default:
		event.Outcome = OutcomeOther
	}

	event.UserRef = firstNonEmpty(data.CustomData.UserID, data.CustomData.UserIDCamel)
	event.Plan = data.CustomData.Plan
	event.Cycle = firstNonEmpty(data.CustomData.BillingCycle, data.CustomData.BillingCycleCamel)
	if event.Cycle == "" && data.CustomData.Yearly != nil {
		if *data.CustomData.Yearly {
			event.Cycle = "yearly"
		} else {
			event.Cycle = "monthly"
		}
	}
	event.OrderID = firstNonEmpty(data.CustomData.OrderID, data.CustomData.OrderIDCamel)
	event.Email = firstNonEmpty(data.CustomData.Email, data.Customer.Email)
	event.CustomerID = stringPtr(data.CustomerID)
	event.SubscriptionID = stringPtr(data.SubscriptionID)

	return event, nil
}

func (p *PaddleProvider) do(ctx context.Context, req *resty.Request, method, path string, out interface{}) error {
	resp, err := req.
		SetContext(ctx).
		SetAuthToken(p.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: paddle %s %s: %v", ErrUpstream, method, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: paddle %s %s status=%d body=%s", ErrUpstream, method, path, resp.StatusCode(), string(resp.Body()))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: paddle %s %s returned unparseable body: %v", ErrUpstream, method, path, err)
	}
	return nil
}

type paddleTransaction struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	Checkout       struct {
		URL string `json:"url"`
	} `json:"checkout"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
	CustomData paddleCustomData `json:"custom_data"`
}

type paddleCustomData struct {
	UserID            string `json:"user_id"`
	UserIDCamel       string `json:"userId"`
	Plan              string `json:"plan"`
	BillingCycle      string `json:"billing_cycle"`
	BillingCycleCamel string `json:"billingCycle"`
	Yearly            *bool  `json:"yearly"`
	OrderID           string `json:"order_id"`
	OrderIDCamel      string `json:"orderId"`
	Email             string `json:"email"`
}
