package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

type FreedomPayConfig struct {
	MerchantID  string
	SecretKey   string
	BaseURL     string
	ResultURL   string
	SuccessURL  string
	FailureURL  string
	Currency    string
	TestingMode bool
	HTTPTimeout time.Duration
}

type FreedomPayProvider struct {
	cfg    FreedomPayConfig
	client *resty.Client
}

func NewFreedomPayProvider(cfg FreedomPayConfig) *FreedomPayProvider {
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "KZT"
	}
	return &FreedomPayProvider{
		cfg:    cfg,
		client: newRestyClient(cfg.BaseURL, cfg.HTTPTimeout),
	}
}

func (p *FreedomPayProvider) Name() string {
	return NameFreedomPay
}

func (p *FreedomPayProvider) configured() bool {
	return strings.TrimSpace(p.cfg.MerchantID) != "" && strings.TrimSpace(p.cfg.SecretKey) != ""
}

func (p *FreedomPayProvider) Checkout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if !p.configured() {
		return nil, fmt.Errorf("%w: freedompay merchant id or secret key missing", ErrNotConfigured)
	}

	params := map[string]string{
		"pg_order_id":        input.OrderID,
		"pg_amount":          strconv.FormatInt(input.Price.Amount, 10),
		"pg_currency":        p.cfg.Currency,
		"pg_description":     describePurchase(input.Tier, input.Cycle),
		"pg_recurring_start": "1",
	}
	setIfNotEmpty(params, "pg_result_url", p.cfg.ResultURL)
	setIfNotEmpty(params, "pg_success_url", p.cfg.SuccessURL)
	setIfNotEmpty(params, "pg_failure_url", p.cfg.FailureURL)
	setIfNotEmpty(params, "pg_user_phone", strings.TrimSpace(input.Phone))
	if p.cfg.TestingMode {
		params["pg_testing_mode"] = "1"
	}

	response, err := p.postSigned(ctx, "/init_payment.php", params)
	if err != nil {
		return nil, err
	}

	redirectURL := response["pg_redirect_url"]
	if redirectURL == "" {
		return nil, fmt.Errorf("%w: freedompay response has no redirect url", ErrUpstream)
	}

	return &CheckoutOutput{
		CheckoutURL: redirectURL,
		PaymentID:   response["pg_payment_id"],
	}, nil
}

func (p *FreedomPayProvider) ChargeRecurring(ctx context.Context, input *RecurringInput) (*RecurringOutput, error) {
	if !p.configured() {
		return nil, fmt.Errorf("%w: freedompay merchant id or secret key missing", ErrNotConfigured)
	}
	if input.User == nil || input.User.FreedomPayRecurringProfileID == nil || *input.User.FreedomPayRecurringProfileID == "" {
		return nil, ErrRecurringNotSetUp
	}

	params := map[string]string{
		"pg_recurring_profile": *input.User.FreedomPayRecurringProfileID,
		"pg_order_id":          input.OrderID,
		"pg_amount":            strconv.FormatInt(input.Price.Amount, 10),
		"pg_description":       describePurchase(input.Tier, input.Cycle),
	}
	setIfNotEmpty(params, "pg_result_url", p.cfg.ResultURL)

	response, err := p.postSigned(ctx, "/make_recurring_payment.php", params)
	if err != nil {
		return nil, err
	}

	status := response["pg_payment_status"]
	return &RecurringOutput{
		PaymentID: response["pg_payment_id"],
		Status:    status,
		Paid:      status == "success" || status == "ok",
	}, nil
}

func (p *FreedomPayProvider) PaymentStatus(ctx context.Context, reference string) (*StatusOutput, error) {
	if !p.configured() {
		return nil, fmt.Errorf("%w: freedompay merchant id or secret key missing", ErrNotConfigured)
	}

	response, err := p.postSigned(ctx, "/get_status.php", map[string]string{"pg_order_id": reference})
	if err != nil {
		return nil, err
	}

	status := response["pg_payment_status"]
	return &StatusOutput{
		Reference: reference,
		Status:    status,
		Paid:      status == "success" || status == "ok",
		Details:   response,
	}, nil
}

func (p *FreedomPayProvider) ParseWebhook(_ context.Context, req *WebhookRequest) (*WebhookEvent, error) {
	params, err := decodeFreedomPayPayload(req)
	if err != nil {
		return nil, err
	}

	event := &WebhookEvent{
		Signature: params[freedomPaySignatureField],
		Payload:   stringMapToPayload(params),
	}

	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		event.SignatureSkipped = true
	} else if !VerifyFreedomPay(params, p.cfg.SecretKey, event.Signature) {
		return nil, ErrSignatureMismatch
	}

	status := strings.ToLower(strings.TrimSpace(params["pg_status"]))
	if status == "" {
		switch strings.TrimSpace(params["pg_result"]) {
		case "1":
			status = "ok"
		case "0":
			status = "failed"
		}
	}

	event.PaymentStatus = status
	event.EventType = "payment." + status
	event.Outcome = outcomeForStatus(status)
	event.OrderID = params["pg_order_id"]
	event.ProviderPaymentID = params["pg_payment_id"]
	if event.ProviderPaymentID == "" {
		event.ProviderPaymentID = event.OrderID
	}
	event.Email = params["pg_user_contact_email"]

	if order, err := plan.ParseOrderID(event.OrderID); err == nil {
		event.UserRef = order.UserID
		event.Plan = string(order.Tier)
		event.Cycle = string(order.Cycle)
	}

	if ref := firstNonEmpty(params["pg_recurring_profile_id"], params["pg_recurring_profile"]); ref != "" {
		event.RecurringRef = &ref
	}

	return event, nil
}

func (p *FreedomPayProvider) postSigned(ctx context.Context, path string, params map[string]string) (map[string]string, error) {
	params["pg_merchant_id"] = p.cfg.MerchantID
	params["pg_salt"] = uuid.NewString()
	params[freedomPaySignatureField] = SignFreedomPay(params, p.cfg.SecretKey)

	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(params).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: freedompay %s: %v", ErrUpstream, path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: freedompay %s status=%d", ErrUpstream, path, resp.StatusCode())
	}

	response, err := DecodeFlatXML(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: freedompay %s returned unparseable body: %v", ErrUpstream, path, err)
	}
	if response["pg_status"] != "ok" {
		return nil, fmt.Errorf("%w: freedompay %s status=%q: %s", ErrUpstream, path, response["pg_status"], response["pg_error_description"])
	}

	return response, nil
}

func decodeFreedomPayPayload(req *WebhookRequest) (map[string]string, error) {
	if looksLikeXML(req.ContentType, req.Body) {
		params, err := DecodeFlatXML(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return params, nil
	}

	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if raw := values.Get("pg_xml"); raw != "" {
		params, err := DecodeFlatXML([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return params, nil
	}

	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}
	return params, nil
}

func outcomeForStatus(status string) Outcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ok", "success", "succeeded", "paid":
		return OutcomeSuccess
	case "error", "failed", "failure", "canceled", "cancelled":
		return OutcomeFailure
	default:
		return OutcomeOther
	}
}

func describePurchase(tier plan.Tier, cycle plan.Cycle) string {
	return fmt.Sprintf("Callmind %s plan (%s)", tier, cycle)
}
