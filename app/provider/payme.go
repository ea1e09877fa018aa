package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	PaymeSignatureHeader = "X-Payme-Sign"

	paymeReceiptPaid = 4
)

type PaymeConfig struct {
	MerchantID  string
	SecretKey   string
	CheckoutURL string
	APIURL      string
	ReturnURL   string
	HTTPTimeout time.Duration
}

type PaymeProvider struct {
	cfg    PaymeConfig
	client *resty.Client
}

type PaymeCard struct {
	Token     string `json:"token"`
	Number    string `json:"number"`
	Expire    string `json:"expire"`
	Recurrent bool   `json:"recurrent"`
	Verify    bool   `json:"verify"`
}

type PaymeVerifyCode struct {
	Sent  bool   `json:"sent"`
	Phone string `json:"phone"`
	Wait  int64  `json:"wait"`
}

func NewPaymeProvider(cfg PaymeConfig) *PaymeProvider {
	return &PaymeProvider{
		cfg:    cfg,
		client: newRestyClient(cfg.APIURL, cfg.HTTPTimeout),
	}
}

func (p *PaymeProvider) Name() string {
	return NamePayme
}

func (p *PaymeProvider) Checkout(_ context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if strings.TrimSpace(p.cfg.MerchantID) == "" {
		return nil, fmt.Errorf("%w: payme merchant id missing", ErrNotConfigured)
	}

	parts := []string{
		"m=" + p.cfg.MerchantID,
		"ac.user_id=" + input.UserID,
		"ac.plan=" + string(input.Tier),
		"ac.billing_cycle=" + string(input.Cycle),
		"ac.order_id=" + input.OrderID,
		"a=" + strconv.FormatInt(input.Price.AmountMinor(), 10),
	}
	if p.cfg.ReturnURL != "" {
		parts = append(parts, "c="+p.cfg.ReturnURL)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, ";")))
	return &CheckoutOutput{
		CheckoutURL: strings.TrimRight(p.cfg.CheckoutURL, "/") + "/" + encoded,
	}, nil
}

func (p *PaymeProvider) ParseWebhook(_ context.Context, req *WebhookRequest) (*WebhookEvent, error) {
	signature := strings.TrimSpace(req.Header.Get(PaymeSignatureHeader))
	event := &WebhookEvent{Signature: signature}

	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		event.SignatureSkipped = true
	} else if !VerifyPayme(req.Body, p.cfg.SecretKey, signature) {
		return nil, ErrSignatureMismatch
	}

	var body struct {
		TransactionID string          `json:"transaction_id"`
		Status        string          `json:"status"`
		Account       paymeAccount    `json:"account"`
		Method        string          `json:"method"`
		Params        *paymeRPCParams `json:"params"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := json.Unmarshal(req.Body, &event.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	account := body.Account
	event.ProviderPaymentID = body.TransactionID
	event.PaymentStatus = strings.ToLower(strings.TrimSpace(body.Status))
	event.EventType = "transaction." + event.PaymentStatus

	if body.Method != "" {
		event.EventType = body.Method
		switch body.Method {
		case "PerformTransaction":
			event.PaymentStatus = "success"
		case "CancelTransaction":
			event.PaymentStatus = "canceled"
		default:
			event.PaymentStatus = strings.ToLower(body.Method)
		}
		if body.Params != nil {
			account = body.Params.Account
			event.ProviderPaymentID = firstNonEmpty(body.Params.ID, event.ProviderPaymentID)
		}
	}

	event.Outcome = outcomeForStatus(event.PaymentStatus)
	event.UserRef = strings.TrimSpace(account.UserID)
	event.Plan = strings.TrimSpace(account.Plan)
	event.Cycle = strings.TrimSpace(account.BillingCycle)
	event.Email = strings.TrimSpace(account.Email)
	event.OrderID = strings.TrimSpace(account.OrderID)

	return event, nil
}

func (p *PaymeProvider) ChargeRecurring(ctx context.Context, input *RecurringInput) (*RecurringOutput, error) {
	if !p.apiConfigured() {
		return nil, fmt.Errorf("%w: payme merchant id or secret key missing", ErrNotConfigured)
	}
	if input.User == nil || input.User.PaymeCardToken == nil || *input.User.PaymeCardToken == "" {
		return nil, ErrRecurringNotSetUp
	}

	var created struct {
		Receipt paymeReceipt `json:"receipt"`
	}
	err := p.call(ctx, p.fullAuth(), "receipts.create", map[string]interface{}{
		"amount": input.Price.AmountMinor(),
		"account": map[string]string{
			"user_id":       input.User.ID,
			"plan":          string(input.Tier),
			"billing_cycle": string(input.Cycle),
			"order_id":      input.OrderID,
		},
	}, &created)
	if err != nil {
		return nil, err
	}
	if created.Receipt.ID == "" {
		return nil, fmt.Errorf("%w: payme receipts.create returned no receipt id", ErrUpstream)
	}

	var paid struct {
		Receipt paymeReceipt `json:"receipt"`
	}
	err = p.call(ctx, p.fullAuth(), "receipts.pay", map[string]interface{}{
		"id":    created.Receipt.ID,
		"token": *input.User.PaymeCardToken,
	}, &paid)
	if err != nil {
		return nil, err
	}

	return &RecurringOutput{
		PaymentID: created.Receipt.ID,
		Status:    strconv.Itoa(paid.Receipt.State),
		Paid:      paid.Receipt.State == paymeReceiptPaid,
	}, nil
}

func (p *PaymeProvider) PaymentStatus(ctx context.Context, reference string) (*StatusOutput, error) {
	if !p.apiConfigured() {
		return nil, fmt.Errorf("%w: payme merchant id or secret key missing", ErrNotConfigured)
	}

	var result struct {
		State int `json:"state"`
	}
	if err := p.call(ctx, p.fullAuth(), "receipts.check", map[string]interface{}{"id": reference}, &result); err != nil {
		return nil, err
	}

	return &StatusOutput{
		Reference: reference,
		Status:    strconv.Itoa(result.State),
		Paid:      result.State == paymeReceiptPaid,
		Details:   map[string]string{"state": strconv.Itoa(result.State)},
	}, nil
}

func (p *PaymeProvider) CreateCard(ctx context.Context, number, expire string) (*PaymeCard, *PaymeVerifyCode, error) {
	if strings.TrimSpace(p.cfg.MerchantID) == "" {
		return nil, nil, fmt.Errorf("%w: payme merchant id missing", ErrNotConfigured)
	}

	var created struct {
		Card PaymeCard `json:"card"`
	}
	err := p.call(ctx, p.cfg.MerchantID, "cards.create", map[string]interface{}{
		"card": map[string]string{"number": number, "expire": expire},
		"save": true,
	}, &created)
	if err != nil {
		return nil, nil, err
	}
	if created.Card.Token == "" {
		return nil, nil, fmt.Errorf("%w: payme cards.create returned no token", ErrUpstream)
	}

	var code PaymeVerifyCode
	if err := p.call(ctx, p.cfg.MerchantID, "cards.get_verify_code", map[string]interface{}{"token": created.Card.Token}, &code); err != nil {
		return nil, nil, err
	}

	return &created.Card, &code, nil
}

func (p *PaymeProvider) VerifyCard(ctx context.Context, token, code string) (*PaymeCard, error) {
	if strings.TrimSpace(p.cfg.MerchantID) == "" {
		return nil, fmt.Errorf("%w: payme merchant id missing", ErrNotConfigured)
	}

	var verified struct {
		Card PaymeCard `json:"card"`
	}
	if err := p.call(ctx, p.cfg.MerchantID, "cards.verify", map[string]interface{}{"token": token, "code": code}, &verified); err != nil {
		return nil, err
	}
	if !verified.Card.Verify {
		return nil, fmt.Errorf("%w: payme card was not verified", ErrUpstream)
	}
	if verified.Card.Token == "" {
		verified.Card.Token = token
	}
	return &verified.Card, nil
}

func (p *PaymeProvider) apiConfigured() bool {
	return strings.TrimSpace(p.cfg.MerchantID) != "" && strings.TrimSpace(p.cfg.SecretKey) != ""
}

func (p *PaymeProvider) fullAuth() string {
	return p.cfg.MerchantID + ":" + p.cfg.SecretKey
}

func (p *PaymeProvider) call(ctx context.Context, auth, method string, params interface{}, out interface{}) error {
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int             `json:"code"`
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Auth", auth).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"id":     uuid.NewString(),
			"method": method,
			"params": params,
		}).
		Post("")
	if err != nil {
		return fmt.Errorf("%w: payme %s: %v", ErrUpstream, method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: payme %s status=%d", ErrUpstream, method, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("%w: payme %s returned unparseable body: %v", ErrUpstream, method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%w: payme %s error code=%d message=%s", ErrUpstream, method, envelope.Error.Code, string(envelope.Error.Message))
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%w: payme %s result: %v", ErrUpstream, method, err)
	}
	return nil
}

type paymeAccount struct {
	UserID       string `json:"user_id"`
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
	OrderID      string `json:"order_id"`
	Email        string `json:"email"`
}

type paymeRPCParams struct {
	ID      string       `json:"id"`
	Account paymeAccount `json:"account"`
}

type paymeReceipt struct {
	ID    string `json:"_id"`
	State int    `json:"state"`
}
