package types

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/labstack/echo/v4"
)

const maxWebhookBodyBytes = 1 << 20

type PricesRequest struct {
	Provider string `json:"provider" validate:"required,max=32"`
}

func NewPricesRequestFromContext(ctx echo.Context) (*PricesRequest, error) {
	return &PricesRequest{Provider: normalizeToken(ctx.Param("provider"))}, nil
}

func (r *PricesRequest) GetProvider() string { return r.Provider }

func (r *PricesRequest) Validate() error {
	return validateStruct(r)
}

type CheckoutRequest struct {
	Provider     string `json:"provider" validate:"required,max=32"`
	Plan         string `json:"plan" validate:"required,max=32"`
	UserID       string `json:"user_id" validate:"required,max=64"`
	BillingCycle string `json:"billing_cycle" validate:"required,max=16"`
	Yearly       *bool  `json:"yearly,omitempty"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

func NewCheckoutRequestFromContext(ctx echo.Context) (*CheckoutRequest, error) {
	var body CheckoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Provider = normalizeToken(ctx.Param("provider"))
	body.Plan = normalizeToken(ctx.Param("plan"))
	body.UserID = strings.TrimSpace(body.UserID)
	body.BillingCycle = cycleOrYearly(body.BillingCycle, body.Yearly)
	body.Phone = strings.TrimSpace(body.Phone)

	return &body, nil
}

func (r *CheckoutRequest) GetProvider() string     { return r.Provider }
func (r *CheckoutRequest) GetPlan() string         { return r.Plan }
func (r *CheckoutRequest) GetUserID() string       { return r.UserID }
func (r *CheckoutRequest) GetBillingCycle() string { return r.BillingCycle }
func (r *CheckoutRequest) GetPhone() string        { return r.Phone }

func (r *CheckoutRequest) Validate() error {
	return validateStruct(r)
}

type RecurringPayRequest struct {
	Provider     string `json:"provider" validate:"required,max=32"`
	UserID       string `json:"user_id" validate:"required,max=64"`
	Plan         string `json:"plan" validate:"required,max=32"`
	BillingCycle string `json:"billing_cycle" validate:"required,max=16"`
	Yearly       *bool  `json:"yearly,omitempty"`
}

func NewRecurringPayRequestFromContext(ctx echo.Context) (*RecurringPayRequest, error) {
	var body RecurringPayRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Provider = normalizeToken(ctx.Param("provider"))
	body.UserID = strings.TrimSpace(body.UserID)
	body.Plan = normalizeToken(body.Plan)
	body.BillingCycle = cycleOrYearly(body.BillingCycle, body.Yearly)

	return &body, nil
}

func (r *RecurringPayRequest) GetProvider() string     { return r.Provider }
func (r *RecurringPayRequest) GetUserID() string       { return r.UserID }
func (r *RecurringPayRequest) GetPlan() string         { return r.Plan }
func (r *RecurringPayRequest) GetBillingCycle() string { return r.BillingCycle }

func (r *RecurringPayRequest) Validate() error {
	return validateStruct(r)
}

type PaymentStatusRequest struct {
	Provider string `json:"provider" validate:"required,max=32"`
	OrderID  string `json:"order_id" validate:"required,max=255"`
}

func NewPaymentStatusRequestFromContext(ctx echo.Context) (*PaymentStatusRequest, error) {
	return &PaymentStatusRequest{
		Provider: normalizeToken(ctx.Param("provider")),
		OrderID:  strings.TrimSpace(ctx.Param("orderId")),
	}, nil
}

func (r *PaymentStatusRequest) GetProvider() string { return r.Provider }
func (r *PaymentStatusRequest) GetOrderID() string  { return r.OrderID }

func (r *PaymentStatusRequest) Validate() error {
	return validateStruct(r)
}

type CreateCardRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Number string `json:"number" validate:"required,numeric,min=12,max=19"`
	Expire string `json:"expire" validate:"required,numeric,len=4"`
}

func NewCreateCardRequestFromContext(ctx echo.Context) (*CreateCardRequest, error) {
	var body CreateCardRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.UserID = strings.TrimSpace(body.UserID)
	body.Number = strings.ReplaceAll(strings.TrimSpace(body.Number), " ", "")
	body.Expire = strings.ReplaceAll(strings.TrimSpace(body.Expire), "/", "")

	return &body, nil
}

func (r *CreateCardRequest) GetUserID() string { return r.UserID }
func (r *CreateCardRequest) GetNumber() string { return r.Number }
func (r *CreateCardRequest) GetExpire() string { return r.Expire }

func (r *CreateCardRequest) Validate() error {
	return validateStruct(r)
}

type VerifyCardRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Token  string `json:"token" validate:"required"`
	Code   string `json:"code" validate:"required,numeric,max=8"`
}

func NewVerifyCardRequestFromContext(ctx echo.Context) (*VerifyCardRequest, error) {
	var body VerifyCardRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.UserID = strings.TrimSpace(body.UserID)
	body.Token = strings.TrimSpace(body.Token)
	body.Code = strings.TrimSpace(body.Code)

	return &body, nil
}

func (r *VerifyCardRequest) GetUserID() string { return r.UserID }
func (r *VerifyCardRequest) GetToken() string  { return r.Token }
func (r *VerifyCardRequest) GetCode() string   { return r.Code }

func (r *VerifyCardRequest) Validate() error {
	return validateStruct(r)
}

type UserCreditsRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

func NewUserCreditsRequestFromContext(ctx echo.Context) (*UserCreditsRequest, error) {
	return &UserCreditsRequest{UserID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *UserCreditsRequest) GetUserID() string { return r.UserID }

func (r *UserCreditsRequest) Validate() error {
	return validateStruct(r)
}

type WebhookRequest struct {
	Provider    string
	Body        []byte
	ContentType string
	Header      http.Header
}

func NewWebhookRequestFromContext(ctx echo.Context) (*WebhookRequest, error) {
	httpReq := ctx.Request()

	var body []byte
	if httpReq.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(httpReq.Body, maxWebhookBodyBytes+1))
		if err != nil {
			return nil, err
		}
		if len(raw) > maxWebhookBodyBytes {
			return nil, errors.New("request body too large")
		}
		body = raw
	}

	return &WebhookRequest{
		Provider:    normalizeToken(ctx.Param("provider")),
		Body:        body,
		ContentType: httpReq.Header.Get(echo.HeaderContentType),
		Header:      httpReq.Header.Clone(),
	}, nil
}

func (r *WebhookRequest) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	return nil
}

func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func cycleOrYearly(raw string, yearly *bool) string {
	cycle := normalizeToken(raw)
	if cycle == "" && yearly != nil {
		return string(plan.CycleFromYearly(*yearly))
	}
	return cycle
}
