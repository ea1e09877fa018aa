package types

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newJSONContext(method, target, body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestNewCheckoutRequestFromContextNormalizesInput(t *testing.T) {
	ctx := newJSONContext(http.MethodPost, "/billing/Payme/checkout/Starter", `{"user_id":" u-1 ","billing_cycle":"Yearly","phone":" 998901234567 "}`)
	ctx.SetParamNames("provider", "plan")
	ctx.SetParamValues(" Payme ", "Starter")

	req, err := NewCheckoutRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.GetProvider() != "payme" || req.GetPlan() != "starter" {
		t.Fatalf("unexpected provider/plan %q/%q", req.GetProvider(), req.GetPlan())
	}
	if req.GetUserID() != "u-1" || req.GetBillingCycle() != "yearly" || req.GetPhone() != "998901234567" {
		t.Fatalf("unexpected normalized request: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewCheckoutRequestFromContextYearlyFlag(t *testing.T) {
	ctx := newJSONContext(http.MethodPost, "/billing/paddle/checkout/business", `{"user_id":"u-1","yearly":true}`)
	ctx.SetParamNames("provider", "plan")
	ctx.SetParamValues("paddle", "business")

	req, err := NewCheckoutRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.GetBillingCycle() != "yearly" {
		t.Fatalf("expected yearly cycle from flag, got %q", req.GetBillingCycle())
	}
}

func TestCheckoutRequestValidate(t *testing.T) {
	req := &CheckoutRequest{Provider: "payme", Plan: "starter", BillingCycle: "monthly"}
	err := req.Validate()
	if err == nil || err.Error() != "user_id is required" {
		t.Fatalf("expected user_id error, got %v", err)
	}

	req.UserID = "u-1"
	req.Phone = strings.Repeat("9", 40)
	err = req.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "phone must be at most") {
		t.Fatalf("expected phone length error, got %v", err)
	}

	req.Phone = ""
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewCheckoutRequestFromContextInvalidJSON(t *testing.T) {
	ctx := newJSONContext(http.MethodPost, "/billing/payme/checkout/starter", `{"user_id":`)
	ctx.SetParamNames("provider", "plan")
	ctx.SetParamValues("payme", "starter")

	if _, err := NewCheckoutRequestFromContext(ctx); err == nil {
		t.Fatal("expected bind error")
	}
}

func TestRecurringPayRequest(t *testing.T) {
	ctx := newJSONContext(http.MethodPost, "/billing/freedompay/recurring/pay", `{"user_id":"u-9","plan":"PRO","billing_cycle":"monthly"}`)
	ctx.SetParamNames("provider")
	ctx.SetParamValues("freedompay")

	req, err := NewRecurringPayRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.GetPlan() != "pro" || req.GetProvider() != "freedompay" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	empty := &RecurringPayRequest{Provider: "freedompay", UserID: "u-9"}
	if err := empty.Validate(); err == nil || err.Error() != "plan is required" {
		t.Fatalf("expected plan error, got %v", err)
	}
}

func TestCardRequests(t *testing.T) {
	ctx := newJSONContext(http.MethodPost, "/billing/payme/cards", `{"user_id":"u-1","number":"8600 4954 7331 6478","expire":"03/99"}`)
	req, err := NewCreateCardRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.GetNumber() != "8600495473316478" || req.GetExpire() != "0399" {
		t.Fatalf("unexpected card fields: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req.Expire = "399"
	if err := req.Validate(); err == nil || err.Error() != "expire must be exactly 4 characters long" {
		t.Fatalf("expected expire error, got %v", err)
	}

	verify := &VerifyCardRequest{UserID: "u-1", Token: "tok", Code: "abc"}
	if err := verify.Validate(); err == nil || err.Error() != "code must be numeric" {
		t.Fatalf("expected numeric code error, got %v", err)
	}
	verify.Code = "666666"
	if err := verify.Validate(); err != nil {
		t.Fatalf("expected valid verify request, got %v", err)
	}
}

func TestPathOnlyRequests(t *testing.T) {
	e := echo.New()
	ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/billing/paddle/status/txn_1", nil), httptest.NewRecorder())
	ctx.SetParamNames("provider", "orderId")
	ctx.SetParamValues("PADDLE", " txn_1 ")

	status, _ := NewPaymentStatusRequestFromContext(ctx)
	if status.GetProvider() != "paddle" || status.GetOrderID() != "txn_1" {
		t.Fatalf("unexpected status request: %+v", status)
	}
	if err := status.Validate(); err != nil {
		t.Fatalf("expected valid status request, got %v", err)
	}

	ctx = e.NewContext(httptest.NewRequest(http.MethodGet, "/users//credits", nil), httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues(" ")
	credits, _ := NewUserCreditsRequestFromContext(ctx)
	if err := credits.Validate(); err == nil || err.Error() != "user_id is required" {
		t.Fatalf("expected user_id error, got %v", err)
	}

	prices, _ := NewPricesRequestFromContext(ctx)
	if err := prices.Validate(); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestNewWebhookRequestFromContextKeepsRawBody(t *testing.T) {
	e := echo.New()
	body := `pg_order_id=u-1_starter_monthly_1&pg_result=1`
	httpReq := httptest.NewRequest(http.MethodPost, "/webhooks/freedompay", strings.NewReader(body))
	httpReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	httpReq.Header.Set("X-Custom", "1")
	ctx := e.NewContext(httpReq, httptest.NewRecorder())
	ctx.SetParamNames("provider")
	ctx.SetParamValues("FreedomPay")

	req, err := NewWebhookRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(req.Body) != body {
		t.Fatalf("expected raw body, got %q", string(req.Body))
	}
	if req.Provider != "freedompay" || req.ContentType != echo.MIMEApplicationForm || req.Header.Get("X-Custom") != "1" {
		t.Fatalf("unexpected webhook request: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid webhook request, got %v", err)
	}
}

func TestNewWebhookRequestFromContextRejectsHugeBody(t *testing.T) {
	e := echo.New()
	httpReq := httptest.NewRequest(http.MethodPost, "/webhooks/payme", bytes.NewReader(make([]byte, maxWebhookBodyBytes+10)))
	ctx := e.NewContext(httpReq, httptest.NewRecorder())
	ctx.SetParamNames("provider")
	ctx.SetParamValues("payme")

	if _, err := NewWebhookRequestFromContext(ctx); err == nil {
		t.Fatal("expected body size error")
	}
}
