package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/callmind/ms-go-billing/app/provider"
	"github.com/callmind/ms-go-billing/config"
)

type checkoutReq struct {
	provider, plan, cycle, userID, phone string
}

func (r checkoutReq) GetProvider() string     { return r.provider }
func (r checkoutReq) GetPlan() string         { return r.plan }
func (r checkoutReq) GetBillingCycle() string { return r.cycle }
func (r checkoutReq) GetUserID() string       { return r.userID }
func (r checkoutReq) GetPhone() string        { return r.phone }

type cardReq struct {
	userID, number, expire, token, code string
}

func (r cardReq) GetUserID() string { return r.userID }
func (r cardReq) GetNumber() string { return r.number }
func (r cardReq) GetExpire() string { return r.expire }
func (r cardReq) GetToken() string  { return r.token }
func (r cardReq) GetCode() string   { return r.code }

func testPlans() config.PlansConfig {
	freedomPay := plan.PriceTable{}
	payme := plan.PriceTable{}
	paddle := plan.PriceTable{}
	for _, tier := range plan.Purchasable() {
		for _, cycle := range plan.Cycles() {
			key := plan.Key(tier, cycle)
			freedomPay[key] = plan.Price{Amount: 1000 * plan.Credits(tier, cycle) / 200}
			payme[key] = plan.Price{Amount: 149000 * cycle.Multiplier()}
			paddle[key] = plan.Price{Amount: 15, PriceID: "pri_" + key}
		}
	}
	return config.PlansConfig{FreedomPay: freedomPay, Payme: payme, Paddle: paddle}
}

func newTestBillingService(store *fakeStore, registry *provider.Registry) *BillingService {
	svc := NewBillingService(registry, testPlans(), store, NewCreditLedger(store))
	svc.now = func() time.Time { return time.UnixMilli(1_700_000_000_000).UTC() }
	return svc
}

func TestPricesIncludeMinorAmountsAndCredits(t *testing.T) {
	svc := newTestBillingService(newFakeStore(), testRegistry())

	quotes, err := svc.Prices("payme")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(quotes) != 6 {
		t.Fatalf("expected 6 quotes, got %d", len(quotes))
	}
	for _, q := range quotes {
		if q.AmountMinor != q.Amount*100 {
			t.Fatalf("%s: expected amount_minor=%d, got %d", q.Key, q.Amount*100, q.AmountMinor)
		}
		if q.Credits != plan.Credits(q.Tier, q.Cycle) {
			t.Fatalf("%s: unexpected credits %d", q.Key, q.Credits)
		}
	}

	if _, err := svc.Prices("stripe"); !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected ErrProviderUnsupported, got %v", err)
	}
}

func TestBuildCheckoutAmountsAndOrderIDForAllPlans(t *testing.T) {
	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	svc := newTestBillingService(store, testRegistry())

	for _, tier := range plan.Purchasable() {
		for _, cycle := range plan.Cycles() {
			result, err := svc.BuildCheckout(context.Background(), checkoutReq{
				provider: "payme", plan: string(tier), cycle: string(cycle), userID: "u1",
			})
			if err != nil {
				t.Fatalf("%s/%s: expected no error, got %v", tier, cycle, err)
			}

			price, _ := testPlans().Payme.Lookup(tier, cycle)
			if result.Amount != price.Amount || result.AmountMinor != price.Amount*100 {
				t.Fatalf("%s/%s: unexpected amounts %d/%d", tier, cycle, result.Amount, result.AmountMinor)
			}
			for _, part := range []string{"u1", string(tier), string(cycle)} {
				if !strings.Contains(result.OrderID, part) {
					t.Fatalf("order id %q should contain %q", result.OrderID, part)
				}
			}
			if result.OrderID != "u1_"+string(tier)+"_"+string(cycle)+"_1700000000000" {
				t.Fatalf("unexpected order id: %s", result.OrderID)
			}
			if result.CheckoutURL == "" {
				t.Fatal("expected checkout url")
			}
		}
	}
}

func TestBuildCheckoutErrors(t *testing.T) {
	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	svc := newTestBillingService(store, testRegistry())

	tests := []struct {
		name string
		req  checkoutReq
		want error
	}{
		{name: "unknown plan", req: checkoutReq{provider: "payme", plan: "platinum", cycle: "monthly", userID: "u1"}, want: ErrInvalidPlan},
		{name: "free plan", req: checkoutReq{provider: "payme", plan: "free", cycle: "monthly", userID: "u1"}, want: ErrInvalidPlan},
		{name: "unknown cycle", req: checkoutReq{provider: "payme", plan: "starter", cycle: "weekly", userID: "u1"}, want: ErrInvalidPlan},
		{name: "unknown provider", req: checkoutReq{provider: "stripe", plan: "starter", cycle: "monthly", userID: "u1"}, want: ErrProviderUnsupported},
		{name: "missing user id", req: checkoutReq{provider: "payme", plan: "starter", cycle: "monthly"}, want: ErrInvalidRequest},
		{name: "unknown user", req: checkoutReq{provider: "payme", plan: "starter", cycle: "monthly", userID: "ghost"}, want: ErrUserNotFound},
		{name: "paddle without api key", req: checkoutReq{provider: "paddle", plan: "starter", cycle: "monthly", userID: "u1"}, want: ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BuildCheckout(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildCheckoutMissingPriceIsInvalidPlan(t *testing.T) {
	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	svc := newTestBillingService(store, testRegistry())
	delete(svc.plans.Payme, plan.Key(plan.TierStarter, plan.CycleMonthly))

	_, err := svc.BuildCheckout(context.Background(), checkoutReq{provider: "payme", plan: "starter", cycle: "monthly", userID: "u1"})
	if !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestPaddleWithoutPriceIDIsInvalidPlan(t *testing.T) {
	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	svc := newTestBillingService(store, testRegistry())
	key := plan.Key(plan.TierBusiness, plan.CycleMonthly)
	svc.plans.Paddle[key] = plan.Price{Amount: 15}

	_, err := svc.BuildCheckout(context.Background(), checkoutReq{provider: "paddle", plan: "business", cycle: "monthly", userID: "u1"})
	if !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}

	quotes, err := svc.Prices("paddle")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, quote := range quotes {
		if quote.Key == key {
			t.Fatalf("expected %s to be hidden from prices", key)
		}
	}
	if len(quotes) != 5 {
		t.Fatalf("expected five paddle prices, got %d", len(quotes))
	}
}

func TestBuildCheckoutFreedomPayUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<response><pg_status>error</pg_status><pg_error_description>declined</pg_error_description></response>`))
	}))
	defer server.Close()

	registry := provider.NewRegistry(provider.NewFreedomPayProvider(provider.FreedomPayConfig{
		MerchantID: "552170", SecretKey: testFreedomPaySecret, BaseURL: server.URL,
	}))
	svc := newTestBillingService(newFakeStore(&entity.User{ID: "u1", Plan: "free"}), registry)

	_, err := svc.BuildCheckout(context.Background(), checkoutReq{provider: "freedompay", plan: "starter", cycle: "monthly", userID: "u1"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	registry = provider.NewRegistry(provider.NewFreedomPayProvider(provider.FreedomPayConfig{BaseURL: server.URL}))
	svc = newTestBillingService(newFakeStore(&entity.User{ID: "u1", Plan: "free"}), registry)
	_, err = svc.BuildCheckout(context.Background(), checkoutReq{provider: "freedompay", plan: "starter", cycle: "monthly", userID: "u1"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func newPaymeAPIServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":` + result + `}`))
	}))
}

func TestRecurringPayPaymeGrantsOncePerReceipt(t *testing.T) {
	server := newPaymeAPIServer(t, map[string]string{
		"receipts.create": `{"receipt":{"_id":"rcpt-1","state":0}}`,
		"receipts.pay":    `{"receipt":{"_id":"rcpt-1","state":4}}`,
	})
	defer server.Close()

	token := "tok-1"
	store := newFakeStore(&entity.User{ID: "u1", Plan: "starter", PaymeCardToken: &token})
	registry := provider.NewRegistry(provider.NewPaymeProvider(provider.PaymeConfig{MerchantID: "m-1", SecretKey: testPaymeSecret, APIURL: server.URL}))
	svc := newTestBillingService(store, registry)

	req := checkoutReq{provider: "payme", plan: "starter", cycle: "monthly", userID: "u1"}
	result, err := svc.RecurringPay(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Paid || result.CreditsGranted != 200 || result.Duplicate {
		t.Fatalf("unexpected result: %+v", result)
	}

	again, err := svc.RecurringPay(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !again.Duplicate {
		t.Fatal("expected the same receipt id to be recognized as already credited")
	}
	if store.credits("u1") != 200 {
		t.Fatalf("expected 200 credits, got %d", store.credits("u1"))
	}
}

func TestRecurringPayErrors(t *testing.T) {
	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	svc := newTestBillingService(store, testRegistry())

	_, err := svc.RecurringPay(context.Background(), checkoutReq{provider: "paddle", plan: "starter", cycle: "monthly", userID: "u1"})
	if !errors.Is(err, ErrRecurringUnsupported) {
		t.Fatalf("expected ErrRecurringUnsupported, got %v", err)
	}

	registry := provider.NewRegistry(provider.NewFreedomPayProvider(provider.FreedomPayConfig{MerchantID: "1", SecretKey: "s", BaseURL: "http://127.0.0.1:1"}))
	svc = newTestBillingService(store, registry)
	_, err = svc.RecurringPay(context.Background(), checkoutReq{provider: "freedompay", plan: "starter", cycle: "monthly", userID: "u1"})
	if !errors.Is(err, ErrRecurringNotSetUp) {
		t.Fatalf("expected ErrRecurringNotSetUp, got %v", err)
	}
}

func TestPaymeCardBindingStoresToken(t *testing.T) {
	server := newPaymeAPIServer(t, map[string]string{
		"cards.create":          `{"card":{"number":"860006******6311","token":"tok-9","verify":false}}`,
		"cards.get_verify_code": `{"sent":true,"phone":"99890*****31","wait":60000}`,
		"cards.verify":          `{"card":{"number":"860006******6311","token":"tok-9","verify":true}}`,
	})
	defer server.Close()

	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	registry := provider.NewRegistry(provider.NewPaymeProvider(provider.PaymeConfig{MerchantID: "m-1", SecretKey: testPaymeSecret, APIURL: server.URL}))
	svc := newTestBillingService(store, registry)

	created, err := svc.CreatePaymeCard(context.Background(), cardReq{userID: "u1", number: "8600069195406311", expire: "0399"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Token != "tok-9" || !created.CodeSent || created.WaitMillis != 60000 {
		t.Fatalf("unexpected card: %+v", created)
	}

	verified, err := svc.VerifyPaymeCard(context.Background(), cardReq{userID: "u1", token: "tok-9", code: "666666"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !verified.Verified {
		t.Fatal("expected verified card")
	}
	if token := store.users["u1"].PaymeCardToken; token == nil || *token != "tok-9" {
		t.Fatalf("expected stored card token, got %v", token)
	}

	if _, err := svc.CreatePaymeCard(context.Background(), cardReq{userID: "ghost", number: "1", expire: "1"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserCreditsAndStatus(t *testing.T) {
	store := newFakeStore(&entity.User{ID: "u1", Plan: "free"})
	svc := newTestBillingService(store, testRegistry())

	if _, err := svc.ledger.GrantCredits(context.Background(), GrantInput{
		UserID: "u1", Provider: "payme", ProviderPaymentID: "tx-1", Tier: plan.TierStarter, Cycle: plan.CycleMonthly,
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	user, grants, err := svc.GetUserCredits(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Credits != 200 || len(grants) != 1 {
		t.Fatalf("unexpected user=%+v grants=%d", user, len(grants))
	}

	if _, _, err := svc.GetUserCredits(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.PaymentStatus(context.Background(), "payme", " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
