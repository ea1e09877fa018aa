package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordWebhookIncrementsCounter(t *testing.T) {
	counter := webhooksTotal.WithLabelValues("payme", "credited")
	before := testutil.ToFloat64(counter)
	RecordWebhook("payme", "credited")
	RecordWebhook("payme", "credited")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected two increments, got %v", got)
	}
}

func TestRecordCreditsGrantedAddsAmount(t *testing.T) {
	counter := creditsGrantedTotal.WithLabelValues("freedompay", "business")
	before := testutil.ToFloat64(counter)
	RecordCreditsGranted("freedompay", "business", 24000)

	if got := testutil.ToFloat64(counter) - before; got != 24000 {
		t.Fatalf("expected 24000 credits, got %v", got)
	}
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/billing/:provider/prices", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/billing/:provider/prices", "204")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/payme/prices", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected one request recorded, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordCheckout("paddle", "ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "billing_checkout_requests_total") {
		t.Fatal("expected checkout counter in exposition")
	}
}
