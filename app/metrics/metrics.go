package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billing",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	webhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by provider and resulting state",
		},
		[]string{"provider", "result"},
	)

	signatureSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "webhook",
			Name:      "signature_skipped_total",
			Help:      "Webhook deliveries accepted without signature verification",
		},
		[]string{"provider"},
	)

	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "checkout",
			Name:      "requests_total",
			Help:      "Checkout attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billing",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of outbound provider calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"provider", "operation"},
	)

	creditsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "ledger",
			Name:      "credits_granted_total",
			Help:      "Credits granted by provider and plan",
		},
		[]string{"provider", "plan"},
	)

	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Background job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			method := c.Request().Method

			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordWebhook(provider, result string) {
	webhooksTotal.WithLabelValues(provider, result).Inc()
}

func RecordSignatureSkipped(provider string) {
	signatureSkippedTotal.WithLabelValues(provider).Inc()
}

func RecordCheckout(provider, outcome string) {
	checkoutsTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordProviderCall(provider, operation string, duration time.Duration) {
	providerCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

func RecordCreditsGranted(provider, plan string, credits int64) {
	creditsGrantedTotal.WithLabelValues(provider, plan).Add(float64(credits))
}

func RecordJobRun(job, outcome string) {
	jobRunsTotal.WithLabelValues(job, outcome).Inc()
}
