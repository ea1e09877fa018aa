package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	Database          DatabaseConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	FreedomPay        FreedomPayConfig
	Payme             PaymeConfig
	Paddle            PaddleConfig
	Plans             PlansConfig
	Webhooks          WebhooksConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

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

type PaymeConfig struct {
	MerchantID  string
	SecretKey   string
	CheckoutURL string
	APIURL      string
	ReturnURL   string
	HTTPTimeout time.Duration
}

type PaddleConfig struct {
	APIKey                    string
	WebhookSecret             string
	BaseURL                   string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type PlansConfig struct {
	FreedomPay plan.PriceTable
	Payme      plan.PriceTable
	Paddle     plan.PriceTable
}

type WebhooksConfig struct {
	RequireSignature   bool
	RateLimitPerSecond float64
	RateLimitBurst     int
	RetryMaxAttempts   int32
	RetryInterval      time.Duration
	JobBatchSize       int32
}

type JobsConfig struct {
	WebhookRetryInterval time.Duration
}

var defaultFreedomPayPrices = plan.PriceTable{
	"starter_monthly":      {Amount: 4990},
	"starter_yearly":       {Amount: 49900},
	"professional_monthly": {Amount: 19990},
	"professional_yearly":  {Amount: 199900},
	"business_monthly":     {Amount: 39990},
	"business_yearly":      {Amount: 399900},
}

var defaultPaymePrices = plan.PriceTable{
	"starter_monthly":      {Amount: 149000},
	"starter_yearly":       {Amount: 1490000},
	"professional_monthly": {Amount: 590000},
	"professional_yearly":  {Amount: 5900000},
	"business_monthly":     {Amount: 990000},
	"business_yearly":      {Amount: 9900000},
}

var defaultPaddlePrices = plan.PriceTable{
	"starter_monthly":      {Amount: 15},
	"starter_yearly":       {Amount: 150},
	"professional_monthly": {Amount: 49},
	"professional_yearly":  {Amount: 490},
	"business_monthly":     {Amount: 99},
	"business_yearly":      {Amount: 990},
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, errors.New("DB_DSN environment variable is required")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	if driver != "mysql" && driver != "sqlite" {
		return nil, errors.New("DB_DRIVER must be mysql or sqlite")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		FreedomPay: FreedomPayConfig{
			MerchantID:  getEnv("FREEDOMPAY_MERCHANT_ID", ""),
			SecretKey:   getEnv("FREEDOMPAY_SECRET_KEY", ""),
			BaseURL:     getEnv("FREEDOMPAY_BASE_URL", "https://api.freedompay.kz"),
			ResultURL:   getEnv("FREEDOMPAY_RESULT_URL", ""),
			SuccessURL:  getEnv("FREEDOMPAY_SUCCESS_URL", ""),
			FailureURL:  getEnv("FREEDOMPAY_FAILURE_URL", ""),
			Currency:    getEnv("FREEDOMPAY_CURRENCY", "KZT"),
			TestingMode: getBoolEnv("FREEDOMPAY_TESTING_MODE", false),
			HTTPTimeout: getSecondsEnv("FREEDOMPAY_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Payme: PaymeConfig{
			MerchantID:  getEnv("PAYME_MERCHANT_ID", ""),
			SecretKey:   getEnv("PAYME_SECRET_KEY", ""),
			CheckoutURL: getEnv("PAYME_CHECKOUT_URL", "https://checkout.paycom.uz"),
			APIURL:      getEnv("PAYME_API_URL", "https://checkout.paycom.uz/api"),
			ReturnURL:   getEnv("PAYME_RETURN_URL", ""),
			HTTPTimeout: getSecondsEnv("PAYME_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Paddle: PaddleConfig{
			APIKey:                    getEnv("PADDLE_API_KEY", ""),
			WebhookSecret:             getEnv("PADDLE_WEBHOOK_SECRET", ""),
			BaseURL:                   getEnv("PADDLE_BASE_URL", "https://api.paddle.com"),
			SignatureToleranceSeconds: int64(getIntEnv("PADDLE_SIGNATURE_TOLERANCE_SECONDS", 300)),
			HTTPTimeout:               getSecondsEnv("PADDLE_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Plans: LoadPlans(),
		Webhooks: WebhooksConfig{
			RequireSignature:   getBoolEnv("WEBHOOKS_REQUIRE_SIGNATURE", false),
			RateLimitPerSecond: getFloatEnv("WEBHOOKS_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getIntEnv("WEBHOOKS_RATE_LIMIT_BURST", 40),
			RetryMaxAttempts:   int32(getIntEnv("WEBHOOKS_RETRY_MAX_ATTEMPTS", 10)),
			RetryInterval:      getMinutesEnv("WEBHOOKS_RETRY_INTERVAL_MINUTES", 10*time.Minute),
			JobBatchSize:       int32(getIntEnv("WEBHOOKS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			WebhookRetryInterval: getMinutesEnv("WEBHOOKS_RETRY_JOB_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

// LoadPlans builds the price tables: FREEDOMPAY_<PLAN>_<CYCLE> and PAYME_<PLAN>_<CYCLE>
// override amounts. A Paddle entry exists only when PADDLE_<PLAN>_<CYCLE>_PRICE_ID is set.
func LoadPlans() PlansConfig {
	plans := PlansConfig{
		FreedomPay: plan.PriceTable{},
		Payme:      plan.PriceTable{},
		Paddle:     plan.PriceTable{},
	}

	for _, tier := range plan.Purchasable() {
		for _, cycle := range plan.Cycles() {
			key := plan.Key(tier, cycle)
			suffix := tier.EnvToken() + "_" + cycle.EnvToken()

			plans.FreedomPay[key] = plan.Price{
				Amount: getInt64Env("FREEDOMPAY_"+suffix, defaultFreedomPayPrices[key].Amount),
			}
			plans.Payme[key] = plan.Price{
				Amount: getInt64Env("PAYME_"+suffix, defaultPaymePrices[key].Amount),
			}
			if priceID := getEnv("PADDLE_"+suffix+"_PRICE_ID", ""); priceID != "" {
				plans.Paddle[key] = plan.Price{
					Amount:  getInt64Env("PADDLE_"+suffix+"_AMOUNT", defaultPaddlePrices[key].Amount),
					PriceID: priceID,
				}
			}
		}
	}

	return plans
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
