package config

import (
	"os"
	"testing"
	"time"

	"github.com/callmind/ms-go-billing/app/plan"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresDSN(t *testing.T) {
	unsetEnv(t, "DB_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing DB_DSN")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setEnv(t, "DB_DSN", "file::memory:")
	setEnv(t, "DB_DRIVER", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported DB_DRIVER")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "DB_DSN", "root:root@tcp(localhost:3306)/billing?parseTime=true")
	unsetEnv(t, "DB_DRIVER")
	setEnv(t, "APP_SERVICE_NAME", "billing-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "GRPC_PORT", "9191")
	setEnv(t, "DB_MAX_OPEN_CONNS", "20")
	setEnv(t, "DB_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "FREEDOMPAY_MERCHANT_ID", "552170")
	setEnv(t, "FREEDOMPAY_TESTING_MODE", "true")
	setEnv(t, "PADDLE_SIGNATURE_TOLERANCE_SECONDS", "60")
	setEnv(t, "WEBHOOKS_REQUIRE_SIGNATURE", "true")
	setEnv(t, "WEBHOOKS_RATE_LIMIT_PER_SECOND", "2.5")
	setEnv(t, "WEBHOOKS_RETRY_INTERVAL_MINUTES", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "billing-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" || cfg.GRPC.Port != "9191" {
		t.Fatalf("unexpected ports: http=%s grpc=%s", cfg.HTTP.Port, cfg.GRPC.Port)
	}
	if cfg.Database.Driver != "mysql" || cfg.Database.MaxOpenConns != 20 {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Database.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected db lifetime: %v", cfg.Database.ConnMaxLifetime)
	}
	if cfg.FreedomPay.MerchantID != "552170" || !cfg.FreedomPay.TestingMode {
		t.Fatalf("unexpected freedompay config: %+v", cfg.FreedomPay)
	}
	if cfg.FreedomPay.BaseURL != "https://api.freedompay.kz" {
		t.Fatalf("unexpected freedompay base url: %s", cfg.FreedomPay.BaseURL)
	}
	if cfg.Paddle.SignatureToleranceSeconds != 60 {
		t.Fatalf("unexpected paddle tolerance: %d", cfg.Paddle.SignatureToleranceSeconds)
	}
	if !cfg.Webhooks.RequireSignature || cfg.Webhooks.RateLimitPerSecond != 2.5 {
		t.Fatalf("unexpected webhooks config: %+v", cfg.Webhooks)
	}
	if cfg.Webhooks.RetryInterval != 3*time.Minute {
		t.Fatalf("unexpected retry interval: %v", cfg.Webhooks.RetryInterval)
	}
}

func TestLoadPlansUsesDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "FREEDOMPAY_STARTER_MONTHLY", "1234")
	setEnv(t, "PAYME_PRO_YEARLY", "777000")
	setEnv(t, "PADDLE_BUSINESS_MONTHLY_PRICE_ID", "pri_business_monthly")
	unsetEnv(t, "PAYME_STARTER_MONTHLY")

	plans := LoadPlans()

	if p, _ := plans.FreedomPay.Lookup(plan.TierStarter, plan.CycleMonthly); p.Amount != 1234 {
		t.Fatalf("expected freedompay override, got %+v", p)
	}
	if p, _ := plans.Payme.Lookup(plan.TierProfessional, plan.CycleYearly); p.Amount != 777000 {
		t.Fatalf("expected payme override, got %+v", p)
	}
	if p, _ := plans.Payme.Lookup(plan.TierStarter, plan.CycleMonthly); p.Amount != defaultPaymePrices["starter_monthly"].Amount {
		t.Fatalf("expected payme default, got %+v", p)
	}
	if p, _ := plans.Paddle.Lookup(plan.TierBusiness, plan.CycleMonthly); p.PriceID != "pri_business_monthly" || p.Amount != 99 {
		t.Fatalf("unexpected paddle price: %+v", p)
	}
	if got := len(plans.Paddle.Entries()); got != 1 {
		t.Fatalf("expected only the paddle entry with a price id, got %d", got)
	}
	if len(plans.FreedomPay.Entries()) != 6 {
		t.Fatalf("expected six freedompay entries, got %d", len(plans.FreedomPay.Entries()))
	}
}
