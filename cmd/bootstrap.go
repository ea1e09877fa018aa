package cmd

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/callmind/ms-go-billing/app/provider"
	"github.com/callmind/ms-go-billing/app/repository"
	"github.com/callmind/ms-go-billing/app/service"
	"github.com/callmind/ms-go-billing/config"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type services struct {
	db      *sql.DB
	billing *service.BillingService
	webhook *service.WebhookService
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func configureLogging(cfg *config.Config) error {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if cfg.Database.Driver == "sqlite" {
		// sqlite serializes writers; one connection keeps the ledger transactions ordered
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func newProviderRegistry(cfg *config.Config) *provider.Registry {
	return provider.NewRegistry(
		provider.NewFreedomPayProvider(provider.FreedomPayConfig{
			MerchantID:  cfg.FreedomPay.MerchantID,
			SecretKey:   cfg.FreedomPay.SecretKey,
			BaseURL:     cfg.FreedomPay.BaseURL,
			ResultURL:   cfg.FreedomPay.ResultURL,
			SuccessURL:  cfg.FreedomPay.SuccessURL,
			FailureURL:  cfg.FreedomPay.FailureURL,
			Currency:    cfg.FreedomPay.Currency,
			TestingMode: cfg.FreedomPay.TestingMode,
			HTTPTimeout: cfg.FreedomPay.HTTPTimeout,
		}),
		provider.NewPaymeProvider(provider.PaymeConfig{
			MerchantID:  cfg.Payme.MerchantID,
			SecretKey:   cfg.Payme.SecretKey,
			CheckoutURL: cfg.Payme.CheckoutURL,
			APIURL:      cfg.Payme.APIURL,
			ReturnURL:   cfg.Payme.ReturnURL,
			HTTPTimeout: cfg.Payme.HTTPTimeout,
		}),
		provider.NewPaddleProvider(provider.PaddleConfig{
			APIKey:                    cfg.Paddle.APIKey,
			WebhookSecret:             cfg.Paddle.WebhookSecret,
			BaseURL:                   cfg.Paddle.BaseURL,
			SignatureToleranceSeconds: cfg.Paddle.SignatureToleranceSeconds,
			HTTPTimeout:               cfg.Paddle.HTTPTimeout,
		}),
	)
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)

	userRepo := repository.NewUserRepository(db)
	grantRepo := repository.NewCreditGrantRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	registry := newProviderRegistry(cfg)
	ledger := service.NewCreditLedger(grantRepo)

	svc := &services{
		db:      db,
		billing: service.NewBillingService(registry, cfg.Plans, userRepo, ledger),
		webhook: service.NewWebhookService(registry, eventRepo, userRepo, ledger, cfg.Webhooks),
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svc, cleanup
}
