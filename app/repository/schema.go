package repository

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NOT NULL DEFAULT '',
		plan VARCHAR(32) NOT NULL DEFAULT 'free',
		credits BIGINT NOT NULL DEFAULT 0,
		freedompay_recurring_profile_id VARCHAR(128) NULL,
		payme_card_token VARCHAR(512) NULL,
		paddle_customer_id VARCHAR(128) NULL,
		paddle_subscription_id VARCHAR(128) NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		KEY idx_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		provider VARCHAR(20) NOT NULL,
		provider_event_id VARCHAR(191) NOT NULL DEFAULT '',
		provider_payment_id VARCHAR(191) NOT NULL DEFAULT '',
		event_type VARCHAR(100) NOT NULL DEFAULT '',
		payment_status VARCHAR(50) NOT NULL DEFAULT '',
		user_ref VARCHAR(191) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		plan VARCHAR(32) NOT NULL DEFAULT '',
		billing_cycle VARCHAR(16) NOT NULL DEFAULT '',
		customer_id VARCHAR(128) NULL,
		subscription_id VARCHAR(128) NULL,
		recurring_ref VARCHAR(512) NULL,
		signature VARCHAR(512) NOT NULL DEFAULT '',
		payload_json LONGTEXT NOT NULL,
		status INT NOT NULL DEFAULT 0,
		attempts INT NOT NULL DEFAULT 0,
		next_attempt_at DATETIME(6) NULL,
		error TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		KEY idx_webhook_events_status_next (status, next_attempt_at),
		KEY idx_webhook_events_provider_payment (provider, provider_payment_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS credit_grants (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		provider VARCHAR(20) NOT NULL,
		provider_payment_id VARCHAR(191) NOT NULL,
		webhook_event_id BIGINT UNSIGNED NULL,
		plan VARCHAR(32) NOT NULL,
		billing_cycle VARCHAR(16) NOT NULL,
		credits BIGINT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY ux_credit_grants_provider_payment (provider, provider_payment_id),
		KEY idx_credit_grants_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		plan TEXT NOT NULL DEFAULT 'free',
		credits INTEGER NOT NULL DEFAULT 0,
		freedompay_recurring_profile_id TEXT NULL,
		payme_card_token TEXT NULL,
		paddle_customer_id TEXT NULL,
		paddle_subscription_id TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users (email)`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		provider_event_id TEXT NOT NULL DEFAULT '',
		provider_payment_id TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL DEFAULT '',
		user_ref TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		plan TEXT NOT NULL DEFAULT '',
		billing_cycle TEXT NOT NULL DEFAULT '',
		customer_id TEXT NULL,
		subscription_id TEXT NULL,
		recurring_ref TEXT NULL,
		signature TEXT NOT NULL DEFAULT '',
		payload_json TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		next_attempt_at DATETIME NULL,
		error TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_events_status_next ON webhook_events (status, next_attempt_at)`,
	`CREATE TABLE IF NOT EXISTS credit_grants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		provider_payment_id TEXT NOT NULL,
		webhook_event_id INTEGER NULL,
		plan TEXT NOT NULL,
		billing_cycle TEXT NOT NULL,
		credits INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_credit_grants_provider_payment ON credit_grants (provider, provider_payment_id)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_grants_user ON credit_grants (user_id)`,
}

func Migrate(ctx context.Context, db DBTX, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = mysqlSchema
	case "sqlite":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
