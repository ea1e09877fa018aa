package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
)

var ErrWebhookEventNotFound = errors.New("webhook event not found")

const webhookEventColumns = `id, provider, provider_event_id, provider_payment_id, event_type, payment_status,
	user_ref, email, plan, billing_cycle, customer_id, subscription_id, recurring_ref,
	signature, payload_json, status, attempts, next_attempt_at, error, created_at, updated_at`

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			provider, provider_event_id, provider_payment_id, event_type, payment_status,
			user_ref, email, plan, billing_cycle, customer_id, subscription_id, recurring_ref,
			signature, payload_json, status, attempts, next_attempt_at, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.Provider,
		event.ProviderEventID,
		event.ProviderPaymentID,
		event.EventType,
		event.PaymentStatus,
		event.UserRef,
		event.Email,
		event.Plan,
		event.Cycle,
		nullableStringValue(event.CustomerID),
		nullableStringValue(event.SubscriptionID),
		nullableStringValue(event.RecurringRef),
		event.Signature,
		event.PayloadJSON,
		event.Status,
		event.Attempts,
		nullableTimeValue(event.NextAttemptAt),
		nullableStringValue(event.Error),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

func (r *WebhookEventRepository) Update(ctx context.Context, event *entity.WebhookEvent) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events SET
			user_ref = ?,
			status = ?,
			attempts = ?,
			next_attempt_at = ?,
			error = ?,
			updated_at = ?
		WHERE id = ?
	`,
		event.UserRef,
		event.Status,
		event.Attempts,
		nullableTimeValue(event.NextAttemptAt),
		nullableStringValue(event.Error),
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWebhookEventNotFound
	}
	return nil
}

func (r *WebhookEventRepository) ListDueRetry(ctx context.Context, now time.Time, limit int32) ([]*entity.WebhookEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?
	`, entity.WebhookEventUnresolved, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.WebhookEvent, 0)
	for rows.Next() {
		item := &entity.WebhookEvent{}
		if err := scanWebhookEvent(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanWebhookEvent(row rowScanner, event *entity.WebhookEvent) error {
	var (
		customerID     sql.NullString
		subscriptionID sql.NullString
		recurringRef   sql.NullString
		nextAttemptAt  sql.NullTime
		lastErr        sql.NullString
	)

	if err := row.Scan(
		&event.ID,
		&event.Provider,
		&event.ProviderEventID,
		&event.ProviderPaymentID,
		&event.EventType,
		&event.PaymentStatus,
		&event.UserRef,
		&event.Email,
		&event.Plan,
		&event.Cycle,
		&customerID,
		&subscriptionID,
		&recurringRef,
		&event.Signature,
		&event.PayloadJSON,
		&event.Status,
		&event.Attempts,
		&nextAttemptAt,
		&lastErr,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return err
	}

	event.CustomerID = stringPtrFromNull(customerID)
	event.SubscriptionID = stringPtrFromNull(subscriptionID)
	event.RecurringRef = stringPtrFromNull(recurringRef)
	event.NextAttemptAt = timePtrFromNull(nextAttemptAt)
	event.Error = stringPtrFromNull(lastErr)
	return nil
}
