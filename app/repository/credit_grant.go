package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/callmind/ms-go-billing/app/entity"
)

var ErrCreditGrantExists = errors.New("credit grant already applied")

type CreditGrantRepository struct {
	db DB
}

func NewCreditGrantRepository(db DB) *CreditGrantRepository {
	return &CreditGrantRepository{db: db}
}

// Apply returns ErrCreditGrantExists for a replayed (provider, provider_payment_id).
func (r *CreditGrantRepository) Apply(ctx context.Context, grant *entity.CreditGrant, refs entity.ProviderRefs) (user *entity.User, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO credit_grants (
			user_id, provider, provider_payment_id, webhook_event_id, plan, billing_cycle, credits, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		grant.UserID,
		grant.Provider,
		grant.ProviderPaymentID,
		nullableUint64Value(grant.WebhookEventID),
		grant.Plan,
		grant.Cycle,
		grant.Credits,
		grant.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, ErrCreditGrantExists
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	updated, err := tx.ExecContext(ctx, `
		UPDATE users SET
			credits = credits + ?,
			plan = ?,
			freedompay_recurring_profile_id = COALESCE(?, freedompay_recurring_profile_id),
			payme_card_token = COALESCE(?, payme_card_token),
			paddle_customer_id = COALESCE(?, paddle_customer_id),
			paddle_subscription_id = COALESCE(?, paddle_subscription_id),
			updated_at = ?
		WHERE id = ?
	`,
		grant.Credits,
		grant.Plan,
		nullableStringValue(refs.FreedomPayRecurringProfileID),
		nullableStringValue(refs.PaymeCardToken),
		nullableStringValue(refs.PaddleCustomerID),
		nullableStringValue(refs.PaddleSubscriptionID),
		grant.CreatedAt,
		grant.UserID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := updated.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}

	user = &entity.User{}
	if err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, grant.UserID), user); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	grant.ID = uint64(id)
	return user, nil
}

func (r *CreditGrantRepository) ListByUser(ctx context.Context, userID string, limit int32) ([]*entity.CreditGrant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, provider, provider_payment_id, webhook_event_id, plan, billing_cycle, credits, created_at
		FROM credit_grants
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.CreditGrant, 0)
	for rows.Next() {
		var (
			item           entity.CreditGrant
			webhookEventID sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Provider,
			&item.ProviderPaymentID,
			&webhookEventID,
			&item.Plan,
			&item.Cycle,
			&item.Credits,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.WebhookEventID = uint64PtrFromNull(webhookEventID)
		items = append(items, &item)
	}

	return items, rows.Err()
}
