package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/callmind/ms-go-billing/app/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

const userColumns = `id, email, plan, credits,
	freedompay_recurring_profile_id, payme_card_token, paddle_customer_id, paddle_subscription_id,
	created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			id, email, plan, credits,
			freedompay_recurring_profile_id, payme_card_token, paddle_customer_id, paddle_subscription_id,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Plan,
		user.Credits,
		nullableStringValue(user.FreedomPayRecurringProfileID),
		nullableStringValue(user.PaymeCardToken),
		nullableStringValue(user.PaddleCustomerID),
		nullableStringValue(user.PaddleSubscriptionID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user := &entity.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), user); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = ? ORDER BY created_at LIMIT 1`

	user := &entity.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, email), user); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UpdateProviderRefs(ctx context.Context, userID string, refs entity.ProviderRefs) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			freedompay_recurring_profile_id = COALESCE(?, freedompay_recurring_profile_id),
			payme_card_token = COALESCE(?, payme_card_token),
			paddle_customer_id = COALESCE(?, paddle_customer_id),
			paddle_subscription_id = COALESCE(?, paddle_subscription_id),
			updated_at = ?
		WHERE id = ?
	`,
		nullableStringValue(refs.FreedomPayRecurringProfileID),
		nullableStringValue(refs.PaymeCardToken),
		nullableStringValue(refs.PaddleCustomerID),
		nullableStringValue(refs.PaddleSubscriptionID),
		nowUTC(),
		userID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner, user *entity.User) error {
	var (
		recurringProfile sql.NullString
		cardToken        sql.NullString
		customerID       sql.NullString
		subscriptionID   sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Plan,
		&user.Credits,
		&recurringProfile,
		&cardToken,
		&customerID,
		&subscriptionID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return err
	}

	user.FreedomPayRecurringProfileID = stringPtrFromNull(recurringProfile)
	user.PaymeCardToken = stringPtrFromNull(cardToken)
	user.PaddleCustomerID = stringPtrFromNull(customerID)
	user.PaddleSubscriptionID = stringPtrFromNull(subscriptionID)
	return nil
}
