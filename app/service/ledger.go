package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/metrics"
	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/callmind/ms-go-billing/app/repository"
)

type creditGrantRepository interface {
	Apply(ctx context.Context, grant *entity.CreditGrant, refs entity.ProviderRefs) (*entity.User, error)
	ListByUser(ctx context.Context, userID string, limit int32) ([]*entity.CreditGrant, error)
}

type GrantInput struct {
	UserID            string
	Provider          string
	ProviderPaymentID string
	WebhookEventID    *uint64
	Tier              plan.Tier
	Cycle             plan.Cycle
	Refs              entity.ProviderRefs
}

type GrantResult struct {
	User      *entity.User
	Credits   int64
	Duplicate bool
}

type CreditLedger struct {
	grantRepo creditGrantRepository
	now       func() time.Time
}

func NewCreditLedger(grantRepo creditGrantRepository) *CreditLedger {
	return &CreditLedger{
		grantRepo: grantRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (l *CreditLedger) GrantCredits(ctx context.Context, in GrantInput) (*GrantResult, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.ProviderPaymentID) == "" {
		return nil, ErrInvalidRequest
	}

	credits := plan.Credits(in.Tier, in.Cycle)
	if credits <= 0 {
		return nil, ErrInvalidPlan
	}

	grant := &entity.CreditGrant{
		UserID:            in.UserID,
		Provider:          in.Provider,
		ProviderPaymentID: in.ProviderPaymentID,
		WebhookEventID:    in.WebhookEventID,
		Plan:              string(in.Tier),
		Cycle:             string(in.Cycle),
		Credits:           credits,
		CreatedAt:         l.now(),
	}

	user, err := l.grantRepo.Apply(ctx, grant, in.Refs)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCreditGrantExists):
			return &GrantResult{Credits: credits, Duplicate: true}, nil
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, err
		}
	}

	metrics.RecordCreditsGranted(in.Provider, string(in.Tier), credits)
	return &GrantResult{User: user, Credits: credits}, nil
}

func (l *CreditLedger) ListGrants(ctx context.Context, userID string, limit int32) ([]*entity.CreditGrant, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return l.grantRepo.ListByUser(ctx, userID, limit)
}
