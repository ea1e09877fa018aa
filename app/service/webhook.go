package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/factory"
	"github.com/callmind/ms-go-billing/app/metrics"
	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/callmind/ms-go-billing/app/provider"
	"github.com/callmind/ms-go-billing/config"
	"github.com/sirupsen/logrus"
)

const hashPaymentIDPrefix = "hash:"

type webhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	Update(ctx context.Context, event *entity.WebhookEvent) error
	ListDueRetry(ctx context.Context, now time.Time, limit int32) ([]*entity.WebhookEvent, error)
}

type WebhookResult struct {
	Provider string
	EventID  uint64
	Status   int32
	UserID   string
	Credits  int64
}

type WebhookService struct {
	providerReg *provider.Registry
	eventRepo   webhookEventRepository
	userRepo    userRepository
	ledger      *CreditLedger
	cfg         config.WebhooksConfig
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewWebhookService(
	providerReg *provider.Registry,
	eventRepo webhookEventRepository,
	userRepo userRepository,
	ledger *CreditLedger,
	cfg config.WebhooksConfig,
) *WebhookService {
	return &WebhookService{
		providerReg: providerReg,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		ledger:      ledger,
		cfg:         cfg,
		logger:      factory.NewModuleLogger("webhook-service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *WebhookService) HandleWebhook(ctx context.Context, providerName string, req *provider.WebhookRequest) (*WebhookResult, error) {
	p, err := s.providerReg.Get(providerName)
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	name := p.Name()
	logger := factory.LoggerWithRequestContext(s.logger, ctx).WithField("provider", name)

	event, err := p.ParseWebhook(ctx, req)
	if err != nil {
		mapped := mapProviderError(err)
		s.recordRejected(ctx, name, req, "", err.Error())
		logger.WithError(err).Warn("Webhook rejected")
		return nil, mapped
	}

	if event.SignatureSkipped {
		if s.cfg.RequireSignature {
			s.recordRejected(ctx, name, req, event.Signature, "signature secret is not configured")
			logger.Error("Webhook rejected: signature secret is not configured")
			return nil, ErrSignatureMismatch
		}
		metrics.RecordSignatureSkipped(name)
		logger.Warn("Webhook signature verification skipped: secret is not configured")
	}

	now := s.now()
	row := &entity.WebhookEvent{
		Provider:          name,
		ProviderEventID:   event.ProviderEventID,
		ProviderPaymentID: event.ProviderPaymentID,
		EventType:         event.EventType,
		PaymentStatus:     event.PaymentStatus,
		UserRef:           event.UserRef,
		Email:             event.Email,
		Plan:              event.Plan,
		Cycle:             event.Cycle,
		CustomerID:        event.CustomerID,
		SubscriptionID:    event.SubscriptionID,
		RecurringRef:      event.RecurringRef,
		Signature:         truncate(event.Signature, 512),
		PayloadJSON:       payloadJSON(event.Payload, req.Body),
		Status:            entity.WebhookEventReceived,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if strings.TrimSpace(row.ProviderPaymentID) == "" {
		row.ProviderPaymentID = hashPaymentID(req.Body)
	}

	if err := s.eventRepo.Create(ctx, row); err != nil {
		return nil, err
	}

	logger = logger.WithFields(logrus.Fields{
		"webhook_event_id": row.ID,
		"payment_id":       row.ProviderPaymentID,
		"event_type":       row.EventType,
		"payment_status":   row.PaymentStatus,
	})

	result := &WebhookResult{Provider: name, EventID: row.ID}

	switch event.Outcome {
	case provider.OutcomeSuccess:
		grant, settleErr := s.settle(ctx, row, now)
		if settleErr != nil {
			logger.WithError(settleErr).Error("Failed to credit webhook payment")
		}
		if grant != nil && !grant.Duplicate {
			result.Credits = grant.Credits
		}
	case provider.OutcomeFailure:
		row.Status = entity.WebhookEventIgnored
		logger.Info("Payment failed or canceled")
	default:
		row.Status = entity.WebhookEventIgnored
		logger.Info("Webhook acknowledged without action")
	}

	row.UpdatedAt = s.now()
	if err := s.eventRepo.Update(ctx, row); err != nil {
		return nil, err
	}

	switch row.Status {
	case entity.WebhookEventCredited:
		logger.WithFields(logrus.Fields{"user_id": row.UserRef, "credits": result.Credits}).Info("Credits granted")
	case entity.WebhookEventDuplicate:
		logger.Info("Duplicate payment webhook acknowledged")
	case entity.WebhookEventUnresolved:
		logger.WithField("user_ref", row.UserRef).Warn("Webhook payment could not be matched to a user")
	case entity.WebhookEventFailed:
		logger.Warn("Webhook payment has no valid plan selection")
	}

	metrics.RecordWebhook(name, WebhookStatusName(row.Status))
	result.Status = row.Status
	result.UserID = row.UserRef
	return result, nil
}

func (s *WebhookService) settle(ctx context.Context, row *entity.WebhookEvent, now time.Time) (*GrantResult, error) {
	tier, cycle, err := parseSelection(row.Plan, row.Cycle)
	if err != nil {
		s.markFailed(row, err.Error())
		return nil, nil
	}

	user, err := s.resolveUser(ctx, row)
	if err != nil {
		s.markUnresolved(row, now, err.Error())
		return nil, err
	}
	if user == nil {
		s.markUnresolved(row, now, ErrUserNotFound.Error())
		return nil, nil
	}

	row.UserRef = user.ID
	eventID := row.ID
	grant, err := s.ledger.GrantCredits(ctx, GrantInput{
		UserID:            user.ID,
		Provider:          row.Provider,
		ProviderPaymentID: row.ProviderPaymentID,
		WebhookEventID:    &eventID,
		Tier:              tier,
		Cycle:             cycle,
		Refs:              providerRefs(row),
	})
	switch {
	case errors.Is(err, ErrUserNotFound):
		s.markUnresolved(row, now, err.Error())
		return nil, nil
	case err != nil:
		s.markUnresolved(row, now, err.Error())
		return nil, err
	}

	row.Error = nil
	row.NextAttemptAt = nil
	if grant.Duplicate {
		row.Status = entity.WebhookEventDuplicate
	} else {
		row.Status = entity.WebhookEventCredited
	}
	return grant, nil
}

func (s *WebhookService) resolveUser(ctx context.Context, row *entity.WebhookEvent) (*entity.User, error) {
	if ref := strings.TrimSpace(row.UserRef); ref != "" {
		user, err := s.userRepo.FindByID(ctx, ref)
		if err != nil || user != nil {
			return user, err
		}
	}
	if email := strings.TrimSpace(row.Email); email != "" {
		return s.userRepo.FindByEmail(ctx, email)
	}
	return nil, nil
}

func (s *WebhookService) markFailed(row *entity.WebhookEvent, reason string) {
	msg := truncate(reason, 1024)
	row.Error = &msg
	row.Status = entity.WebhookEventFailed
	row.NextAttemptAt = nil
}

func (s *WebhookService) markUnresolved(row *entity.WebhookEvent, now time.Time, reason string) {
	msg := truncate(reason, 1024)
	row.Error = &msg

	maxAttempts := s.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if row.Attempts >= maxAttempts {
		row.Status = entity.WebhookEventFailed
		row.NextAttemptAt = nil
		return
	}

	interval := s.cfg.RetryInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	next := now.Add(interval)
	row.Status = entity.WebhookEventUnresolved
	row.NextAttemptAt = &next
}

func (s *WebhookService) recordRejected(ctx context.Context, providerName string, req *provider.WebhookRequest, signature, reason string) {
	now := s.now()
	msg := truncate(reason, 1024)
	row := &entity.WebhookEvent{
		Provider:          providerName,
		ProviderPaymentID: hashPaymentID(req.Body),
		Signature:         truncate(signature, 512),
		PayloadJSON:       payloadJSON(nil, req.Body),
		Status:            entity.WebhookEventRejected,
		Error:             &msg,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.eventRepo.Create(ctx, row); err != nil {
		s.logger.WithError(err).Warn("Failed to record rejected webhook")
	}
	metrics.RecordWebhook(providerName, WebhookStatusName(entity.WebhookEventRejected))
}

func WebhookStatusName(status int32) string {
	switch status {
	case entity.WebhookEventReceived:
		return "received"
	case entity.WebhookEventCredited:
		return "credited"
	case entity.WebhookEventDuplicate:
		return "duplicate"
	case entity.WebhookEventIgnored:
		return "ignored"
	case entity.WebhookEventUnresolved:
		return "unresolved"
	case entity.WebhookEventRejected:
		return "rejected"
	case entity.WebhookEventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func parseSelection(rawPlan, rawCycle string) (plan.Tier, plan.Cycle, error) {
	tier, err := plan.ParseTier(rawPlan)
	if err != nil || !tier.Purchasable() {
		return "", "", fmt.Errorf("%w: plan %q", ErrInvalidPlan, rawPlan)
	}
	cycle, err := plan.ParseCycle(rawCycle)
	if err != nil {
		return "", "", fmt.Errorf("%w: billing cycle %q", ErrInvalidPlan, rawCycle)
	}
	return tier, cycle, nil
}

func providerRefs(row *entity.WebhookEvent) entity.ProviderRefs {
	switch row.Provider {
	case provider.NameFreedomPay:
		return entity.ProviderRefs{FreedomPayRecurringProfileID: row.RecurringRef}
	case provider.NamePaddle:
		return entity.ProviderRefs{
			PaddleCustomerID:     row.CustomerID,
			PaddleSubscriptionID: row.SubscriptionID,
		}
	default:
		return entity.ProviderRefs{}
	}
}

func hashPaymentID(body []byte) string {
	sum := sha256.Sum256(body)
	return hashPaymentIDPrefix + hex.EncodeToString(sum[:])
}

func payloadJSON(payload map[string]interface{}, raw []byte) string {
	if payload != nil {
		if encoded, err := json.Marshal(payload); err == nil {
			return string(encoded)
		}
	}
	encoded, _ := json.Marshal(map[string]string{"raw": string(raw)})
	return string(encoded)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
