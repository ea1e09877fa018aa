package service

import (
	"context"
	"strings"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/metrics"
	"github.com/callmind/ms-go-billing/app/plan"
	"github.com/callmind/ms-go-billing/app/provider"
	"github.com/callmind/ms-go-billing/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
)

type checkoutRequest interface {
	GetProvider() string
	GetPlan() string
	GetBillingCycle() string
	GetUserID() string
	GetPhone() string
}

type recurringPayRequest interface {
	GetProvider() string
	GetPlan() string
	GetBillingCycle() string
	GetUserID() string
}

type createCardRequest interface {
	GetUserID() string
	GetNumber() string
	GetExpire() string
}

type verifyCardRequest interface {
	GetUserID() string
	GetToken() string
	GetCode() string
}

type userRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProviderRefs(ctx context.Context, userID string, refs entity.ProviderRefs) error
}

type cardBinder interface {
	CreateCard(ctx context.Context, number, expire string) (*provider.PaymeCard, *provider.PaymeVerifyCode, error)
	VerifyCard(ctx context.Context, token, code string) (*provider.PaymeCard, error)
}

type PriceQuote struct {
	Key         string
	Tier        plan.Tier
	Cycle       plan.Cycle
	Amount      int64
	AmountMinor int64
	Credits     int64
	PriceID     string
}

type CheckoutResult struct {
	Provider      string
	OrderID       string
	CheckoutURL   string
	TransactionID string
	PaymentID     string
	Tier          plan.Tier
	Cycle         plan.Cycle
	Amount        int64
	AmountMinor   int64
	Credits       int64
}

type RecurringResult struct {
	Provider       string
	OrderID        string
	PaymentID      string
	Status         string
	Paid           bool
	Amount         int64
	AmountMinor    int64
	CreditsGranted int64
	Duplicate      bool
}

type CardBindingResult struct {
	Token      string
	MaskedPan  string
	Verified   bool
	CodeSent   bool
	Phone      string
	WaitMillis int64
}

type BillingService struct {
	providerReg *provider.Registry
	plans       config.PlansConfig
	userRepo    userRepository
	ledger      *CreditLedger
	now         func() time.Time
}

func NewBillingService(
	providerReg *provider.Registry,
	plans config.PlansConfig,
	userRepo userRepository,
	ledger *CreditLedger,
) *BillingService {
	return &BillingService{
		providerReg: providerReg,
		plans:       plans,
		userRepo:    userRepo,
		ledger:      ledger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *BillingService) Prices(providerName string) ([]PriceQuote, error) {
	p, err := s.providerReg.Get(providerName)
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	entries := s.priceTable(p.Name()).Entries()
	quotes := make([]PriceQuote, 0, len(entries))
	for _, entry := range entries {
		quotes = append(quotes, PriceQuote{
			Key:         plan.Key(entry.Tier, entry.Cycle),
			Tier:        entry.Tier,
			Cycle:       entry.Cycle,
			Amount:      entry.Price.Amount,
			AmountMinor: entry.Price.AmountMinor(),
			Credits:     plan.Credits(entry.Tier, entry.Cycle),
			PriceID:     entry.Price.PriceID,
		})
	}
	return quotes, nil
}

func (s *BillingService) BuildCheckout(ctx context.Context, req checkoutRequest) (*CheckoutResult, error) {
	p, tier, cycle, price, err := s.resolveSelection(req.GetProvider(), req.GetPlan(), req.GetBillingCycle())
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, req.GetUserID())
	if err != nil {
		return nil, err
	}

	orderID := plan.NewOrderID(user.ID, tier, cycle, s.now())
	start := time.Now()
	out, err := p.Checkout(ctx, &provider.CheckoutInput{
		UserID:           user.ID,
		Email:            user.Email,
		PaddleCustomerID: user.PaddleCustomerID,
		Phone:            strings.TrimSpace(req.GetPhone()),
		Tier:             tier,
		Cycle:            cycle,
		Price:            price,
		OrderID:          orderID,
	})
	metrics.RecordProviderCall(p.Name(), "checkout", time.Since(start))
	if err != nil {
		metrics.RecordCheckout(p.Name(), "error")
		return nil, mapProviderError(err)
	}
	metrics.RecordCheckout(p.Name(), "ok")

	return &CheckoutResult{
		Provider:      p.Name(),
		OrderID:       orderID,
		CheckoutURL:   out.CheckoutURL,
		TransactionID: out.TransactionID,
		PaymentID:     out.PaymentID,
		Tier:          tier,
		Cycle:         cycle,
		Amount:        price.Amount,
		AmountMinor:   price.AmountMinor(),
		Credits:       plan.Credits(tier, cycle),
	}, nil
}

func (s *BillingService) RecurringPay(ctx context.Context, req recurringPayRequest) (*RecurringResult, error) {
	p, tier, cycle, price, err := s.resolveSelection(req.GetProvider(), req.GetPlan(), req.GetBillingCycle())
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, req.GetUserID())
	if err != nil {
		return nil, err
	}

	orderID := plan.NewOrderID(user.ID, tier, cycle, s.now())
	start := time.Now()
	out, err := p.ChargeRecurring(ctx, &provider.RecurringInput{
		User:    user,
		Tier:    tier,
		Cycle:   cycle,
		Price:   price,
		OrderID: orderID,
	})
	metrics.RecordProviderCall(p.Name(), "recurring", time.Since(start))
	if err != nil {
		return nil, mapProviderError(err)
	}

	result := &RecurringResult{
		Provider:    p.Name(),
		OrderID:     orderID,
		PaymentID:   out.PaymentID,
		Status:      out.Status,
		Paid:        out.Paid,
		Amount:      price.Amount,
		AmountMinor: price.AmountMinor(),
	}
	if !out.Paid {
		return result, nil
	}

	paymentID := out.PaymentID
	if paymentID == "" {
		paymentID = orderID
	}
	grant, err := s.ledger.GrantCredits(ctx, GrantInput{
		UserID:            user.ID,
		Provider:          p.Name(),
		ProviderPaymentID: paymentID,
		Tier:              tier,
		Cycle:             cycle,
	})
	if err != nil {
		return nil, err
	}
	result.CreditsGranted = grant.Credits
	result.Duplicate = grant.Duplicate
	return result, nil
}

func (s *BillingService) PaymentStatus(ctx context.Context, providerName, reference string) (*provider.StatusOutput, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrInvalidRequest
	}

	p, err := s.providerReg.Get(providerName)
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	start := time.Now()
	out, err := p.PaymentStatus(ctx, reference)
	metrics.RecordProviderCall(p.Name(), "status", time.Since(start))
	if err != nil {
		return nil, mapProviderError(err)
	}
	return out, nil
}

func (s *BillingService) CreatePaymeCard(ctx context.Context, req createCardRequest) (*CardBindingResult, error) {
	cards, err := s.cardBinder()
	if err != nil {
		return nil, err
	}
	if _, err := s.loadUser(ctx, req.GetUserID()); err != nil {
		return nil, err
	}

	card, code, err := cards.CreateCard(ctx, strings.TrimSpace(req.GetNumber()), strings.TrimSpace(req.GetExpire()))
	if err != nil {
		return nil, mapProviderError(err)
	}

	return &CardBindingResult{
		Token:      card.Token,
		MaskedPan:  card.Number,
		Verified:   card.Verify,
		CodeSent:   code.Sent,
		Phone:      code.Phone,
		WaitMillis: code.Wait,
	}, nil
}

func (s *BillingService) VerifyPaymeCard(ctx context.Context, req verifyCardRequest) (*CardBindingResult, error) {
	cards, err := s.cardBinder()
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, req.GetUserID())
	if err != nil {
		return nil, err
	}

	card, err := cards.VerifyCard(ctx, strings.TrimSpace(req.GetToken()), strings.TrimSpace(req.GetCode()))
	if err != nil {
		return nil, mapProviderError(err)
	}

	token := card.Token
	if err := s.userRepo.UpdateProviderRefs(ctx, user.ID, entity.ProviderRefs{PaymeCardToken: &token}); err != nil {
		return nil, err
	}

	return &CardBindingResult{
		Token:     card.Token,
		MaskedPan: card.Number,
		Verified:  card.Verify,
	}, nil
}

func (s *BillingService) GetUserCredits(ctx context.Context, userID string) (*entity.User, []*entity.CreditGrant, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	grants, err := s.ledger.ListGrants(ctx, user.ID, defaultListLimit)
	if err != nil {
		return nil, nil, err
	}
	return user, grants, nil
}

func (s *BillingService) resolveSelection(providerName, rawPlan, rawCycle string) (provider.Provider, plan.Tier, plan.Cycle, plan.Price, error) {
	p, err := s.providerReg.Get(providerName)
	if err != nil {
		return nil, "", "", plan.Price{}, ErrProviderUnsupported
	}

	tier, err := plan.ParseTier(rawPlan)
	if err != nil || !tier.Purchasable() {
		return nil, "", "", plan.Price{}, ErrInvalidPlan
	}
	cycle, err := plan.ParseCycle(rawCycle)
	if err != nil {
		return nil, "", "", plan.Price{}, ErrInvalidPlan
	}

	price, ok := s.priceTable(p.Name()).Lookup(tier, cycle)
	if !ok {
		return nil, "", "", plan.Price{}, ErrInvalidPlan
	}
	return p, tier, cycle, price, nil
}

func (s *BillingService) loadUser(ctx context.Context, userID string) (*entity.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidRequest
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *BillingService) cardBinder() (cardBinder, error) {
	p, err := s.providerReg.Get(provider.NamePayme)
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	cards, ok := p.(cardBinder)
	if !ok {
		return nil, ErrCardsUnsupported
	}
	return cards, nil
}

func (s *BillingService) priceTable(providerName string) plan.PriceTable {
	switch providerName {
	case provider.NameFreedomPay:
		return s.plans.FreedomPay
	case provider.NamePayme:
		return s.plans.Payme
	case provider.NamePaddle:
		return s.plans.Paddle.Catalogued()
	default:
		return plan.PriceTable{}
	}
}
