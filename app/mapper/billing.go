package mapper

import (
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/provider"
	"github.com/callmind/ms-go-billing/app/service"
	"github.com/callmind/ms-go-billing/app/types"
)

func PricesToResponse(providerName string, quotes []service.PriceQuote) *types.PricesResponse {
	prices := make([]*types.PriceResponse, 0, len(quotes))
	for _, quote := range quotes {
		prices = append(prices, &types.PriceResponse{
			Key:          quote.Key,
			Plan:         string(quote.Tier),
			BillingCycle: string(quote.Cycle),
			Amount:       quote.Amount,
			AmountTiyins: quote.AmountMinor,
			Credits:      quote.Credits,
			PriceID:      quote.PriceID,
		})
	}
	return &types.PricesResponse{Provider: providerName, Prices: prices}
}

func CheckoutToResponse(item *service.CheckoutResult) *types.CheckoutResponse {
	if item == nil {
		return nil
	}

	return &types.CheckoutResponse{
		Provider:      item.Provider,
		OrderID:       item.OrderID,
		CheckoutURL:   item.CheckoutURL,
		TransactionID: item.TransactionID,
		PaymentID:     item.PaymentID,
		Plan:          string(item.Tier),
		BillingCycle:  string(item.Cycle),
		Amount:        item.Amount,
		AmountTiyins:  item.AmountMinor,
		Credits:       item.Credits,
	}
}

func RecurringToResponse(item *service.RecurringResult) *types.RecurringPayResponse {
	if item == nil {
		return nil
	}

	return &types.RecurringPayResponse{
		Provider:       item.Provider,
		OrderID:        item.OrderID,
		PaymentID:      item.PaymentID,
		Status:         item.Status,
		Paid:           item.Paid,
		Amount:         item.Amount,
		AmountTiyins:   item.AmountMinor,
		CreditsGranted: item.CreditsGranted,
		Duplicate:      item.Duplicate,
	}
}

func StatusToResponse(providerName string, item *provider.StatusOutput) *types.PaymentStatusResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentStatusResponse{
		Provider:  providerName,
		Reference: item.Reference,
		Status:    item.Status,
		Paid:      item.Paid,
		Details:   cloneDetails(item.Details),
	}
}

func CardToResponse(item *service.CardBindingResult) *types.CardResponse {
	if item == nil {
		return nil
	}

	return &types.CardResponse{
		Token:      item.Token,
		MaskedPan:  item.MaskedPan,
		Verified:   item.Verified,
		CodeSent:   item.CodeSent,
		Phone:      item.Phone,
		WaitMillis: item.WaitMillis,
	}
}

func UserCreditsToResponse(user *entity.User, grants []*entity.CreditGrant) *types.UserCreditsResponse {
	if user == nil {
		return nil
	}

	items := make([]*types.CreditGrantResponse, 0, len(grants))
	for _, grant := range grants {
		if grant == nil {
			continue
		}
		items = append(items, &types.CreditGrantResponse{
			ID:                grant.ID,
			Provider:          grant.Provider,
			ProviderPaymentID: grant.ProviderPaymentID,
			Plan:              grant.Plan,
			BillingCycle:      grant.Cycle,
			Credits:           grant.Credits,
			CreatedAt:         grant.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &types.UserCreditsResponse{
		UserID:  user.ID,
		Plan:    user.Plan,
		Credits: user.Credits,
		Grants:  items,
	}
}

func cloneDetails(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
