package service

import (
	"errors"
	"fmt"

	"github.com/callmind/ms-go-billing/app/provider"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidPlan          = errors.New("invalid plan or billing cycle")
	ErrConfiguration        = errors.New("payment provider is not configured")
	ErrUpstream             = errors.New("payment provider request failed")
	ErrProviderUnsupported  = errors.New("provider is not supported")
	ErrUserNotFound         = errors.New("user not found")
	ErrSignatureMismatch    = errors.New("webhook signature mismatch")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
	ErrRecurringUnsupported = errors.New("recurring payments are not supported for provider")
	ErrRecurringNotSetUp    = errors.New("no recurring payment method stored for user")
	ErrCardsUnsupported     = errors.New("card binding is not supported for provider")
)

func mapProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, provider.ErrNotConfigured):
		return fmt.Errorf("%w: %s", ErrConfiguration, err.Error())
	case errors.Is(err, provider.ErrUpstream):
		return fmt.Errorf("%w: %s", ErrUpstream, err.Error())
	case errors.Is(err, provider.ErrRecurringUnsupported):
		return ErrRecurringUnsupported
	case errors.Is(err, provider.ErrRecurringNotSetUp):
		return ErrRecurringNotSetUp
	case errors.Is(err, provider.ErrSignatureMismatch):
		return ErrSignatureMismatch
	case errors.Is(err, provider.ErrMalformedPayload):
		return fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	case errors.Is(err, provider.ErrProviderNotSupported):
		return ErrProviderUnsupported
	default:
		return err
	}
}
