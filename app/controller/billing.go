package controller

import (
	"errors"
	"net/http"

	"github.com/callmind/ms-go-billing/app/factory"
	"github.com/callmind/ms-go-billing/app/mapper"
	"github.com/callmind/ms-go-billing/app/service"
	"github.com/callmind/ms-go-billing/app/types"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type BillingController struct {
	billingService *service.BillingService
	logger         logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BillingController) Prices(ctx echo.Context) error {
	req, err := types.NewPricesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	quotes, err := c.billingService.Prices(req.GetProvider())
	if err != nil {
		return c.serviceError(ctx, err, "List prices failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PricesToResponse(req.GetProvider(), quotes))
}

func (c *BillingController) Checkout(ctx echo.Context) error {
	req, err := types.NewCheckoutRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.BuildCheckout(requestContext(ctx), req)
	if err != nil {
		return c.serviceError(ctx, err, "Build checkout failed")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"provider": result.Provider,
		"order_id": result.OrderID,
		"user_id":  req.GetUserID(),
	}).Info("Checkout created")

	return ctx.JSON(http.StatusOK, mapper.CheckoutToResponse(result))
}

func (c *BillingController) RecurringPay(ctx echo.Context) error {
	req, err := types.NewRecurringPayRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.RecurringPay(requestContext(ctx), req)
	if err != nil {
		return c.serviceError(ctx, err, "Recurring payment failed")
	}

	return ctx.JSON(http.StatusOK, mapper.RecurringToResponse(result))
}

func (c *BillingController) Status(ctx echo.Context) error {
	req, err := types.NewPaymentStatusRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.PaymentStatus(requestContext(ctx), req.GetProvider(), req.GetOrderID())
	if err != nil {
		return c.serviceError(ctx, err, "Payment status failed")
	}

	return ctx.JSON(http.StatusOK, mapper.StatusToResponse(req.GetProvider(), result))
}

func (c *BillingController) CreatePaymeCard(ctx echo.Context) error {
	req, err := types.NewCreateCardRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.CreatePaymeCard(requestContext(ctx), req)
	if err != nil {
		return c.serviceError(ctx, err, "Create card failed")
	}

	return ctx.JSON(http.StatusOK, mapper.CardToResponse(result))
}

func (c *BillingController) VerifyPaymeCard(ctx echo.Context) error {
	req, err := types.NewVerifyCardRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.VerifyPaymeCard(requestContext(ctx), req)
	if err != nil {
		return c.serviceError(ctx, err, "Verify card failed")
	}

	return ctx.JSON(http.StatusOK, mapper.CardToResponse(result))
}

func (c *BillingController) UserCredits(ctx echo.Context) error {
	req, err := types.NewUserCreditsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	user, grants, err := c.billingService.GetUserCredits(requestContext(ctx), req.GetUserID())
	if err != nil {
		return c.serviceError(ctx, err, "Get user credits failed")
	}

	return ctx.JSON(http.StatusOK, mapper.UserCreditsToResponse(user, grants))
}

func (c *BillingController) serviceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrRecurringUnsupported),
		errors.Is(err, service.ErrCardsUnsupported):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProviderUnsupported):
		return writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRecurringNotSetUp):
		return writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrConfiguration):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return writeError(ctx, http.StatusInternalServerError, service.ErrConfiguration.Error())
	case errors.Is(err, service.ErrUpstream):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return writeError(ctx, http.StatusBadGateway, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
