package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/callmind/ms-go-billing/app/factory"
	"github.com/callmind/ms-go-billing/app/provider"
	"github.com/callmind/ms-go-billing/app/service"
	"github.com/callmind/ms-go-billing/app/types"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type WebhookController struct {
	webhookService *service.WebhookService
	logger         logrus.FieldLogger
}

func NewWebhookController(webhookService *service.WebhookService) *WebhookController {
	return &WebhookController{
		webhookService: webhookService,
		logger:         factory.NewModuleLogger("webhook-controller"),
	}
}

func (c *WebhookController) Handle(ctx echo.Context) error {
	req, err := types.NewWebhookRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.webhookService.HandleWebhook(requestContext(ctx), req.Provider, &provider.WebhookRequest{
		Body:        req.Body,
		ContentType: req.ContentType,
		Header:      req.Header,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			return writeError(ctx, http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, service.ErrMalformedPayload):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProviderUnsupported):
			return writeError(ctx, http.StatusNotFound, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("provider", req.Provider).Error("Handle webhook failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

func requestContext(ctx echo.Context) context.Context {
	reqCtx := ctx.Request().Context()
	if id := ctx.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return factory.ContextWithRequestID(reqCtx, id)
	}
	return factory.ContextWithRequestID(reqCtx, ctx.Response().Header().Get(echo.HeaderXRequestID))
}
