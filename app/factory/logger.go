package factory

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type contextKey string

const requestIDContextKey contextKey = "request_id"

func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.WithField("module", module)
}

// LoggerWithContext adds the request id and route of an echo request.
func LoggerWithContext(logger logrus.FieldLogger, c echo.Context) logrus.FieldLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if c == nil {
		return logger
	}

	fields := logrus.Fields{}
	if id := requestIDFromEcho(c); id != "" {
		fields["request_id"] = id
	}
	if path := c.Path(); path != "" {
		fields["route"] = path
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.WithFields(fields)
}

func LoggerWithRequestContext(logger logrus.FieldLogger, ctx context.Context) logrus.FieldLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		return logger.WithField("request_id", id)
	}
	return logger
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func requestIDFromEcho(c echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get(requestIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Response().Header().Get(requestIDHeader))
}
