package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/common"
	"github.com/avct/uasurfer"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type requestLoggerMiddleware struct {
	logger *logrus.Logger
}

// NewRequestLoggerMiddleware tags each request with an id, exposes it on
// the user context and logs the outcome once the handler returns.
func NewRequestLoggerMiddleware(logger *logrus.Logger) Middleware {
	return &requestLoggerMiddleware{
		logger: logger,
	}
}

func (m *requestLoggerMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		requestID := c.Get(common.RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Locals(string(common.RequestIDContextKey), requestID)
		c.SetUserContext(context.WithValue(c.UserContext(), common.RequestIDContextKey, requestID))
		c.Set(common.RequestIDHeader, requestID)

		nextErr := c.Next()

		elapsed := time.Since(startTime)
		c.Set(common.ElapsedHeader, strconv.FormatInt(elapsed.Milliseconds(), 10))

		status := c.Response().StatusCode()
		entry := m.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
			"bytes_in":   len(c.Request().Body()),
		})
		if client := clientFields(c.Get(fiber.HeaderUserAgent)); client != nil {
			entry = entry.WithFields(client)
		}
		switch {
		case nextErr != nil:
			entry.WithError(nextErr).Error("request failed")
		case status >= fiber.StatusInternalServerError:
			entry.Warn("request completed with server error")
		default:
			entry.Info("request completed")
		}
		return nextErr
	}
}

// RequestID returns the id stored by the request logger middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(common.RequestIDContextKey).(string)
	return id
}

// clientFields summarizes the caller's user agent. Service-to-service
// callers without a recognizable browser or OS log nothing.
func clientFields(userAgent string) logrus.Fields {
	if userAgent == "" {
		return nil
	}
	ua := uasurfer.Parse(userAgent)
	if ua.Browser.Name == uasurfer.BrowserUnknown && ua.OS.Name == uasurfer.OSUnknown {
		return logrus.Fields{"client": userAgent}
	}
	return logrus.Fields{
		"client_device":  ua.DeviceType.String(),
		"client_os":      fmt.Sprintf("%s %d.%d", ua.OS.Name.String(), ua.OS.Version.Major, ua.OS.Version.Minor),
		"client_browser": fmt.Sprintf("%s %d", ua.Browser.Name.String(), ua.Browser.Version.Major),
	}
}
