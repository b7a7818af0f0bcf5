package http

import (
	"context"
	"errors"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/handlers/http/request"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalidJsonPayload = errors.New("invalid JSON payload")
	ErrInternal           = errors.New("internal error")
)

// ErrorStatus maps an error from request parsing or moderation to the HTTP
// status returned to the caller.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, request.ErrContentTooLarge), errors.Is(err, httpx.ErrBodyTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, ErrInvalidJsonPayload), moderation.IsValidationError(err):
		return fiber.StatusBadRequest
	case moderation.IsDecodeError(err), moderation.IsAggregationError(err):
		return fiber.StatusUnprocessableEntity
	case moderation.IsScoringProviderError(err):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
