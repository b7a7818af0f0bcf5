package http

import (
	"github.com/NeuralTrust/TrustModeration/pkg/infra/cache"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type invalidateCacheHandler struct {
	logger *logrus.Logger
	cache  cache.VerdictCache
}

func NewInvalidateCacheHandler(
	logger *logrus.Logger,
	cache cache.VerdictCache,
) Handler {
	return &invalidateCacheHandler{
		logger: logger,
		cache:  cache,
	}
}

// Handle @Summary Invalidate cached verdicts
// @Description Removes every cached verdict, local and Redis
// @Tags Cache
// @Produce json
// @Success 200 {object} map[string]interface{} "Number of removed entries"
// @Failure 404 {object} map[string]interface{} "Verdict cache is not enabled"
// @Failure 500 {object} map[string]interface{} "Invalidation failed"
// @Router /api/v1/cache/invalidate [post]
func (h *invalidateCacheHandler) Handle(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "verdict cache is not enabled",
		})
	}

	h.logger.Info("invalidating verdict cache")
	removed, err := h.cache.Invalidate(c.UserContext())
	if err != nil {
		h.logger.WithError(err).Error("failed to invalidate verdict cache")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to invalidate cache",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Cache invalidated successfully",
		"removed": removed,
	})
}
