package http

import (
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/version"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type versionResponse struct {
	version.Info
	Kinds         []moderation.Kind `json:"kinds"`
	AudioStrategy string            `json:"audio_strategy,omitempty"`
}

type getVersionHandler struct {
	logger        *logrus.Logger
	kinds         []moderation.Kind
	audioStrategy string
}

// NewGetVersionHandler reports the build plus which content kinds this
// instance was configured to moderate.
func NewGetVersionHandler(logger *logrus.Logger, kinds []moderation.Kind, audioStrategy string) Handler {
	return &getVersionHandler{
		logger:        logger,
		kinds:         kinds,
		audioStrategy: audioStrategy,
	}
}

// Handle @Summary Get TrustModeration version
// @Description Returns the build version and the content kinds this instance moderates
// @Tags Version
// @Produce json
// @Success 200 {object} map[string]interface{} "Version information"
// @Router /api/v1/version [get]
func (h *getVersionHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(versionResponse{
		Info:          version.GetInfo(),
		Kinds:         h.kinds,
		AudioStrategy: h.audioStrategy,
	})
}
