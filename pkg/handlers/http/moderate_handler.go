package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	appModeration "github.com/NeuralTrust/TrustModeration/pkg/app/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/handlers/http/request"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/cache"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/events"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ModerateHandlerDeps struct {
	Logger       *logrus.Logger
	Orchestrator appModeration.Orchestrator
	// Cache and Publisher are optional.
	Cache     cache.VerdictCache
	Publisher events.Publisher
	Limits    request.Limits
}

type moderateHandler struct {
	logger       *logrus.Logger
	orchestrator appModeration.Orchestrator
	cache        cache.VerdictCache
	publisher    events.Publisher
	limits       request.Limits
}

func NewModerateHandler(deps ModerateHandlerDeps) Handler {
	return &moderateHandler{
		logger:       deps.Logger,
		orchestrator: deps.Orchestrator,
		cache:        deps.Cache,
		publisher:    deps.Publisher,
		limits:       deps.Limits,
	}
}

// Handle accepts either a JSON body ({"content_type", "content", "filename"})
// or a multipart form with a content_type field and a file part. When the
// form omits content_type the file part's MIME type selects the kind.
//
// @Summary Moderate content
// @Description Analyzes text, image, audio or video content and returns a verdict
// @Tags Moderation
// @Accept json,mpfd
// @Produce json
// @Param request body request.ModerateRequest true "Content to moderate, binary content base64 encoded"
// @Success 200 {object} moderation.Response "Moderation verdict"
// @Failure 400 {object} map[string]interface{} "Invalid request or disabled kind"
// @Failure 413 {object} map[string]interface{} "Payload too large"
// @Failure 422 {object} map[string]interface{} "No frame could be analyzed"
// @Failure 502 {object} map[string]interface{} "Scoring provider failed"
// @Failure 504 {object} map[string]interface{} "Moderation timed out"
// @Router /api/v1/moderate [post]
func (h *moderateHandler) Handle(c *fiber.Ctx) error {
	var (
		kind    moderation.Kind
		content []byte
		err     error
	)
	if isMultipart(c) {
		kind, content, err = h.parseMultipart(c)
	} else {
		kind, content, err = h.parseJSON(c)
	}
	if err != nil {
		return h.respondError(c, "", err)
	}

	ctx := c.UserContext()
	if h.cache != nil {
		if resp, ok := h.cache.Get(ctx, kind, content); ok {
			h.publish(resp, content)
			return c.Status(fiber.StatusOK).JSON(resp)
		}
	}

	resp, err := h.orchestrator.Moderate(ctx, appModeration.Request{Kind: kind, Content: content})
	if err != nil {
		return h.respondError(c, kind, err)
	}

	if h.cache != nil {
		h.cache.Set(ctx, kind, content, resp)
	}
	h.publish(resp, content)
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *moderateHandler) parseJSON(c *fiber.Ctx) (moderation.Kind, []byte, error) {
	// base64 inflates binary payloads by a third
	limit := h.limits.MaxRequestBytes() * 4 / 3
	body, err := httpx.DecodeBody(c.Get(fiber.HeaderContentEncoding), c.Request().Body(), limit)
	if err != nil {
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			return "", nil, err
		}
		return "", nil, moderation.NewValidationError("body", "could not decode body: %v", err)
	}

	var req request.ModerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.WithError(err).Debug("failed to bind moderation request")
		return "", nil, ErrInvalidJsonPayload
	}
	return req.Decode(h.limits)
}

func (h *moderateHandler) parseMultipart(c *fiber.Ctx) (moderation.Kind, []byte, error) {
	contentType := c.FormValue("content_type")

	fh, err := c.FormFile("file")
	if err != nil {
		// text may be sent as a plain form field
		if text := c.FormValue("content"); text != "" {
			req := request.ModerateRequest{ContentType: contentType, Content: text}
			if req.ContentType == "" {
				req.ContentType = string(moderation.KindText)
			}
			if kind, _ := moderation.ParseKind(req.ContentType); kind != moderation.KindText {
				return "", nil, moderation.NewValidationError("file", "%s content must be uploaded as a file", req.ContentType)
			}
			return req.Decode(h.limits)
		}
		return "", nil, moderation.NewValidationError("file", "file is required")
	}

	var kind moderation.Kind
	if contentType != "" {
		kind, err = moderation.ParseKind(contentType)
	} else {
		kind, err = moderation.KindFromMIME(fh.Header.Get(fiber.HeaderContentType))
	}
	if err != nil {
		return "", nil, err
	}
	if err := h.limits.CheckFormat(kind, fh.Filename); err != nil {
		return "", nil, err
	}
	if err := h.limits.CheckSize(kind, fh.Size); err != nil {
		return "", nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("read uploaded file: %w", err)
	}
	if len(content) == 0 {
		return "", nil, moderation.NewValidationError("file", "file is empty")
	}
	return kind, content, nil
}

func (h *moderateHandler) respondError(c *fiber.Ctx, kind moderation.Kind, err error) error {
	status := ErrorStatus(err)
	entry := h.logger.WithFields(logrus.Fields{
		"kind":   kind,
		"status": status,
	}).WithError(err)

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		entry.Error("moderation request failed")
		message = ErrInternal.Error()
	} else {
		entry.Debug("moderation request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (h *moderateHandler) publish(resp *moderation.Response, content []byte) {
	if h.publisher == nil {
		return
	}
	sum := sha256.Sum256(content)
	h.publisher.Publish(resp, hex.EncodeToString(sum[:]))
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEMultipartForm)
}
