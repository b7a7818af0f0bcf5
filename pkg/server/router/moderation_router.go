package router

import (
	"net/http"
	"time"

	handlers "github.com/NeuralTrust/TrustModeration/pkg/handlers/http"
	"github.com/NeuralTrust/TrustModeration/pkg/server/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

const (
	HealthPath          = "/health"
	PingPath            = "/__/ping"
	VersionPath         = "/api/v1/version"
	ModeratePath        = "/api/v1/moderate"
	InvalidateCachePath = "/api/v1/cache/invalidate"
	SwaggerJSONPath     = "/swagger.json"
	DocsPath            = "/docs/*"

	// swaggerFile is written by swag init, see cmd/moderator.
	swaggerFile = "./docs/swagger.json"
)

type moderationRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewModerationRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &moderationRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

func (r *moderationRouter) BuildRoutes(router *fiber.App) error {
	handlerTransport, ok := r.handlerTransport.GetTransport().(*handlers.HandlerTransportDTO)
	if !ok {
		return ErrInvalidHandlerTransport
	}

	router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	router.Static(SwaggerJSONPath, swaggerFile)
	router.Get(DocsPath, swagger.New(swagger.Config{
		URL: SwaggerJSONPath,
	}))

	router.Get(VersionPath, handlerTransport.GetVersionHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		if r.middlewareTransport != nil {
			if mws := r.middlewareTransport.GetMiddlewares(); len(mws) > 0 {
				v1.Use(mws...)
			}
		}
		v1.Post("/moderate", handlerTransport.ModerateHandler.Handle)
		v1.Post("/cache/invalidate", handlerTransport.InvalidateCacheHandler.Handle)
	}
	return nil
}
