package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pooyaostvoar/chess-mater/internal/config"
	"github.com/pooyaostvoar/chess-mater/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChatHandler    *handler.ChatHandler
	MessageHandler *handler.MessageHandler
	PushHandler    *handler.PushHandler
	SessionGuard   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	sessionGuard := deps.SessionGuard
	if sessionGuard == nil {
		sessionGuard = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(api.Group("/messages"))
	}

	if deps.PushHandler != nil {
		deps.PushHandler.Register(api.Group("/push", sessionGuard))
	}

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(api.Group("/chat"), sessionGuard)
	}
}
