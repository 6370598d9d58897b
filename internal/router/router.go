package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-rubric-api/internal/config"
	"github.com/noah-isme/gema-rubric-api/internal/handler"
	"github.com/noah-isme/gema-rubric-api/internal/middleware"
	"github.com/noah-isme/gema-rubric-api/internal/observability"
)

// Roles allowed to manage exam rubrics.
var rubricRoles = []string{"admin", "teacher"}

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RubricHandler *handler.RubricHandler
	MetricHandler *handler.MetricHandler
	JWTMiddleware fiber.Handler
	HealthProbes  []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	grading := app.Group("/api/v2", jwtMiddleware, middleware.RequireRole(rubricRoles...))
	if deps.RubricHandler != nil {
		deps.RubricHandler.Register(grading)
	}
	if deps.MetricHandler != nil {
		deps.MetricHandler.Register(grading)
	}
}
