package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codegrade-api/internal/config"
	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler          *handler.TaskHandler
	EvaluationHandler    *handler.EvaluationHandler
	CheckoutHandler      *handler.CheckoutHandler
	WebhookHandler       *handler.WebhookHandler
	ReportHandler        *handler.ReportHandler
	PaymentStreamHandler *handler.PaymentStreamHandler
	JWTMiddleware        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Signed by the provider; never behind JWT.
	if deps.WebhookHandler != nil {
		deps.WebhookHandler.Register(api.Group("/webhooks"))
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	callers := middleware.RequireRole(middleware.AuthRoleAuthenticated, middleware.AuthRoleService)
	users := middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{
		Role:        middleware.AuthRoleAuthenticated,
		RequireUser: true,
	})

	if deps.EvaluationHandler != nil {
		group := api.Group("/evaluations", jwtMiddleware, callers)
		deps.EvaluationHandler.Register(group, middleware.RateLimit("evaluations", cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	if deps.CheckoutHandler != nil {
		group := api.Group("/checkout-sessions", jwtMiddleware, callers)
		deps.CheckoutHandler.Register(group, middleware.RateLimit("checkout", cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	if deps.TaskHandler != nil {
		deps.TaskHandler.Register(api.Group("/tasks", jwtMiddleware, users))
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api.Group("/reports", jwtMiddleware, users))
	}

	if deps.PaymentStreamHandler != nil {
		deps.PaymentStreamHandler.Register(api.Group("/payments", jwtMiddleware, users))
	}
}
