package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/middleware"
)

// Messages surfaced verbatim to the web client.
const (
	msgInvalidBody       = "invalid request body"
	msgMissingIDs        = "Missing taskId or userId"
	msgTaskNotFound      = "Task not found or access denied"
	msgUnauthenticated   = "user not authenticated"
	msgUnexpectedFailure = "An unexpected error occurred"
)

func userIDFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_role").(string); ok {
		return v
	}
	return ""
}

// resolveUserID picks the acting user for body-addressed endpoints. The body value defaults
// to the token subject; ok is false when both are present and disagree.
func resolveUserID(c *fiber.Ctx, bodyUserID string) (string, bool) {
	tokenUserID := userIDFromContext(c)
	bodyUserID = strings.TrimSpace(bodyUserID)

	switch {
	case bodyUserID == "":
		return tokenUserID, true
	case tokenUserID != "" && tokenUserID != bodyUserID:
		return "", false
	default:
		return bodyUserID, true
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
