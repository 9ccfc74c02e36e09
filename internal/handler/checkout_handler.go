package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// CheckoutHandler exposes checkout session creation.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler constructs the handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("component", "checkout_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *CheckoutHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.create)
	router.Post("", handlers...)
}

func (h *CheckoutHandler) create(c *fiber.Ctx) error {
	var payload dto.CheckoutRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	userID, ok := resolveUserID(c, payload.UserID)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, msgTaskNotFound)
	}
	payload.UserID = userID

	response, err := h.service.CreateSession(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendOK(c, response)
}

func (h *CheckoutHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingIdentifiers):
		return utils.SendError(c, fiber.StatusBadRequest, msgMissingIDs)
	case errors.Is(err, service.ErrPaymentNotConfigured):
		return utils.SendError(c, fiber.StatusInternalServerError, "Payment system not configured")
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, msgTaskNotFound)
	case errors.Is(err, service.ErrReportAlreadyUnlocked):
		return utils.SendError(c, fiber.StatusBadRequest, "Report already unlocked")
	case errors.Is(err, service.ErrCheckoutSessionFailed):
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to create checkout session")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("checkout failed")
		return utils.SendError(c, fiber.StatusInternalServerError, msgUnexpectedFailure)
	}
}
