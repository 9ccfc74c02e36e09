package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// SignatureHeader carries the provider's event signature.
const SignatureHeader = "stripe-signature"

// WebhookHandler receives signed payment provider events. It must be mounted without JWT auth.
type WebhookHandler struct {
	service service.WebhookService
	logger  zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(service service.WebhookService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/stripe", h.receive)
}

func (h *WebhookHandler) receive(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer once the handler returns.
	payload := append([]byte(nil), c.Body()...)

	ack, err := h.service.Handle(requestContext(c), payload, c.Get(SignatureHeader))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendOK(c, ack)
}

func (h *WebhookHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrWebhookNotConfigured):
		return utils.SendError(c, fiber.StatusInternalServerError, "Webhook not configured")
	case errors.Is(err, service.ErrMissingSignature):
		return utils.SendError(c, fiber.StatusBadRequest, "Missing stripe-signature header")
	case errors.Is(err, service.ErrInvalidSignature):
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid signature")
	case errors.Is(err, service.ErrPaymentRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Payment record not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("webhook processing failed")
		return utils.SendError(c, fiber.StatusInternalServerError, msgUnexpectedFailure)
	}
}
