package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// EvaluationHandler exposes the AI evaluation trigger.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *EvaluationHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.evaluate)
	router.Post("", handlers...)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	userID, ok := resolveUserID(c, payload.UserID)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, msgTaskNotFound)
	}
	payload.UserID = userID

	response, err := h.service.Evaluate(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendOK(c, response)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingIdentifiers):
		return utils.SendError(c, fiber.StatusBadRequest, msgMissingIDs)
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, msgTaskNotFound)
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		return utils.SendError(c, fiber.StatusInternalServerError, "AI evaluation not configured")
	case errors.Is(err, service.ErrEvaluationEmpty):
		return utils.SendError(c, fiber.StatusInternalServerError, "No response from AI. Please try again.")
	case errors.Is(err, service.ErrEvaluationInvalid):
		return utils.SendError(c, fiber.StatusBadRequest, "Failed to parse AI evaluation. Please try again.")
	case errors.Is(err, service.ErrEvaluationFailed):
		return utils.SendError(c, fiber.StatusInternalServerError, "AI evaluation failed. Please try again.")
	case errors.Is(err, service.ErrEvaluationNotSaved):
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to save evaluation")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("evaluation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, msgUnexpectedFailure)
	}
}
