package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// TaskHandler exposes task submission and read endpoints.
type TaskHandler struct {
	service service.TaskService
	logger  zerolog.Logger
}

// NewTaskHandler constructs the handler.
func NewTaskHandler(service service.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *TaskHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.detail)
	router.Get("/:id/payment", h.paymentStatus)
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, msgUnauthenticated)
	}

	var payload dto.TaskCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	response, err := h.service.Create(requestContext(c), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendJSON(c, fiber.StatusCreated, response)
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, msgUnauthenticated)
	}

	response, err := h.service.List(requestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendOK(c, response)
}

func (h *TaskHandler) detail(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, msgUnauthenticated)
	}

	response, err := h.service.Detail(requestContext(c), c.Params("id"), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendOK(c, response)
}

func (h *TaskHandler) paymentStatus(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, msgUnauthenticated)
	}

	response, err := h.service.PaymentStatus(requestContext(c), c.Params("id"), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendOK(c, response)
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTaskTitleEmpty), errors.Is(err, service.ErrUnsupportedSubmission):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMissingIdentifiers):
		return utils.SendError(c, fiber.StatusBadRequest, msgMissingIDs)
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, msgTaskNotFound)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("task operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, msgUnexpectedFailure)
	}
}
