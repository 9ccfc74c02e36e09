package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// ReportHandler serves the caller's reports overview.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("", h.overview)
}

func (h *ReportHandler) overview(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, msgUnauthenticated)
	}

	response, err := h.service.Overview(requestContext(c), userID)
	if err != nil {
		if errors.Is(err, service.ErrMissingIdentifiers) {
			return utils.SendError(c, fiber.StatusBadRequest, msgMissingIDs)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load reports")
		return utils.SendError(c, fiber.StatusInternalServerError, msgUnexpectedFailure)
	}

	return utils.SendOK(c, response)
}
