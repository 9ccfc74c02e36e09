package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/middleware"
	"github.com/noah-isme/codegrade-api/internal/service"
)

const paymentStreamWriteTimeout = 10 * time.Second

// PaymentStreamHandler pushes payment status changes for the caller's tasks over a websocket.
type PaymentStreamHandler struct {
	hub    service.PaymentEventHub
	logger zerolog.Logger
}

// NewPaymentStreamHandler constructs the handler.
func NewPaymentStreamHandler(hub service.PaymentEventHub, logger zerolog.Logger) *PaymentStreamHandler {
	return &PaymentStreamHandler{
		hub:    hub,
		logger: logger.With().Str("component", "payment_stream_handler").Logger(),
	}
}

// Register binds the websocket upgrade under the provided router group.
func (h *PaymentStreamHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *PaymentStreamHandler) handleConnection(conn *websocket.Conn) {
	userID := ""
	if value, ok := conn.Locals("user_id").(string); ok {
		userID = strings.TrimSpace(value)
	}
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	events, unsubscribe := h.hub.Subscribe(userID)
	defer unsubscribe()

	h.logger.Info().Str("user_id", userID).Msg("payment stream connected")
	defer h.logger.Info().Str("user_id", userID).Msg("payment stream disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(paymentStreamWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to push payment event")
				return
			}
		}
	}
}
