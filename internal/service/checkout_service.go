package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/observability"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/pkg/payment"
)

// ErrPaymentNotConfigured indicates checkout cannot run without provider credentials.
var ErrPaymentNotConfigured = errors.New("payment system not configured")

// ErrReportAlreadyUnlocked indicates a paid payment already exists for the task.
var ErrReportAlreadyUnlocked = errors.New("report already unlocked")

// ErrCheckoutSessionFailed indicates the provider did not return a usable session.
var ErrCheckoutSessionFailed = errors.New("failed to create checkout session")

// CheckoutConfig holds the settings checkout sessions are created with.
type CheckoutConfig struct {
	PublicURL       string
	PriceID         string
	DefaultAmount   int64
	DefaultCurrency string
}

// CheckoutService starts hosted checkouts that unlock evaluation reports.
type CheckoutService interface {
	CreateSession(ctx context.Context, payload dto.CheckoutRequest) (dto.CheckoutResponse, error)
}

type checkoutService struct {
	tasks    repository.TaskRepository
	payments repository.PaymentRepository
	gateway  payment.Gateway
	config   CheckoutConfig
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewCheckoutService constructs the checkout initiator. A nil gateway leaves payments unconfigured.
func NewCheckoutService(tasks repository.TaskRepository, payments repository.PaymentRepository, gateway payment.Gateway, cfg CheckoutConfig, logger zerolog.Logger) CheckoutService {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.DefaultAmount <= 0 {
		cfg.DefaultAmount = 499
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}

	return &checkoutService{
		tasks:    tasks,
		payments: payments,
		gateway:  gateway,
		config:   cfg,
		logger:   logger.With().Str("component", "checkout_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/codegrade-api/internal/service/checkout"),
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, payload dto.CheckoutRequest) (dto.CheckoutResponse, error) {
	taskID := strings.TrimSpace(payload.TaskID)
	userID := strings.TrimSpace(payload.UserID)
	if taskID == "" || userID == "" {
		return dto.CheckoutResponse{}, ErrMissingIdentifiers
	}

	if s.gateway == nil || s.config.PriceID == "" || s.config.PublicURL == "" {
		s.logger.Error().Msg("checkout requested but payment provider is not configured")
		observability.CheckoutSessions().WithLabelValues("not_configured").Inc()
		return dto.CheckoutResponse{}, ErrPaymentNotConfigured
	}

	spanCtx, span := s.tracer.Start(ctx, "payments.checkout", trace.WithAttributes(
		attribute.String("payment.task_id", taskID),
		attribute.String("payment.user_id", userID),
	))
	defer span.End()

	task, err := getOwnedTask(spanCtx, s.tasks, taskID, userID)
	if err != nil {
		observability.CheckoutSessions().WithLabelValues("rejected").Inc()
		span.RecordError(err)
		return dto.CheckoutResponse{}, err
	}

	paid, err := s.payments.HasPaid(spanCtx, task.ID, userID)
	if err != nil {
		span.RecordError(err)
		return dto.CheckoutResponse{}, err
	}
	if paid {
		observability.CheckoutSessions().WithLabelValues("already_unlocked").Inc()
		return dto.CheckoutResponse{}, ErrReportAlreadyUnlocked
	}

	taskURL := fmt.Sprintf("%s/task/%s", s.config.PublicURL, url.PathEscape(task.ID))
	session, err := s.gateway.CreateCheckoutSession(spanCtx, payment.CheckoutRequest{
		TaskID:     task.ID,
		UserID:     userID,
		PriceID:    s.config.PriceID,
		SuccessURL: taskURL + "?payment=success",
		CancelURL:  taskURL + "?payment=cancelled",
	})
	if err != nil {
		observability.CheckoutSessions().WithLabelValues("provider_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider error")
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("checkout session creation failed")
		return dto.CheckoutResponse{}, fmt.Errorf("%w: %v", ErrCheckoutSessionFailed, err)
	}
	if session.URL == "" {
		observability.CheckoutSessions().WithLabelValues("provider_error").Inc()
		span.SetStatus(codes.Error, "missing redirect url")
		return dto.CheckoutResponse{}, ErrCheckoutSessionFailed
	}
	span.SetAttributes(attribute.String("payment.session_id", session.ID))

	record := models.Payment{
		UserID:            userID,
		TaskID:            task.ID,
		Provider:          models.PaymentProviderStripe,
		ProviderSessionID: session.ID,
		Amount:            s.amountOrDefault(session.AmountTotal),
		Currency:          s.currencyOrDefault(session.Currency),
		Status:            models.PaymentStatusPending,
	}
	// The webhook reconstructs the row from session metadata when this insert is lost.
	if err := s.payments.Create(spanCtx, &record); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("task_id", task.ID).Str("session_id", session.ID).Msg("failed to record pending payment")
	}

	observability.CheckoutSessions().WithLabelValues("created").Inc()
	s.logger.Info().Str("task_id", task.ID).Str("session_id", session.ID).Msg("checkout session created")

	return dto.CheckoutResponse{URL: session.URL}, nil
}

func (s *checkoutService) amountOrDefault(amount int64) int64 {
	if amount > 0 {
		return amount
	}
	return s.config.DefaultAmount
}

func (s *checkoutService) currencyOrDefault(currency string) string {
	if currency = strings.ToLower(strings.TrimSpace(currency)); currency != "" {
		return currency
	}
	return s.config.DefaultCurrency
}
