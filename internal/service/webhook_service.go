package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/observability"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/pkg/payment"
)

// ErrWebhookNotConfigured indicates no signing secret is available to verify events.
var ErrWebhookNotConfigured = errors.New("webhook not configured")

// ErrMissingSignature indicates the signature header was absent.
var ErrMissingSignature = errors.New("missing stripe-signature header")

// ErrInvalidSignature indicates the event failed verification.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrPaymentRecordNotFound indicates a completed session matched no row and carried no usable metadata.
var ErrPaymentRecordNotFound = errors.New("payment record not found")

// ReconciliationKind tags how a completed checkout maps onto stored payments.
type ReconciliationKind int

const (
	// ReconcileIrrecoverable means no row matched and metadata cannot rebuild one.
	ReconcileIrrecoverable ReconciliationKind = iota
	// ReconcileFound means a row with the session id exists.
	ReconcileFound
	// ReconcileFromMetadata means the row is missing but task and user ids are known.
	ReconcileFromMetadata
)

func (k ReconciliationKind) String() string {
	switch k {
	case ReconcileFound:
		return "found"
	case ReconcileFromMetadata:
		return "reconstruct"
	default:
		return "irrecoverable"
	}
}

// Reconciliation is the outcome of matching a completed session to local state.
// Payment is set for ReconcileFound; TaskID and UserID for ReconcileFromMetadata.
type Reconciliation struct {
	Kind    ReconciliationKind
	Payment models.Payment
	TaskID  string
	UserID  string
}

// Reconcile decides how a completed checkout session should be applied.
func Reconcile(existing *models.Payment, session payment.CheckoutSession) Reconciliation {
	if existing != nil {
		return Reconciliation{Kind: ReconcileFound, Payment: *existing}
	}

	taskID := strings.TrimSpace(session.Metadata[payment.MetadataTaskID])
	if taskID == "" {
		taskID = strings.TrimSpace(session.ClientReferenceID)
	}
	userID := strings.TrimSpace(session.Metadata[payment.MetadataUserID])
	if taskID == "" || userID == "" {
		return Reconciliation{Kind: ReconcileIrrecoverable}
	}

	return Reconciliation{Kind: ReconcileFromMetadata, TaskID: taskID, UserID: userID}
}

// WebhookService applies verified provider events to payment rows.
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) (dto.WebhookAck, error)
}

// WebhookConfig holds the fallbacks used when a reconstructed row lacks amount or currency.
type WebhookConfig struct {
	DefaultAmount   int64
	DefaultCurrency string
}

type webhookService struct {
	payments  repository.PaymentRepository
	verifier  payment.EventVerifier
	publisher PaymentEventPublisher
	reports   ReportCacheInvalidator
	config    WebhookConfig
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewWebhookService constructs the webhook receiver. A nil verifier leaves the webhook unconfigured.
func NewWebhookService(payments repository.PaymentRepository, verifier payment.EventVerifier, publisher PaymentEventPublisher, reports ReportCacheInvalidator, cfg WebhookConfig, logger zerolog.Logger) WebhookService {
	if cfg.DefaultAmount <= 0 {
		cfg.DefaultAmount = 499
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}

	return &webhookService{
		payments:  payments,
		verifier:  verifier,
		publisher: publisher,
		reports:   reports,
		config:    cfg,
		logger:    logger.With().Str("component", "webhook_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/codegrade-api/internal/service/webhook"),
		now:       time.Now,
	}
}

func (s *webhookService) Handle(ctx context.Context, payload []byte, signature string) (dto.WebhookAck, error) {
	if s.verifier == nil {
		s.logger.Error().Msg("webhook received but no signing secret is configured")
		return dto.WebhookAck{}, ErrWebhookNotConfigured
	}

	if strings.TrimSpace(signature) == "" {
		observability.WebhookEvents().WithLabelValues("unknown", "missing_signature").Inc()
		return dto.WebhookAck{}, ErrMissingSignature
	}

	event, err := s.verifier.VerifyEvent(payload, signature)
	if err != nil {
		observability.WebhookEvents().WithLabelValues("unknown", "invalid_signature").Inc()
		s.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return dto.WebhookAck{}, ErrInvalidSignature
	}

	spanCtx, span := s.tracer.Start(ctx, "payments.webhook", trace.WithAttributes(
		attribute.String("webhook.event_id", event.ID),
		attribute.String("webhook.event_type", event.Type),
	))
	defer span.End()

	logger := s.logger.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	switch {
	case event.Type == payment.EventCheckoutCompleted && event.Session != nil:
		if err := s.completeSession(spanCtx, logger, *event.Session); err != nil {
			span.RecordError(err)
			return dto.WebhookAck{}, err
		}
	case event.Type == payment.EventCheckoutExpired && event.Session != nil:
		s.expireSession(spanCtx, logger, *event.Session)
	default:
		observability.WebhookEvents().WithLabelValues(event.Type, "ignored").Inc()
		logger.Debug().Msg("ignoring webhook event")
	}

	return dto.WebhookAck{Received: true}, nil
}

func (s *webhookService) completeSession(ctx context.Context, logger zerolog.Logger, session payment.CheckoutSession) error {
	logger = logger.With().Str("session_id", session.ID).Logger()

	var existing *models.Payment
	found, err := s.payments.FindBySessionID(ctx, session.ID)
	switch {
	case err == nil:
		existing = &found
	case !errors.Is(err, gorm.ErrRecordNotFound):
		logger.Error().Err(err).Msg("payment lookup failed, falling back to session metadata")
	}

	reconciliation := Reconcile(existing, session)
	logger = logger.With().Str("reconciliation", reconciliation.Kind.String()).Logger()

	switch reconciliation.Kind {
	case ReconcileFound:
		row := reconciliation.Payment
		settlement := repository.PaymentSettlement{
			Status:   models.PaymentStatusPaid,
			Amount:   session.AmountTotal,
			Currency: strings.ToLower(session.Currency),
		}
		if err := s.payments.Settle(ctx, row.ID, settlement); err != nil {
			observability.WebhookEvents().WithLabelValues(payment.EventCheckoutCompleted, "store_error").Inc()
			logger.Error().Err(err).Str("payment_id", row.ID).Msg("failed to mark payment paid")
			return nil
		}
		s.applied(ctx, payment.EventCheckoutCompleted, row, row.Status, models.PaymentStatusPaid, session.ID)
		logger.Info().Str("payment_id", row.ID).Msg("payment marked paid")

	case ReconcileFromMetadata:
		row := models.Payment{
			UserID:            reconciliation.UserID,
			TaskID:            reconciliation.TaskID,
			Provider:          models.PaymentProviderStripe,
			ProviderSessionID: session.ID,
			Amount:            session.AmountTotal,
			Currency:          strings.ToLower(session.Currency),
			Status:            models.PaymentStatusPaid,
		}
		if row.Amount <= 0 {
			row.Amount = s.config.DefaultAmount
		}
		if row.Currency == "" {
			row.Currency = s.config.DefaultCurrency
		}
		if err := s.payments.Create(ctx, &row); err != nil {
			observability.WebhookEvents().WithLabelValues(payment.EventCheckoutCompleted, "store_error").Inc()
			logger.Error().Err(err).Str("task_id", row.TaskID).Msg("failed to create payment from session metadata")
			return nil
		}
		s.applied(ctx, payment.EventCheckoutCompleted, row, "", models.PaymentStatusPaid, session.ID)
		logger.Info().Str("payment_id", row.ID).Str("task_id", row.TaskID).Msg("payment reconstructed from session metadata")

	default:
		observability.WebhookEvents().WithLabelValues(payment.EventCheckoutCompleted, "not_found").Inc()
		logger.Error().Msg("completed session has no payment row and no metadata")
		return ErrPaymentRecordNotFound
	}

	return nil
}

func (s *webhookService) expireSession(ctx context.Context, logger zerolog.Logger, session payment.CheckoutSession) {
	logger = logger.With().Str("session_id", session.ID).Logger()

	previous, lookupErr := s.payments.FindBySessionID(ctx, session.ID)

	affected, err := s.payments.UpdateStatusBySession(ctx, session.ID, models.PaymentStatusFailed)
	if err != nil {
		observability.WebhookEvents().WithLabelValues(payment.EventCheckoutExpired, "store_error").Inc()
		logger.Error().Err(err).Msg("failed to mark payment failed")
		return
	}
	if affected == 0 {
		observability.WebhookEvents().WithLabelValues(payment.EventCheckoutExpired, "no_match").Inc()
		logger.Info().Msg("expired session matched no payment row")
		return
	}

	if lookupErr != nil {
		observability.WebhookEvents().WithLabelValues(payment.EventCheckoutExpired, "applied").Inc()
		return
	}
	s.applied(ctx, payment.EventCheckoutExpired, previous, previous.Status, models.PaymentStatusFailed, session.ID)
	logger.Info().Str("payment_id", previous.ID).Msg("payment marked failed")
}

// applied records a transition and fans it out; failures past this point are best-effort.
func (s *webhookService) applied(ctx context.Context, eventType string, row models.Payment, from, to, sessionID string) {
	fromLabel := from
	if fromLabel == "" {
		fromLabel = dto.PaymentStatusNone
	}
	observability.WebhookEvents().WithLabelValues(eventType, "applied").Inc()
	observability.PaymentTransitions().WithLabelValues(fromLabel, to).Inc()

	invalidateReports(ctx, s.reports, row.UserID)

	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, dto.PaymentStatusEvent{
		PaymentID:  row.ID,
		TaskID:     row.TaskID,
		UserID:     row.UserID,
		SessionID:  sessionID,
		From:       fromLabel,
		To:         to,
		OccurredAt: s.now().UTC(),
	})
}
