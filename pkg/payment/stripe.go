package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig configures the Stripe gateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Backends overrides the API endpoints; nil uses api.stripe.com.
	Backends *stripe.Backends
	Logger   zerolog.Logger
}

// StripeGateway implements Gateway and EventVerifier on top of stripe-go.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripeGateway builds a gateway; a secret key is required.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	return &StripeGateway{
		api:           client.New(cfg.SecretKey, cfg.Backends),
		webhookSecret: cfg.WebhookSecret,
		logger:        cfg.Logger.With().Str("component", "stripe_gateway").Logger(),
	}, nil
}

// CreateCheckoutSession opens a payment-mode checkout for one unit of the configured price.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.TaskID),
	}
	params.Context = ctx
	params.AddMetadata(MetadataTaskID, req.TaskID)
	params.AddMetadata(MetadataUserID, req.UserID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	return fromStripeSession(session), nil
}

// VerifyEvent checks the Stripe-Signature header and decodes the event.
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (Event, error) {
	if g.webhookSecret == "" {
		return Event{}, fmt.Errorf("stripe webhook secret is not configured")
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(event.Type, "checkout.session.") || evt.Data == nil {
		return event, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	decoded := fromStripeSession(&session)
	event.Session = &decoded

	return event, nil
}

func fromStripeSession(session *stripe.CheckoutSession) CheckoutSession {
	if session == nil {
		return CheckoutSession{}
	}
	return CheckoutSession{
		ID:                session.ID,
		URL:               session.URL,
		AmountTotal:       session.AmountTotal,
		Currency:          string(session.Currency),
		ClientReferenceID: session.ClientReferenceID,
		Metadata:          session.Metadata,
	}
}
