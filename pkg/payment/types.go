package payment

import (
	"context"
	"errors"
)

// Event types the webhook receiver acts on.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// Metadata keys embedded in every checkout session.
const (
	MetadataTaskID = "task_id"
	MetadataUserID = "user_id"
)

// ErrInvalidSignature indicates an inbound event failed signature verification.
var ErrInvalidSignature = errors.New("invalid signature")

// CheckoutRequest describes a hosted checkout for a single fixed-price item.
type CheckoutRequest struct {
	TaskID     string
	UserID     string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider's view of a hosted checkout flow.
type CheckoutSession struct {
	ID                string
	URL               string
	AmountTotal       int64
	Currency          string
	ClientReferenceID string
	Metadata          map[string]string
}

// Event is a verified provider notification. Session is populated for checkout.session.* events.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// Gateway creates hosted checkout sessions.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// EventVerifier authenticates a raw webhook body against its signature header.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (Event, error)
}
