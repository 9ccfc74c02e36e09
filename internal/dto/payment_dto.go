package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// PaymentStatusNone is reported for tasks that have no payment attempts.
const PaymentStatusNone = "none"

// CheckoutRequest starts a hosted checkout for a task.
type CheckoutRequest struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// CheckoutResponse carries the provider redirect URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// WebhookAck acknowledges an authenticated provider event.
type WebhookAck struct {
	Received bool `json:"received"`
}

// PaymentResponse represents a single payment attempt.
type PaymentResponse struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	Provider      string    `json:"provider"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"status_label"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	AmountDisplay string    `json:"amount_display"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskPaymentStatusResponse summarises a task's payment history for the unlock gate.
type TaskPaymentStatusResponse struct {
	TaskID      string           `json:"task_id"`
	Status      string           `json:"status"`
	StatusLabel string           `json:"status_label"`
	Unlocked    bool             `json:"unlocked"`
	Attempts    int              `json:"attempts"`
	Latest      *PaymentResponse `json:"latest"`
}

// PaymentStatusEvent is broadcast whenever the webhook receiver changes a payment row.
type PaymentStatusEvent struct {
	PaymentID  string    `json:"payment_id"`
	TaskID     string    `json:"task_id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentStatusLabel maps a stored status to its display label.
func PaymentStatusLabel(status string) string {
	switch status {
	case models.PaymentStatusPending:
		return "Processing"
	case models.PaymentStatusPaid:
		return "Paid"
	case models.PaymentStatusFailed:
		return "Failed"
	default:
		return "Not Purchased"
	}
}

// FormatAmount renders minor currency units, e.g. 499 "usd" -> "4.99 USD".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, strings.ToUpper(currency))
}

// NewPaymentResponse builds a response DTO from the model.
func NewPaymentResponse(payment models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID,
		TaskID:        payment.TaskID,
		Provider:      payment.Provider,
		Status:        payment.Status,
		StatusLabel:   PaymentStatusLabel(payment.Status),
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		AmountDisplay: FormatAmount(payment.Amount, payment.Currency),
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
}

// NewTaskPaymentStatus derives the unlock view from a task's ordered attempts.
func NewTaskPaymentStatus(taskID string, attempts models.PaymentAttempts) TaskPaymentStatusResponse {
	status := attempts.EffectiveStatus()
	if status == "" {
		status = PaymentStatusNone
	}

	response := TaskPaymentStatusResponse{
		TaskID:      taskID,
		Status:      status,
		StatusLabel: PaymentStatusLabel(status),
		Unlocked:    attempts.Unlocked(),
		Attempts:    len(attempts),
	}
	if latest, ok := attempts.Latest(); ok {
		converted := NewPaymentResponse(latest)
		response.Latest = &converted
	}

	return response
}
