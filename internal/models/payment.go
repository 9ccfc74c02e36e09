package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment status values.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// PaymentProviderStripe identifies checkout sessions hosted by Stripe.
const PaymentProviderStripe = "stripe"

// Payment records one checkout attempt for a task and its settlement status.
type Payment struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            string    `gorm:"size:36;not null;index" json:"user_id"`
	TaskID            string    `gorm:"size:36;not null;index" json:"task_id"`
	Provider          string    `gorm:"size:32;not null" json:"provider"`
	ProviderSessionID string    `gorm:"size:255;index" json:"provider_session_id"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Currency          string    `gorm:"size:8;not null" json:"currency"`
	Status            string    `gorm:"size:16;not null;index" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsPaid reports whether the attempt settled successfully.
func (p Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// PaymentAttempts is the ordered history of checkout attempts for a single task, oldest first.
type PaymentAttempts []Payment

// NewPaymentAttempts orders the given rows by creation time, then by ID for equal timestamps.
func NewPaymentAttempts(payments []Payment) PaymentAttempts {
	attempts := make(PaymentAttempts, len(payments))
	copy(attempts, payments)
	sort.Slice(attempts, func(i, j int) bool {
		if !attempts[i].CreatedAt.Equal(attempts[j].CreatedAt) {
			return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
		}
		return attempts[i].ID < attempts[j].ID
	})
	return attempts
}

// Latest returns the most recent attempt, if any.
func (a PaymentAttempts) Latest() (Payment, bool) {
	if len(a) == 0 {
		return Payment{}, false
	}
	return a[len(a)-1], true
}

// EffectiveStatus derives the status that governs report access.
// A paid attempt anywhere in the history wins; otherwise the latest attempt decides.
// An empty history yields "".
func (a PaymentAttempts) EffectiveStatus() string {
	for _, attempt := range a {
		if attempt.IsPaid() {
			return PaymentStatusPaid
		}
	}
	latest, ok := a.Latest()
	if !ok {
		return ""
	}
	return latest.Status
}

// Unlocked reports whether the full evaluation report may be shown.
func (a PaymentAttempts) Unlocked() bool {
	return a.EffectiveStatus() == PaymentStatusPaid
}
