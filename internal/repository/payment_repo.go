package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// PaymentSettlement carries the fields a completed checkout may overwrite.
// Zero values leave the stored amount or currency untouched.
type PaymentSettlement struct {
	Status   string
	Amount   int64
	Currency string
}

// PaymentRepository exposes persistence helpers for payment attempts.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindBySessionID(ctx context.Context, sessionID string) (models.Payment, error)
	Settle(ctx context.Context, id string, settlement PaymentSettlement) error
	UpdateStatusBySession(ctx context.Context, sessionID, status string) (int64, error)
	HasPaid(ctx context.Context, taskID, userID string) (bool, error)
	ListByTask(ctx context.Context, taskID string) (models.PaymentAttempts, error)
	ListByTasks(ctx context.Context, taskIDs []string) (map[string]models.PaymentAttempts, error)
}

// NewPaymentRepository constructs a payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

type paymentRepository struct {
	db *gorm.DB
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindBySessionID(ctx context.Context, sessionID string) (models.Payment, error) {
	var payment models.Payment
	if sessionID == "" {
		return models.Payment{}, gorm.ErrRecordNotFound
	}
	err := r.db.WithContext(ctx).
		Where("provider_session_id = ?", sessionID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// Settle applies an unconditional status update; repeated calls converge on the same row state.
func (r *paymentRepository) Settle(ctx context.Context, id string, settlement PaymentSettlement) error {
	updates := map[string]interface{}{"status": settlement.Status}
	if settlement.Amount > 0 {
		updates["amount"] = settlement.Amount
	}
	if settlement.Currency != "" {
		updates["currency"] = settlement.Currency
	}

	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *paymentRepository) UpdateStatusBySession(ctx context.Context, sessionID, status string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("provider_session_id = ?", sessionID).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) HasPaid(ctx context.Context, taskID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("task_id = ? AND user_id = ? AND status = ?", taskID, userID, models.PaymentStatusPaid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *paymentRepository) ListByTask(ctx context.Context, taskID string) (models.PaymentAttempts, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return models.NewPaymentAttempts(payments), nil
}

func (r *paymentRepository) ListByTasks(ctx context.Context, taskIDs []string) (map[string]models.PaymentAttempts, error) {
	grouped := make(map[string]models.PaymentAttempts, len(taskIDs))
	if len(taskIDs) == 0 {
		return grouped, nil
	}

	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("task_id IN ?", taskIDs).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	byTask := make(map[string][]models.Payment, len(taskIDs))
	for _, payment := range payments {
		byTask[payment.TaskID] = append(byTask[payment.TaskID], payment)
	}
	for taskID, rows := range byTask {
		grouped[taskID] = models.NewPaymentAttempts(rows)
	}
	return grouped, nil
}
