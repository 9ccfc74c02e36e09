package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// TaskRepository exposes persistence operations for submitted tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetOwned(ctx context.Context, id, userID string) (models.Task, error)
	ListByUser(ctx context.Context, userID string) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// NewTaskRepository constructs a task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

type taskRepository struct {
	db *gorm.DB
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetOwned returns gorm.ErrRecordNotFound both for unknown ids and for tasks owned by someone else.
func (r *taskRepository) GetOwned(ctx context.Context, id, userID string) (models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
