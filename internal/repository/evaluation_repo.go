package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// EvaluationRepository exposes persistence helpers for AI evaluations.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	LatestByTask(ctx context.Context, taskID string) (models.Evaluation, error)
	LatestByTasks(ctx context.Context, taskIDs []string) (map[string]models.Evaluation, error)
}

// NewEvaluationRepository constructs an evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

type evaluationRepository struct {
	db *gorm.DB
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) LatestByTask(ctx context.Context, taskID string) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		First(&evaluation).Error
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) LatestByTasks(ctx context.Context, taskIDs []string) (map[string]models.Evaluation, error) {
	latest := make(map[string]models.Evaluation, len(taskIDs))
	if len(taskIDs) == 0 {
		return latest, nil
	}

	var evaluations []models.Evaluation
	err := r.db.WithContext(ctx).
		Where("task_id IN ?", taskIDs).
		Order("created_at ASC").
		Find(&evaluations).Error
	if err != nil {
		return nil, err
	}

	for _, evaluation := range evaluations {
		latest[evaluation.TaskID] = evaluation
	}
	return latest, nil
}
