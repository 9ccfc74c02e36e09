package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/pkg/ai"
)

// ErrEvaluatorUnavailable indicates the AI evaluator is not configured.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// ErrEvaluationFailed indicates the AI provider call itself failed.
var ErrEvaluationFailed = errors.New("ai evaluation failed")

// ErrEvaluationEmpty indicates the AI provider answered without any content.
var ErrEvaluationEmpty = errors.New("ai evaluation returned no content")

// ErrEvaluationInvalid indicates the AI provider answered with an unusable evaluation.
var ErrEvaluationInvalid = errors.New("ai evaluation could not be parsed")

// ErrEvaluationNotSaved indicates the evaluation could not be persisted.
var ErrEvaluationNotSaved = errors.New("failed to save evaluation")

// EvaluationService triggers AI grading for a task.
type EvaluationService interface {
	Evaluate(ctx context.Context, payload dto.EvaluationRequest) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	tasks        repository.TaskRepository
	evaluations  repository.EvaluationRepository
	evaluator    ai.Evaluator
	reports      ReportCacheInvalidator
	defaultModel string
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
}

// NewEvaluationService constructs the evaluation trigger. A nil evaluator makes every call fail with ErrEvaluatorUnavailable.
func NewEvaluationService(tasks repository.TaskRepository, evaluations repository.EvaluationRepository, evaluator ai.Evaluator, reports ReportCacheInvalidator, defaultModel string, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		tasks:        tasks,
		evaluations:  evaluations,
		evaluator:    evaluator,
		reports:      reports,
		defaultModel: defaultModel,
		sanitizer:    bluemonday.UGCPolicy(),
		logger:       logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, payload dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	taskID := strings.TrimSpace(payload.TaskID)
	userID := strings.TrimSpace(payload.UserID)
	if taskID == "" || userID == "" {
		return dto.EvaluationResponse{}, ErrMissingIdentifiers
	}

	if s.evaluator == nil {
		return dto.EvaluationResponse{}, ErrEvaluatorUnavailable
	}

	task, err := getOwnedTask(ctx, s.tasks, taskID, userID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	logger := s.logger.With().Str("task_id", task.ID).Str("user_id", userID).Logger()

	result, err := s.evaluator.Evaluate(ctx, ai.EvaluationInput{
		Title:          task.Title,
		Description:    task.Description,
		CodeSubmission: task.CodeSubmission,
		CodeURL:        task.CodeURL,
		RepoURL:        task.RepoURL,
	})
	if err != nil {
		s.markTask(ctx, logger, task.ID, models.TaskStatusError)
		if errors.Is(err, ai.ErrEmptyResponse) {
			logger.Error().Err(err).Msg("ai evaluation returned no content")
			return dto.EvaluationResponse{}, fmt.Errorf("%w: %v", ErrEvaluationEmpty, err)
		}
		if errors.Is(err, ai.ErrInvalidResponse) {
			logger.Warn().Err(err).Msg("ai evaluation returned an invalid response")
			return dto.EvaluationResponse{}, fmt.Errorf("%w: %v", ErrEvaluationInvalid, err)
		}
		logger.Error().Err(err).Msg("ai evaluation failed")
		return dto.EvaluationResponse{}, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}

	if math.IsNaN(result.ScoreOverall) || result.ScoreOverall < 0 || result.ScoreOverall > 100 {
		s.markTask(ctx, logger, task.ID, models.TaskStatusError)
		return dto.EvaluationResponse{}, fmt.Errorf("%w: score %v out of range", ErrEvaluationInvalid, result.ScoreOverall)
	}

	model := result.Model
	if model == "" {
		model = s.defaultModel
	}

	evaluation := models.Evaluation{
		TaskID:           task.ID,
		Model:            model,
		ScoreOverall:     int(math.Round(result.ScoreOverall)),
		Strengths:        strings.TrimSpace(s.sanitizer.Sanitize(result.Strengths)),
		Improvements:     strings.TrimSpace(s.sanitizer.Sanitize(result.Improvements)),
		DetailedFeedback: strings.TrimSpace(s.sanitizer.Sanitize(result.DetailedFeedback)),
		RawResponse:      datatypes.JSONMap(result.Raw),
	}
	if err := s.evaluations.Create(ctx, &evaluation); err != nil {
		logger.Error().Err(err).Msg("failed to insert evaluation")
		return dto.EvaluationResponse{}, fmt.Errorf("%w: %v", ErrEvaluationNotSaved, err)
	}

	s.markTask(ctx, logger, task.ID, models.TaskStatusEvaluated)
	invalidateReports(ctx, s.reports, userID)

	logger.Info().Str("evaluation_id", evaluation.ID).Int("score", evaluation.ScoreOverall).Msg("task evaluated")

	return dto.NewEvaluationResponse(evaluation), nil
}

// markTask is best-effort; the evaluation row is authoritative.
func (s *evaluationService) markTask(ctx context.Context, logger zerolog.Logger, taskID, status string) {
	if err := s.tasks.UpdateStatus(ctx, taskID, status); err != nil {
		logger.Warn().Err(err).Str("status", status).Msg("failed to update task status")
	}
}
