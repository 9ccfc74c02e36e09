package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/repository"
)

// ErrTaskNotFound indicates the task does not exist or belongs to another user.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskTitleEmpty indicates the title was blank once markup was stripped.
var ErrTaskTitleEmpty = errors.New("task title is empty after sanitization")

// ErrUnsupportedSubmission indicates the code submission is not plain text.
var ErrUnsupportedSubmission = errors.New("code submission must be plain text")

// TaskService exposes use cases related to submitted tasks.
type TaskService interface {
	Create(ctx context.Context, userID string, payload dto.TaskCreateRequest) (dto.TaskResponse, error)
	List(ctx context.Context, userID string) (dto.TaskListResponse, error)
	Get(ctx context.Context, taskID, userID string) (dto.TaskResponse, error)
	Detail(ctx context.Context, taskID, userID string) (dto.TaskDetailResponse, error)
	PaymentStatus(ctx context.Context, taskID, userID string) (dto.TaskPaymentStatusResponse, error)
}

type taskService struct {
	tasks       repository.TaskRepository
	evaluations repository.EvaluationRepository
	payments    repository.PaymentRepository
	reports     ReportCacheInvalidator
	validator   *validator.Validate
	titles      *bluemonday.Policy
	text        *bluemonday.Policy
	logger      zerolog.Logger
}

// NewTaskService builds a new task service.
func NewTaskService(tasks repository.TaskRepository, evaluations repository.EvaluationRepository, payments repository.PaymentRepository, reports ReportCacheInvalidator, validate *validator.Validate, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:       tasks,
		evaluations: evaluations,
		payments:    payments,
		reports:     reports,
		validator:   validate,
		titles:      bluemonday.StrictPolicy(),
		text:        bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "task_service").Logger(),
	}
}

func (s *taskService) Create(ctx context.Context, userID string, payload dto.TaskCreateRequest) (dto.TaskResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return dto.TaskResponse{}, ErrMissingIdentifiers
	}

	payload.Title = strings.TrimSpace(payload.Title)
	payload.Description = strings.TrimSpace(payload.Description)
	payload.CodeURL = strings.TrimSpace(payload.CodeURL)
	payload.RepoURL = strings.TrimSpace(payload.RepoURL)
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	title := strings.TrimSpace(s.titles.Sanitize(payload.Title))
	if title == "" {
		return dto.TaskResponse{}, ErrTaskTitleEmpty
	}

	if payload.CodeSubmission != "" && !isPlainText([]byte(payload.CodeSubmission)) {
		return dto.TaskResponse{}, ErrUnsupportedSubmission
	}

	task := models.Task{
		UserID:         userID,
		Title:          title,
		Description:    strings.TrimSpace(s.text.Sanitize(payload.Description)),
		CodeSubmission: payload.CodeSubmission,
		CodeURL:        payload.CodeURL,
		RepoURL:        payload.RepoURL,
		Status:         models.TaskStatusPending,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	invalidateReports(ctx, s.reports, userID)
	s.logger.Info().Str("task_id", task.ID).Str("user_id", userID).Msg("task submitted")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) List(ctx context.Context, userID string) (dto.TaskListResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return dto.TaskListResponse{}, ErrMissingIdentifiers
	}

	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return dto.TaskListResponse{}, err
	}

	return dto.NewTaskListResponse(tasks), nil
}

func (s *taskService) Get(ctx context.Context, taskID, userID string) (dto.TaskResponse, error) {
	task, err := s.loadOwned(ctx, taskID, userID)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Detail(ctx context.Context, taskID, userID string) (dto.TaskDetailResponse, error) {
	task, err := s.loadOwned(ctx, taskID, userID)
	if err != nil {
		return dto.TaskDetailResponse{}, err
	}

	var evaluation *models.Evaluation
	latest, err := s.evaluations.LatestByTask(ctx, task.ID)
	switch {
	case err == nil:
		evaluation = &latest
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.TaskDetailResponse{}, err
	}

	attempts, err := s.payments.ListByTask(ctx, task.ID)
	if err != nil {
		return dto.TaskDetailResponse{}, err
	}

	return dto.NewTaskDetailResponse(task, evaluation, attempts), nil
}

func (s *taskService) PaymentStatus(ctx context.Context, taskID, userID string) (dto.TaskPaymentStatusResponse, error) {
	task, err := s.loadOwned(ctx, taskID, userID)
	if err != nil {
		return dto.TaskPaymentStatusResponse{}, err
	}

	attempts, err := s.payments.ListByTask(ctx, task.ID)
	if err != nil {
		return dto.TaskPaymentStatusResponse{}, err
	}

	return dto.NewTaskPaymentStatus(task.ID, attempts), nil
}

func (s *taskService) loadOwned(ctx context.Context, taskID, userID string) (models.Task, error) {
	taskID = strings.TrimSpace(taskID)
	userID = strings.TrimSpace(userID)
	if taskID == "" || userID == "" {
		return models.Task{}, ErrMissingIdentifiers
	}

	return getOwnedTask(ctx, s.tasks, taskID, userID)
}

// getOwnedTask collapses "missing" and "owned by someone else" into ErrTaskNotFound.
func getOwnedTask(ctx context.Context, tasks repository.TaskRepository, taskID, userID string) (models.Task, error) {
	task, err := tasks.GetOwned(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	if !task.OwnedBy(userID) {
		return models.Task{}, ErrTaskNotFound
	}
	return task, nil
}

func isPlainText(content []byte) bool {
	for mime := mimetype.Detect(content); mime != nil; mime = mime.Parent() {
		if mime.Is("text/plain") {
			return true
		}
	}
	return false
}
