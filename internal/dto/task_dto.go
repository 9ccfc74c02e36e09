package dto

import (
	"time"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// TaskCreateRequest is the payload for submitting a coding task.
type TaskCreateRequest struct {
	Title          string `json:"title" validate:"required,min=1,max=200"`
	Description    string `json:"description" validate:"required"`
	CodeSubmission string `json:"code_submission" validate:"omitempty,max=200000"`
	CodeURL        string `json:"code_url" validate:"omitempty,url"`
	RepoURL        string `json:"repo_url" validate:"omitempty,url"`
}

// TaskResponse represents a task returned by the API.
type TaskResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CodeSubmission string    `json:"code_submission,omitempty"`
	CodeURL        string    `json:"code_url,omitempty"`
	RepoURL        string    `json:"repo_url,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskListResponse wraps the caller's tasks.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
}

// TaskDetailResponse combines a task with its gated report and payment state.
type TaskDetailResponse struct {
	Task       TaskResponse              `json:"task"`
	Evaluation *EvaluationReport         `json:"evaluation"`
	Payment    TaskPaymentStatusResponse `json:"payment"`
}

// NewTaskResponse builds a response DTO from the model.
func NewTaskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:             task.ID,
		UserID:         task.UserID,
		Title:          task.Title,
		Description:    task.Description,
		CodeSubmission: task.CodeSubmission,
		CodeURL:        task.CodeURL,
		RepoURL:        task.RepoURL,
		Status:         task.Status,
		CreatedAt:      task.CreatedAt,
	}
}

// NewTaskListResponse builds a list response from models.
func NewTaskListResponse(tasks []models.Task) TaskListResponse {
	items := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, NewTaskResponse(task))
	}

	return TaskListResponse{Items: items}
}

// NewTaskDetailResponse assembles the detail view, redacting the evaluation unless the task is unlocked.
func NewTaskDetailResponse(task models.Task, evaluation *models.Evaluation, attempts models.PaymentAttempts) TaskDetailResponse {
	payment := NewTaskPaymentStatus(task.ID, attempts)

	var report *EvaluationReport
	if evaluation != nil {
		built := NewEvaluationReport(*evaluation, payment.Unlocked)
		report = &built
	}

	return TaskDetailResponse{
		Task:       NewTaskResponse(task),
		Evaluation: report,
		Payment:    payment,
	}
}
