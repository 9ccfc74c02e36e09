package dto

import (
	"time"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// EvaluationRequest triggers the AI evaluation of a task.
type EvaluationRequest struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// EvaluationResponse is returned once an evaluation has been stored.
type EvaluationResponse struct {
	ID           string `json:"id"`
	ScoreOverall int    `json:"score_overall"`
	Strengths    string `json:"strengths"`
	Improvements string `json:"improvements"`
}

// EvaluationReport is the read-side view of an evaluation. Text fields are blank when Redacted is set.
type EvaluationReport struct {
	ID               string       `json:"id"`
	TaskID           string       `json:"task_id"`
	Model            string       `json:"model"`
	ScoreOverall     int          `json:"score_overall"`
	Score            ScoreDisplay `json:"score"`
	Strengths        string       `json:"strengths,omitempty"`
	Improvements     string       `json:"improvements,omitempty"`
	DetailedFeedback string       `json:"detailed_feedback,omitempty"`
	Redacted         bool         `json:"redacted"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NewEvaluationResponse builds the trigger response from the stored evaluation.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:           evaluation.ID,
		ScoreOverall: evaluation.ScoreOverall,
		Strengths:    evaluation.Strengths,
		Improvements: evaluation.Improvements,
	}
}

// NewEvaluationReport returns the full report when unlocked and the redacted report otherwise.
func NewEvaluationReport(evaluation models.Evaluation, unlocked bool) EvaluationReport {
	score := evaluation.ScoreOverall
	report := EvaluationReport{
		ID:           evaluation.ID,
		TaskID:       evaluation.TaskID,
		Model:        evaluation.Model,
		ScoreOverall: score,
		Score:        NewScoreDisplay(&score),
		Redacted:     !unlocked,
		CreatedAt:    evaluation.CreatedAt,
	}
	if unlocked {
		report.Strengths = evaluation.Strengths
		report.Improvements = evaluation.Improvements
		report.DetailedFeedback = evaluation.DetailedFeedback
	}

	return report
}
