package dto

import "github.com/noah-isme/codegrade-api/internal/models"

// ReportsOverviewResponse lists the caller's reports with aggregate stats.
type ReportsOverviewResponse struct {
	Items []ReportItem  `json:"items"`
	Stats ReportSummary `json:"stats"`
}

// ReportItem pairs a task with its gated evaluation and payment state.
type ReportItem struct {
	Task       TaskResponse              `json:"task"`
	Evaluation *EvaluationReport         `json:"evaluation"`
	Payment    TaskPaymentStatusResponse `json:"payment"`
}

// ReportSummary captures aggregated statistics for the reports page.
type ReportSummary struct {
	Total        int     `json:"total"`
	Evaluated    int     `json:"evaluated"`
	Unlocked     int     `json:"unlocked"`
	AverageScore float64 `json:"average_score"`
}

// NewReportsOverview builds the overview from tasks, their latest evaluations and payment histories.
func NewReportsOverview(tasks []models.Task, evaluations map[string]models.Evaluation, payments map[string]models.PaymentAttempts) ReportsOverviewResponse {
	items := make([]ReportItem, 0, len(tasks))
	summary := ReportSummary{Total: len(tasks)}
	scoreSum := 0

	for _, task := range tasks {
		detail := NewTaskDetailResponse(task, lookupEvaluation(evaluations, task.ID), payments[task.ID])
		items = append(items, ReportItem{
			Task:       detail.Task,
			Evaluation: detail.Evaluation,
			Payment:    detail.Payment,
		})

		if detail.Evaluation != nil {
			summary.Evaluated++
			scoreSum += detail.Evaluation.ScoreOverall
		}
		if detail.Payment.Unlocked {
			summary.Unlocked++
		}
	}

	if summary.Evaluated > 0 {
		summary.AverageScore = float64(scoreSum) / float64(summary.Evaluated)
	}

	return ReportsOverviewResponse{Items: items, Stats: summary}
}

func lookupEvaluation(evaluations map[string]models.Evaluation, taskID string) *models.Evaluation {
	evaluation, ok := evaluations[taskID]
	if !ok {
		return nil
	}
	return &evaluation
}
