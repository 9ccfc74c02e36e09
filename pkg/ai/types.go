package ai

import (
	"context"
	"errors"
)

// ErrInvalidResponse indicates the model answered with something other than the expected evaluation JSON.
var ErrInvalidResponse = errors.New("invalid evaluation response")

// ErrEmptyResponse indicates the model returned no choices or blank content.
var ErrEmptyResponse = errors.New("empty evaluation response")

// EvaluationInput contains the artefacts needed to grade a submitted task.
type EvaluationInput struct {
	Title          string
	Description    string
	CodeSubmission string
	CodeURL        string
	RepoURL        string
}

// EvaluationResult is the structured feedback returned by the AI evaluator.
type EvaluationResult struct {
	Model            string                 `json:"model"`
	ScoreOverall     float64                `json:"score_overall"`
	Strengths        string                 `json:"strengths"`
	Improvements     string                 `json:"improvements"`
	DetailedFeedback string                 `json:"detailed_feedback,omitempty"`
	Raw              map[string]interface{} `json:"raw,omitempty"`
}

// Evaluator describes an AI model capable of grading coding tasks.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error)
}
