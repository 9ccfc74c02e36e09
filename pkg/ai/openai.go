package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codegrade",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codegrade",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI-compatible evaluator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against any OpenAI-compatible chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}

	tracer := otel.Tracer("github.com/noah-isme/codegrade-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIEvaluator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Model returns the model identifier recorded on stored evaluations.
func (e *OpenAIEvaluator) Model() string {
	return e.cfg.Model
}

// Evaluate sends a single evaluation request and validates the response shape. It does not retry.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, input EvaluationInput) (EvaluationResult, error) {
	ctx, span := e.tracer.Start(parent, "ai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: evaluatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		e.fail(span, err)
		return EvaluationResult{}, fmt.Errorf("ai evaluate: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		err := fmt.Errorf("%w: no content returned", ErrEmptyResponse)
		e.fail(span, err)
		return EvaluationResult{}, err
	}

	content := resp.Choices[0].Message.Content
	result, err := parseEvaluationResponse(content)
	if err != nil {
		e.logger.Warn().Str("content", content).Msg("failed to parse ai response")
		e.fail(span, err)
		return EvaluationResult{}, err
	}

	result.Model = e.cfg.Model
	result.Raw = rawResponse(resp)

	return result, nil
}

func (e *OpenAIEvaluator) fail(span trace.Span, err error) {
	aiFailures.WithLabelValues(e.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func evaluatorSystemPrompt() string {
	return "You are an expert code reviewer and technical interviewer evaluating coding assignments. " +
		"Respond with ONLY a JSON object of the form " +
		`{"score_overall": <number 0-100>, "strengths": "<markdown>", "improvements": "<markdown>", "detailed_feedback": "<markdown>"}. ` +
		"Scoring: 90-100 exceptional, 70-89 good, 50-69 fair, 0-49 needs work. Be specific and actionable."
}

func buildUserPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Task\n")
	builder.WriteString(input.Title)
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(input.Description)
	if input.CodeSubmission != "" {
		builder.WriteString("\n\n## Code\n```\n")
		builder.WriteString(input.CodeSubmission)
		builder.WriteString("\n```")
	}
	if input.CodeURL != "" {
		builder.WriteString("\n\n## Code Repository\n")
		builder.WriteString(input.CodeURL)
	}
	if input.RepoURL != "" && input.RepoURL != input.CodeURL {
		builder.WriteString("\n\n## Repository\n")
		builder.WriteString(input.RepoURL)
	}
	builder.WriteString("\n\nProvide your evaluation as JSON only.")
	return builder.String()
}

func parseEvaluationResponse(content string) (EvaluationResult, error) {
	type payload struct {
		ScoreOverall     *float64 `json:"score_overall"`
		Strengths        *string  `json:"strengths"`
		Improvements     *string  `json:"improvements"`
		DetailedFeedback string   `json:"detailed_feedback"`
	}

	var data payload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &data); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if data.ScoreOverall == nil || *data.ScoreOverall < 0 || *data.ScoreOverall > 100 {
		return EvaluationResult{}, fmt.Errorf("%w: score_overall must be a number between 0 and 100", ErrInvalidResponse)
	}
	if data.Strengths == nil || data.Improvements == nil {
		return EvaluationResult{}, fmt.Errorf("%w: strengths and improvements are required", ErrInvalidResponse)
	}

	return EvaluationResult{
		ScoreOverall:     *data.ScoreOverall,
		Strengths:        *data.Strengths,
		Improvements:     *data.Improvements,
		DetailedFeedback: data.DetailedFeedback,
	}, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence some models add despite instructions.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = trimmed[len("```json"):]
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[len("```"):]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func rawResponse(resp openai.ChatCompletionResponse) map[string]interface{} {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return map[string]interface{}{"usage": resp.Usage}
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return map[string]interface{}{"usage": resp.Usage}
	}
	return raw
}
