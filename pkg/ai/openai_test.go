package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEvaluationResponseStripsCodeFence(t *testing.T) {
	content := "```json\n{\"score_overall\": 87, \"strengths\": \"tidy\", \"improvements\": \"tests\"}\n```"

	result, err := parseEvaluationResponse(content)
	require.NoError(t, err)
	require.InDelta(t, 87, result.ScoreOverall, 0.001)
	require.Equal(t, "tidy", result.Strengths)
	require.Equal(t, "tests", result.Improvements)
}

func TestParseEvaluationResponseRejectsInvalidShapes(t *testing.T) {
	cases := map[string]string{
		"not json":          "the code looks fine",
		"score too high":    `{"score_overall": 120, "strengths": "a", "improvements": "b"}`,
		"negative score":    `{"score_overall": -1, "strengths": "a", "improvements": "b"}`,
		"score as string":   `{"score_overall": "90", "strengths": "a", "improvements": "b"}`,
		"missing strengths": `{"score_overall": 90, "improvements": "b"}`,
		"missing score":     `{"strengths": "a", "improvements": "b"}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseEvaluationResponse(content)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidResponse))
		})
	}
}

func TestBuildUserPromptIncludesOptionalSections(t *testing.T) {
	prompt := buildUserPrompt(EvaluationInput{
		Title:          "Rate limiter",
		Description:    "Token bucket",
		CodeSubmission: "func Allow() bool",
		CodeURL:        "https://github.com/acme/limiter",
	})

	require.Contains(t, prompt, "Rate limiter")
	require.Contains(t, prompt, "func Allow() bool")
	require.Contains(t, prompt, "https://github.com/acme/limiter")
	require.NotContains(t, prompt, "## Repository\n")
}

func TestOpenAIEvaluatorEvaluate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gemini-2.0-flash",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": `{"score_overall": 72, "strengths": "clear naming", "improvements": "add tests"}`,
					},
				},
			},
			"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	defer server.Close()

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := evaluator.Evaluate(context.Background(), EvaluationInput{Title: "T", Description: "D"})
	require.NoError(t, err)
	require.Equal(t, "gemini-2.0-flash", result.Model)
	require.InDelta(t, 72, result.ScoreOverall, 0.001)
	require.Equal(t, "add tests", result.Improvements)
	require.Equal(t, "chatcmpl-1", result.Raw["id"])
}

func TestOpenAIEvaluatorSurfacesProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream down", "type": "server_error"}}`))
	}))
	defer server.Close()

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), EvaluationInput{Title: "T", Description: "D"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidResponse))
}

func TestOpenAIEvaluatorReportsEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gemini-2.0-flash","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), EvaluationInput{Title: "T", Description: "D"})
	require.ErrorIs(t, err, ErrEmptyResponse)
	require.False(t, errors.Is(err, ErrInvalidResponse))
}

func TestNewOpenAIEvaluatorRequiresKey(t *testing.T) {
	_, err := NewOpenAIEvaluator(OpenAIConfig{})
	require.Error(t, err)
}
