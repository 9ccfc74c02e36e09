package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codegrade-api/internal/dto"
)

const (
	ownerID    = "2d0c1a4e-7f3b-4b8e-9c1d-5a6b7c8d9e0f"
	strangerID = "9f8e7d6c-5b4a-4321-8765-0fedcba98765"
	taskID     = "5c2f8a1e-0d3b-4e6f-9a7c-1b2d3e4f5a6b"
)

// authAs stands in for the JWT middleware with fixed claims.
func authAs(userID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(v)
	case string:
		reader = bytes.NewBufferString(v)
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload.Error
}

type stubCheckoutService struct {
	response dto.CheckoutResponse
	err      error
	calls    []dto.CheckoutRequest
}

func (s *stubCheckoutService) CreateSession(_ context.Context, payload dto.CheckoutRequest) (dto.CheckoutResponse, error) {
	s.calls = append(s.calls, payload)
	if s.err != nil {
		return dto.CheckoutResponse{}, s.err
	}
	return s.response, nil
}

type stubEvaluationService struct {
	response dto.EvaluationResponse
	err      error
	calls    []dto.EvaluationRequest
}

func (s *stubEvaluationService) Evaluate(_ context.Context, payload dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	s.calls = append(s.calls, payload)
	if s.err != nil {
		return dto.EvaluationResponse{}, s.err
	}
	return s.response, nil
}

type stubWebhookService struct {
	err        error
	payloads   [][]byte
	signatures []string
}

func (s *stubWebhookService) Handle(_ context.Context, payload []byte, signature string) (dto.WebhookAck, error) {
	s.payloads = append(s.payloads, payload)
	s.signatures = append(s.signatures, signature)
	if s.err != nil {
		return dto.WebhookAck{}, s.err
	}
	return dto.WebhookAck{Received: true}, nil
}

type stubTaskService struct {
	created  dto.TaskResponse
	list     dto.TaskListResponse
	detail   dto.TaskDetailResponse
	payment  dto.TaskPaymentStatusResponse
	err      error
	lastUser string
	lastTask string
}

func (s *stubTaskService) Create(_ context.Context, userID string, _ dto.TaskCreateRequest) (dto.TaskResponse, error) {
	s.lastUser = userID
	return s.created, s.err
}

func (s *stubTaskService) List(_ context.Context, userID string) (dto.TaskListResponse, error) {
	s.lastUser = userID
	return s.list, s.err
}

func (s *stubTaskService) Get(_ context.Context, id, userID string) (dto.TaskResponse, error) {
	s.lastUser, s.lastTask = userID, id
	return s.created, s.err
}

func (s *stubTaskService) Detail(_ context.Context, id, userID string) (dto.TaskDetailResponse, error) {
	s.lastUser, s.lastTask = userID, id
	return s.detail, s.err
}

func (s *stubTaskService) PaymentStatus(_ context.Context, id, userID string) (dto.TaskPaymentStatusResponse, error) {
	s.lastUser, s.lastTask = userID, id
	return s.payment, s.err
}

type stubReportService struct {
	response dto.ReportsOverviewResponse
	err      error
	lastUser string
}

func (s *stubReportService) Overview(_ context.Context, userID string) (dto.ReportsOverviewResponse, error) {
	s.lastUser = userID
	return s.response, s.err
}

func (s *stubReportService) Invalidate(context.Context, string) {}
