package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/pkg/ai"
	"github.com/noah-isme/codegrade-api/pkg/payment"
)

const (
	testWebhookSecret = "whsec_service_test"
	ownerID           = "2d0c1a4e-7f3b-4b8e-9c1d-5a6b7c8d9e0f"
	strangerID        = "9f8e7d6c-5b4a-4321-8765-0fedcba98765"
)

type testStores struct {
	db          *gorm.DB
	tasks       repository.TaskRepository
	evaluations repository.EvaluationRepository
	payments    repository.PaymentRepository
}

func setupStores(t *testing.T) testStores {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Task{}, &models.Evaluation{}, &models.Payment{}))

	return testStores{
		db:          db,
		tasks:       repository.NewTaskRepository(db),
		evaluations: repository.NewEvaluationRepository(db),
		payments:    repository.NewPaymentRepository(db),
	}
}

func seedTask(t *testing.T, stores testStores, userID string) models.Task {
	t.Helper()
	task := models.Task{
		UserID:         userID,
		Title:          "Binary search",
		Description:    "Implement binary search over a sorted slice.",
		CodeSubmission: "func search(xs []int, x int) int { return -1 }",
		Status:         models.TaskStatusPending,
	}
	require.NoError(t, stores.tasks.Create(context.Background(), &task))
	return task
}

func seedPayment(t *testing.T, stores testStores, task models.Task, sessionID, status string) models.Payment {
	t.Helper()
	row := models.Payment{
		UserID:            task.UserID,
		TaskID:            task.ID,
		Provider:          models.PaymentProviderStripe,
		ProviderSessionID: sessionID,
		Amount:            499,
		Currency:          "usd",
		Status:            status,
	}
	require.NoError(t, stores.payments.Create(context.Background(), &row))
	return row
}

func reloadPayment(t *testing.T, stores testStores, id string) models.Payment {
	t.Helper()
	var row models.Payment
	require.NoError(t, stores.db.First(&row, "id = ?", id).Error)
	return row
}

func countPayments(t *testing.T, stores testStores) int64 {
	t.Helper()
	var count int64
	require.NoError(t, stores.db.Model(&models.Payment{}).Count(&count).Error)
	return count
}

func newTestGateway(t *testing.T) *payment.StripeGateway {
	t.Helper()
	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     "sk_test_service",
		WebhookSecret: testWebhookSecret,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return gateway
}

type sessionFixture struct {
	ID                string
	AmountTotal       int64
	Currency          string
	ClientReferenceID string
	Metadata          map[string]string
}

func checkoutEvent(t *testing.T, eventType string, session sessionFixture) []byte {
	t.Helper()
	object := map[string]interface{}{
		"id":     session.ID,
		"object": "checkout.session",
	}
	if session.AmountTotal > 0 {
		object["amount_total"] = session.AmountTotal
	}
	if session.Currency != "" {
		object["currency"] = session.Currency
	}
	if session.ClientReferenceID != "" {
		object["client_reference_id"] = session.ClientReferenceID
	}
	if session.Metadata != nil {
		object["metadata"] = session.Metadata
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + session.ID,
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func sign(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", timestamp, payload)))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

type stubGateway struct {
	session  payment.CheckoutSession
	err      error
	requests []payment.CheckoutRequest
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return payment.CheckoutSession{}, s.err
	}
	return s.session, nil
}

type stubEvaluator struct {
	result ai.EvaluationResult
	err    error
	inputs []ai.EvaluationInput
}

func (s *stubEvaluator) Evaluate(ctx context.Context, input ai.EvaluationInput) (ai.EvaluationResult, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return ai.EvaluationResult{}, s.err
	}
	return s.result, nil
}

type recordingPublisher struct {
	events []dto.PaymentStatusEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, event dto.PaymentStatusEvent) {
	r.events = append(r.events, event)
}

type recordingInvalidator struct {
	users []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID string) {
	r.users = append(r.users, userID)
}

// failingPayments wraps a repository and fails selected writes.
type failingPayments struct {
	repository.PaymentRepository
	failCreate bool
	failSettle bool
	failUpdate bool
}

func (f *failingPayments) Create(ctx context.Context, row *models.Payment) error {
	if f.failCreate {
		return fmt.Errorf("insert rejected")
	}
	return f.PaymentRepository.Create(ctx, row)
}

func (f *failingPayments) Settle(ctx context.Context, id string, settlement repository.PaymentSettlement) error {
	if f.failSettle {
		return fmt.Errorf("update rejected")
	}
	return f.PaymentRepository.Settle(ctx, id, settlement)
}

func (f *failingPayments) UpdateStatusBySession(ctx context.Context, sessionID, status string) (int64, error) {
	if f.failUpdate {
		return 0, fmt.Errorf("update rejected")
	}
	return f.PaymentRepository.UpdateStatusBySession(ctx, sessionID, status)
}
