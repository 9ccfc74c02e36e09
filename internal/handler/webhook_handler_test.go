package handler_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/pkg/payment"
)

const webhookSecret = "whsec_handler_test"

func newWebhookApp(svc service.WebhookService) *fiber.App {
	app := fiber.New()
	handler.NewWebhookHandler(svc, zerolog.Nop()).Register(app.Group("/webhooks"))
	return app
}

func signPayload(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", timestamp, payload)))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func completedEvent(t *testing.T, sessionID string, metadata map[string]string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + sessionID,
		"object":      "event",
		"type":        "checkout.session.completed",
		"api_version": "2023-10-16",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":           sessionID,
				"object":       "checkout.session",
				"amount_total": 499,
				"currency":     "usd",
				"metadata":     metadata,
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func TestWebhookHandler_PassesRawBodyAndSignature(t *testing.T) {
	svc := &stubWebhookService{}
	app := newWebhookApp(svc)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	resp, raw := doJSON(t, app, http.MethodPost, "/webhooks/stripe", body, map[string]string{handler.SignatureHeader: "t=1,v1=abc"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"received":true}`, string(raw))

	require.Len(t, svc.payloads, 1)
	require.Equal(t, body, svc.payloads[0])
	require.Equal(t, "t=1,v1=abc", svc.signatures[0])
}

func TestWebhookHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not configured", service.ErrWebhookNotConfigured, fiber.StatusInternalServerError, "Webhook not configured"},
		{"missing signature", service.ErrMissingSignature, fiber.StatusBadRequest, "Missing stripe-signature header"},
		{"invalid signature", service.ErrInvalidSignature, fiber.StatusBadRequest, "Invalid signature"},
		{"irrecoverable", service.ErrPaymentRecordNotFound, fiber.StatusNotFound, "Payment record not found"},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newWebhookApp(&stubWebhookService{err: tc.err})
			resp, raw := doJSON(t, app, http.MethodPost, "/webhooks/stripe", []byte(`{}`), nil)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, errorMessage(t, raw))
		})
	}
}

func TestWebhookHandler_SettlesPaymentEndToEnd(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:webhook_handler_e2e?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Task{}, &models.Evaluation{}, &models.Payment{}))

	payments := repository.NewPaymentRepository(db)
	pending := models.Payment{
		UserID:            ownerID,
		TaskID:            taskID,
		Provider:          models.PaymentProviderStripe,
		ProviderSessionID: "cs_test_e2e",
		Amount:            499,
		Currency:          "usd",
		Status:            models.PaymentStatusPending,
	}
	require.NoError(t, payments.Create(context.Background(), &pending))

	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     "sk_test_handler",
		WebhookSecret: webhookSecret,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	svc := service.NewWebhookService(payments, gateway, nil, nil, service.WebhookConfig{DefaultAmount: 499, DefaultCurrency: "usd"}, zerolog.Nop())
	app := newWebhookApp(svc)

	body := completedEvent(t, "cs_test_e2e", map[string]string{"task_id": taskID, "user_id": ownerID})

	resp, raw := doJSON(t, app, http.MethodPost, "/webhooks/stripe", body, map[string]string{handler.SignatureHeader: signPayload(body, "whsec_wrong")})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid signature", errorMessage(t, raw))

	resp, raw = doJSON(t, app, http.MethodPost, "/webhooks/stripe", body, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing stripe-signature header", errorMessage(t, raw))

	stored, err := payments.FindBySessionID(context.Background(), "cs_test_e2e")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, stored.Status)

	resp, raw = doJSON(t, app, http.MethodPost, "/webhooks/stripe", body, map[string]string{handler.SignatureHeader: signPayload(body, webhookSecret)})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"received":true}`, string(raw))

	stored, err = payments.FindBySessionID(context.Background(), "cs_test_e2e")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, stored.Status)
}
