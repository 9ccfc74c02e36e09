package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/service"
)

func newCheckoutApp(svc service.CheckoutService, userID, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/checkout-sessions", authAs(userID, role))
	handler.NewCheckoutHandler(svc, zerolog.Nop()).Register(group)
	return app
}

func TestCheckoutHandler_ReturnsURL(t *testing.T) {
	svc := &stubCheckoutService{response: dto.CheckoutResponse{URL: "https://checkout.stripe.com/c/pay/cs_test_1"}}
	app := newCheckoutApp(svc, ownerID, "authenticated")

	resp, raw := doJSON(t, app, http.MethodPost, "/checkout-sessions", map[string]string{"task_id": taskID}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"url":"https://checkout.stripe.com/c/pay/cs_test_1"}`, string(raw))

	require.Len(t, svc.calls, 1)
	require.Equal(t, taskID, svc.calls[0].TaskID)
	require.Equal(t, ownerID, svc.calls[0].UserID, "user id defaults to the token subject")
}

func TestCheckoutHandler_ServiceRoleUsesBodyUser(t *testing.T) {
	svc := &stubCheckoutService{response: dto.CheckoutResponse{URL: "https://checkout.example/1"}}
	app := newCheckoutApp(svc, "", "service_role")

	resp, _ := doJSON(t, app, http.MethodPost, "/checkout-sessions", map[string]string{"task_id": taskID, "user_id": ownerID}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, ownerID, svc.calls[0].UserID)
}

func TestCheckoutHandler_RejectsMismatchedUser(t *testing.T) {
	svc := &stubCheckoutService{}
	app := newCheckoutApp(svc, ownerID, "authenticated")

	resp, raw := doJSON(t, app, http.MethodPost, "/checkout-sessions", map[string]string{"task_id": taskID, "user_id": strangerID}, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Task not found or access denied", errorMessage(t, raw))
	require.Empty(t, svc.calls)
}

func TestCheckoutHandler_InvalidBody(t *testing.T) {
	app := newCheckoutApp(&stubCheckoutService{}, ownerID, "authenticated")

	resp, raw := doJSON(t, app, http.MethodPost, "/checkout-sessions", "{not json", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, errorMessage(t, raw))
}

func TestCheckoutHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing ids", service.ErrMissingIdentifiers, fiber.StatusBadRequest, "Missing taskId or userId"},
		{"not configured", service.ErrPaymentNotConfigured, fiber.StatusInternalServerError, "Payment system not configured"},
		{"not found", service.ErrTaskNotFound, fiber.StatusNotFound, "Task not found or access denied"},
		{"already unlocked", service.ErrReportAlreadyUnlocked, fiber.StatusBadRequest, "Report already unlocked"},
		{"provider failure", service.ErrCheckoutSessionFailed, fiber.StatusInternalServerError, "Failed to create checkout session"},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newCheckoutApp(&stubCheckoutService{err: tc.err}, ownerID, "authenticated")
			resp, raw := doJSON(t, app, http.MethodPost, "/checkout-sessions", map[string]string{"task_id": taskID}, nil)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, errorMessage(t, raw))
		})
	}
}
