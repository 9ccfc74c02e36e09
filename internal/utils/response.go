package utils

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendJSON writes data as the response body using the provided status code.
func SendJSON(c *fiber.Ctx, status int, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(data)
}

// SendOK writes data with a 200 status.
func SendOK(c *fiber.Ctx, data interface{}) error {
	return SendJSON(c, fiber.StatusOK, data)
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorResponse{Error: message})
}
