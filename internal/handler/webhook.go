package handler

import (
	"io"
	"net/http"

	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	paymentService service.PaymentService
}

func NewWebhookHandler(paymentService service.PaymentService) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
	}
}

// PaymentWebhook always acknowledges with 200. The gateway retries on
// anything else, and our internal failures are logged, not its problem.
func (h *WebhookHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusOK)
	}

	h.paymentService.HandleWebhook(ctx, body)

	return c.NoContent(http.StatusOK)
}
