package handler

import (
	"storefront-backend/internal/middleware"
	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()

	subs, err := h.subscriptionService.ListMine(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, subs)
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	sub, err := h.subscriptionService.CancelMine(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, sub)
}

func (h *SubscriptionHandler) Pause(c echo.Context) error {
	ctx := c.Request().Context()

	sub, err := h.subscriptionService.PauseMine(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, sub)
}

func (h *SubscriptionHandler) Resume(c echo.Context) error {
	ctx := c.Request().Context()

	sub, err := h.subscriptionService.ResumeMine(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, sub)
}
