package handler

import (
	"net/http"

	"storefront-backend/internal/dto"
	"storefront-backend/internal/middleware"
	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.checkoutService.Checkout(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return respondCreated(c, result)
}

func (h *CheckoutHandler) RegeneratePix(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.checkoutService.RegeneratePix(ctx, middleware.UserID(c), c.Param("orderID"))
	if err != nil {
		return err
	}

	return respondOK(c, result)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.checkoutService.GetOrder(ctx, middleware.UserID(c), c.Param("orderID"))
	if err != nil {
		return err
	}

	return respondOK(c, order)
}

func (h *CheckoutHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.checkoutService.ListOrders(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, orders)
}
