package handler

import (
	"net/http"
	"strconv"

	"storefront-backend/internal/dto"
	"storefront-backend/internal/middleware"
	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// Get returns the cart with fully recomputed prices; nothing priced is
// stored on the cart itself.
func (h *CartHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	prices, err := h.cartService.ComputeCartPrices(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, prices)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.cartService.AddItem(ctx, middleware.UserID(c), &req); err != nil {
		return err
	}

	prices, err := h.cartService.ComputeCartPrices(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, prices)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req dto.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.cartService.UpdateItem(ctx, middleware.UserID(c), uint(itemID), req.Quantity); err != nil {
		return err
	}

	prices, err := h.cartService.ComputeCartPrices(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, prices)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	if err := h.cartService.RemoveItem(ctx, middleware.UserID(c), uint(itemID)); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "removed"})
}

func (h *CartHandler) Clear(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.cartService.Clear(ctx, middleware.UserID(c)); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "cleared"})
}
