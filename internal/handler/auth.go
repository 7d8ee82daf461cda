package handler

import (
	"net/http"

	"storefront-backend/internal/dto"
	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.authService.Login(ctx, &req)
	if err != nil {
		return err
	}

	return respondOK(c, result)
}

func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.authService.RequestPasswordReset(ctx, req.Email); err != nil {
		return err
	}

	// Same response whether or not the email is registered.
	return respondOK(c, map[string]string{"status": "if the email exists, a reset token was sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.authService.ConfirmPasswordReset(ctx, &req); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "password updated"})
}
