package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/dto"

	"github.com/labstack/echo/v4"
)

func respondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, dto.OK(data))
}

func respondCreated(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, dto.OK(data))
}

// ErrorHandler renders every error through the uniform envelope. Internal
// detail stays in the logs; the client sees a generic message and a 500.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if appErr, ok := apperr.As(err); ok {
			if appErr.Status >= http.StatusInternalServerError {
				logger.Error("request failed", "path", c.Path(), "error", err)
			}
			_ = c.JSON(appErr.Status, dto.Response{
				Success:   false,
				Error:     appErr.Message,
				ErrorCode: appErr.Code,
				Fields:    appErr.Fields,
			})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, _ := httpErr.Message.(string)
			if msg == "" {
				msg = http.StatusText(httpErr.Code)
			}
			code := apperr.CodeValidation
			switch httpErr.Code {
			case http.StatusUnauthorized:
				code = apperr.CodeUnauthorized
			case http.StatusForbidden:
				code = apperr.CodeForbidden
			case http.StatusNotFound:
				code = apperr.CodeNotFound
			}
			_ = c.JSON(httpErr.Code, dto.Response{
				Success:   false,
				Error:     msg,
				ErrorCode: code,
			})
			return
		}

		logger.Error("unhandled error", "path", c.Path(), "error", err)
		_ = c.JSON(http.StatusInternalServerError, dto.Response{
			Success:   false,
			Error:     "internal error",
			ErrorCode: apperr.CodeInternal,
		})
	}
}
