package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes surfaced in the response envelope.
const (
	CodeValidation         = "VALIDATION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL"
	CodeCartEmpty          = "CART_EMPTY"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeAlreadyPaid        = "ALREADY_PAID"
	CodeOrderNotPending    = "ORDER_NOT_PENDING"
	CodeCardTokenInvalid   = "CARD_TOKEN_INVALID"
	CodePaymentFailed      = "PAYMENT_FAILED"
	CodeSubscriptionExists = "SUBSCRIPTION_EXISTS"
	CodeDuplicateSlug      = "DUPLICATE_SLUG"
)

// Error is the service-layer error type the HTTP error handler knows how
// to render into the uniform response envelope.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// As extracts an *Error from any error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message, Fields: fields}
}

// Business is a rule violation a client can act on, e.g. CART_EMPTY.
func Business(code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

// Internal hides the cause from the client; the cause is for logs only.
func Internal(cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", cause: cause}
}

func Wrap(err *Error, cause error) *Error {
	out := *err
	out.cause = cause
	return &out
}
