package webserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughshop/internal/domain"
	"go.uber.org/zap"
)

// ErrorResponse the failure envelope
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes data in the success envelope
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

// Created writes data in the success envelope with status 201
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": data})
}

// Fail writes the failure envelope
func Fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

// HandleError maps service errors onto HTTP responses. Store failures are
// logged and reported without detail.
func HandleError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	var se *domain.StoreError
	switch {
	case errors.As(err, &ve):
		return Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error(),
			map[string]string{"field": ve.Field, "reason": ve.Reason})
	case errors.Is(err, domain.ErrNotFound):
		return Fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	case errors.Is(err, domain.ErrForbidden):
		return Fail(c, http.StatusForbidden, "FORBIDDEN", "Admin access required", nil)
	case errors.As(err, &se):
		zap.L().Error("store operation failed",
			zap.String("op", se.Op),
			zap.String("path", c.Path()),
			zap.Error(se.Err))
		return Fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Internal server error", nil)
	default:
		zap.L().Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// httpErrorHandler renders echo's own errors (unknown routes, bad methods,
// recovered panics) in the failure envelope
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := "HTTP_ERROR"
		switch he.Code {
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusBadRequest:
			code = "INVALID_REQUEST"
		case http.StatusUnauthorized:
			code = "UNAUTHORIZED"
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		_ = Fail(c, he.Code, code, msg, nil)
		return
	}
	_ = HandleError(c, err)
}
