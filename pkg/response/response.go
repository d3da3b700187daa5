package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error kinds carried by AppError. These are stable identifiers exposed to API
// clients; the HTTP status code is a transport detail derived from them.
const (
	KindBadRequest       = "bad_request"
	KindUnauthorized     = "unauthorized"
	KindForbidden        = "forbidden"
	KindNotFound         = "not_found"
	KindConflict         = "conflict"
	KindInvalidState     = "invalid_state"
	KindCapacityExceeded = "capacity_exceeded"
	KindUnavailable      = "unavailable"
)

// Response is the unified API response format.
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError is a structured application error. Services return AppErrors for
// business-rule violations; anything else is treated as an infrastructure
// failure and surfaced as unavailable.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Kind       string // Stable error kind
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Kind: KindBadRequest, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Kind: KindForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Kind: KindConflict, Message: msg}
}

func NewInvalidState(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Kind: KindInvalidState, Message: msg}
}

func NewCapacityExceeded(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Kind: KindCapacityExceeded, Message: msg}
}

func NewUnavailable(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusServiceUnavailable, Kind: KindUnavailable, Message: msg}
}

// Kind returns the stable kind of err, or empty if err is not an AppError.
func Kind(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given error kind.
func IsKind(err error, kind string) bool {
	return Kind(err) == kind
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. If err is an *AppError, its kind and status
// are used; any other error is hidden behind a generic unavailable response so
// internal detail never leaks to callers.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.HTTPStatus,
			Kind:    appErr.Kind,
			Message: appErr.Message,
		})
		return
	}
	c.JSON(http.StatusServiceUnavailable, Response{
		Code:    http.StatusServiceUnavailable,
		Kind:    KindUnavailable,
		Message: "storage temporarily unavailable",
	})
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	Error(c, NewBadRequest(msg))
}

func Unauthorized(c *gin.Context, msg string) {
	Error(c, NewUnauthorized(msg))
}

func Forbidden(c *gin.Context, msg string) {
	Error(c, NewForbidden(msg))
}

func NotFound(c *gin.Context, msg string) {
	Error(c, NewNotFound(msg))
}
