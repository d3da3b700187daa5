package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAppError_Error(t *testing.T) {
	err := NewNotFound("study not found")
	if err.Error() != "study not found" {
		t.Errorf("Error() = %q, expected %q", err.Error(), "study not found")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		kind   string
	}{
		{"bad request", NewBadRequest("x"), http.StatusBadRequest, KindBadRequest},
		{"unauthorized", NewUnauthorized("x"), http.StatusUnauthorized, KindUnauthorized},
		{"forbidden", NewForbidden("x"), http.StatusForbidden, KindForbidden},
		{"not found", NewNotFound("x"), http.StatusNotFound, KindNotFound},
		{"conflict", NewConflict("x"), http.StatusConflict, KindConflict},
		{"invalid state", NewInvalidState("x"), http.StatusBadRequest, KindInvalidState},
		{"capacity exceeded", NewCapacityExceeded("x"), http.StatusBadRequest, KindCapacityExceeded},
		{"unavailable", NewUnavailable("x"), http.StatusServiceUnavailable, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, expected %d", tt.err.HTTPStatus, tt.status)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, expected %q", tt.err.Kind, tt.kind)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if got := Kind(NewConflict("dup")); got != KindConflict {
		t.Errorf("Kind() = %q, expected %q", got, KindConflict)
	}
	if got := Kind(errors.New("plain")); got != "" {
		t.Errorf("Kind() of plain error = %q, expected empty", got)
	}
	if got := Kind(nil); got != "" {
		t.Errorf("Kind(nil) = %q, expected empty", got)
	}
}

func TestKind_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewCapacityExceeded("study full"))
	if !IsKind(wrapped, KindCapacityExceeded) {
		t.Error("IsKind() should see through wrapped errors")
	}
}

func TestError_AppError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, NewCapacityExceeded("study has reached maximum participants"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Kind != KindCapacityExceeded {
		t.Errorf("kind = %q, expected %q", resp.Kind, KindCapacityExceeded)
	}
	if resp.Message != "study has reached maximum participants" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestError_PlainErrorIsMasked(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, errors.New("pq: connection refused at 10.0.0.3"))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, expected 503", w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Kind != KindUnavailable {
		t.Errorf("kind = %q, expected %q", resp.Kind, KindUnavailable)
	}
	if resp.Message == "pq: connection refused at 10.0.0.3" {
		t.Error("internal error detail must not leak to the client")
	}
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"total": 3})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Code != 0 || resp.Message != "ok" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}
