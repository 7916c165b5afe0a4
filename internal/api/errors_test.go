package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/goptimize/internal/optimize"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeInvalidScopes, "no valid decision scopes")

	if resp.Error != "Bad Request" {
		t.Errorf("Expected Error 'Bad Request', got '%s'", resp.Error)
	}
	if resp.Message != "no valid decision scopes" {
		t.Errorf("Expected Message 'no valid decision scopes', got '%s'", resp.Message)
	}
	if resp.Code != ErrCodeInvalidScopes {
		t.Errorf("Expected Code ErrCodeInvalidScopes, got '%s'", resp.Code)
	}
}

func TestErrorResponse_WithFields(t *testing.T) {
	fields := map[string]string{
		"decisionScopes": "at least one decision scope is required",
		"type":           "event type is required",
	}

	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeValidation, "Validation failed").
		WithFields(fields)

	if len(resp.Fields) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(resp.Fields))
	}
	if resp.Fields["type"] != "event type is required" {
		t.Errorf("Expected field 'type' error, got '%s'", resp.Fields["type"])
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter, r *http.Request)
		wantStatus int
		wantCode   ErrorCode
	}{
		{
			name:       "validation",
			write:      func(w http.ResponseWriter, r *http.Request) { ValidationError(w, r, "invalid", map[string]string{"a": "b"}) },
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "bad request",
			write:      func(w http.ResponseWriter, r *http.Request) { BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON") },
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidJSON,
		},
		{
			name:       "unauthorized",
			write:      func(w http.ResponseWriter, r *http.Request) { UnauthorizedError(w, r, "Missing authentication") },
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrCodeUnauthorized,
		},
		{
			name:       "forbidden",
			write:      func(w http.ResponseWriter, r *http.Request) { ForbiddenError(w, r, "Insufficient permissions") },
			wantStatus: http.StatusForbidden,
			wantCode:   ErrCodeForbidden,
		},
		{
			name:       "internal",
			write:      func(w http.ResponseWriter, r *http.Request) { InternalError(w, r, "boom") },
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
		{
			name:       "too large",
			write:      func(w http.ResponseWriter, r *http.Request) { RequestTooLargeError(w, r, "too big") },
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   ErrCodeRequestTooLarge,
		},
		{
			name:       "rate limited",
			write:      RateLimitedError,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   ErrCodeRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/propositions/get", nil)

			tt.write(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}
			if resp := decodeError(t, w); resp.Code != tt.wantCode {
				t.Errorf("Expected Code %s, got '%s'", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestExtensionError(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		err        error
		ctx        context.Context
		wantStatus int
		wantCode   ErrorCode
	}{
		{"no valid scopes", optimize.ErrNoValidScopes, context.Background(), http.StatusBadRequest, ErrCodeInvalidScopes},
		{"queue full", optimize.ErrQueueFull, context.Background(), http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"closed wrapped", fmt.Errorf("get: %w", optimize.ErrClosed), context.Background(), http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"context canceled", context.Canceled, canceled, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"canceled without request context", context.Canceled, context.Background(), http.StatusInternalServerError, ErrCodeInternal},
		{"other", errors.New("boom"), context.Background(), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/propositions/get", nil).WithContext(tt.ctx)

			ExtensionError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := decodeError(t, w); resp.Code != tt.wantCode {
				t.Errorf("Expected Code %s, got '%s'", tt.wantCode, resp.Code)
			}
		})
	}
}
