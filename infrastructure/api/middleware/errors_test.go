package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/infrastructure/api/jsonapi"
	"github.com/helixml/passage/internal/log"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(404, "resource not found", nil)

	if err.Code() != 404 {
		t.Errorf("Code() = %v, want 404", err.Code())
	}
	if err.Message() != "resource not found" {
		t.Errorf("Message() = %v, want 'resource not found'", err.Message())
	}

	expected := "api error 404: resource not found"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAPIError_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewAPIError(500, "internal error", cause)

	expected := "api error 500: internal error: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}

func TestAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("invalid token")

	expected := "authentication failed: invalid token"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}

	// Should be matchable with errors.Is
	if !errors.Is(err, ErrAuthentication) {
		t.Error("AuthenticationError should match ErrAuthentication with errors.Is")
	}
}

func TestServerError(t *testing.T) {
	err := NewServerError(503, "service unavailable")

	if err.StatusCode() != 503 {
		t.Errorf("StatusCode() = %v, want 503", err.StatusCode())
	}
	if err.Message() != "service unavailable" {
		t.Errorf("Message() = %v, want 'service unavailable'", err.Message())
	}

	expected := "server error 503: service unavailable"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}

	// Should be matchable with errors.Is
	if !errors.Is(err, ErrServer) {
		t.Error("ServerError should match ErrServer with errors.Is")
	}
}

func TestErrors_CanBeWrapped(t *testing.T) {
	authErr := NewAuthenticationError("token expired")
	wrapped := fmt.Errorf("request failed: %w", authErr)

	if !errors.Is(wrapped, ErrAuthentication) {
		t.Error("wrapped AuthenticationError should still match ErrAuthentication")
	}

	// Should be able to extract the typed error
	var target *AuthenticationError
	if !errors.As(wrapped, &target) {
		t.Error("should be able to extract AuthenticationError with errors.As")
	}
}

func TestStatusFor(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty query", fmt.Errorf("retrieve: %w", passage.ErrEmptyQuery), http.StatusBadRequest},
		{"bad json", syntaxErr, http.StatusBadRequest},
		{"invalid body", fmt.Errorf("%w: body is empty", ErrInvalidBody), http.StatusBadRequest},
		{"api error", NewAPIError(http.StatusBadRequest, "top_k out of range", nil), http.StatusBadRequest},
		{"dimension mismatch", passage.ErrDimensionMismatch, http.StatusConflict},
		{"embedder unavailable", fmt.Errorf("%w: timeout", passage.ErrEmbedderUnavailable), http.StatusServiceUnavailable},
		{"query embedding failed", passage.ErrQueryEmbeddingFailed, http.StatusServiceUnavailable},
		{"storage unavailable", passage.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"client closed", service.ErrClientClosed, http.StatusServiceUnavailable},
		{"no text provider", service.ErrNoTextProvider, http.StatusServiceUnavailable},
		{"server error", NewServerError(http.StatusServiceUnavailable, "not configured"), http.StatusServiceUnavailable},
		{"authentication", NewAuthenticationError("nope"), http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := StatusFor(tt.err)
			if got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"empty", "", "body is empty"},
		{"truncated", `{"data":`, "body is truncated"},
		{"malformed", `{"data" 1}`, "invalid character"},
		{"wrong type", `{"data":"x"}`, "cannot unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(tt.body))
			var v struct {
				Data map[string]any `json:"data"`
			}
			err := DecodeJSON(req, &v)
			if !errors.Is(err, ErrInvalidBody) {
				t.Fatalf("DecodeJSON() error = %v, want ErrInvalidBody", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("DecodeJSON() error = %q, want it to contain %q", err, tt.detail)
			}
			if status, title := StatusFor(err); status != http.StatusBadRequest || title != "Invalid Request Body" {
				t.Errorf("StatusFor() = %d %q, want 400 Invalid Request Body", status, title)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"data":{}}`))
	var v map[string]any
	if err := DecodeJSON(req, &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
}

func TestWriteError_UsesCorrelationID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
	req = req.WithContext(log.WithCorrelationID(req.Context(), "corr-1"))
	w := httptest.NewRecorder()

	WriteError(w, req, NewAPIError(http.StatusBadRequest, "top_k must be between 1 and 10", nil), nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var doc jsonapi.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(doc.Errors))
	}
	e := doc.Errors[0]
	if e.ID != "corr-1" || e.Status != "400" || e.Detail != "top_k must be between 1 and 10" {
		t.Errorf("unexpected error object %+v", e)
	}
}

func TestCorrelationID_PropagatesHeader(t *testing.T) {
	var seen string
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "abc" {
		t.Errorf("context correlation id = %q, want abc", seen)
	}
	if got := w.Header().Get(CorrelationIDHeader); got != "abc" {
		t.Errorf("response header = %q, want abc", got)
	}
}

func TestCorrelationID_GeneratesWhenMissing(t *testing.T) {
	handler := CorrelationID(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get(CorrelationIDHeader) == "" {
		t.Error("expected a generated correlation id")
	}
}
