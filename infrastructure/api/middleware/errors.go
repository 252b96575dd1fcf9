package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/infrastructure/api/jsonapi"
)

var (
	// ErrAuthentication is matched by every AuthenticationError.
	ErrAuthentication = errors.New("authentication failed")
	// ErrServer is matched by every ServerError.
	ErrServer = errors.New("server error")
	// ErrInvalidBody marks a request body that could not be decoded.
	ErrInvalidBody = errors.New("invalid request body")
)

// DecodeJSON decodes the request body into v. Empty, truncated and
// malformed bodies all yield ErrInvalidBody.
func DecodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: body is empty", ErrInvalidBody)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: body is truncated", ErrInvalidBody)
	}
	return fmt.Errorf("%w: %w", ErrInvalidBody, err)
}

// APIError is a client error with an explicit status code.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError indicates a missing or invalid API key.
type AuthenticationError struct {
	reason string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{reason: reason}
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.reason
}

// Is reports whether target is ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// ServerError indicates the server cannot satisfy the request.
type ServerError struct {
	statusCode int
	message    string
}

// NewServerError creates a ServerError.
func NewServerError(statusCode int, message string) *ServerError {
	return &ServerError{statusCode: statusCode, message: message}
}

// StatusCode returns the HTTP status code.
func (e *ServerError) StatusCode() int { return e.statusCode }

// Message returns the client-facing message.
func (e *ServerError) Message() string { return e.message }

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.statusCode, e.message)
}

// Is reports whether target is ErrServer.
func (e *ServerError) Is(target error) bool { return target == ErrServer }

// StatusFor maps an error to its HTTP status code and title.
func StatusFor(err error) (int, string) {
	var apiErr *APIError
	var serverErr *ServerError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), "API Error"
	case errors.As(err, &serverErr):
		return serverErr.StatusCode(), "Server Error"
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrInvalidBody), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return http.StatusBadRequest, "Invalid Request Body"
	case errors.Is(err, passage.ErrEmptyQuery):
		return http.StatusBadRequest, "Validation Error"
	case errors.Is(err, passage.ErrDimensionMismatch):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, passage.ErrEmbedderUnavailable),
		errors.Is(err, passage.ErrQueryEmbeddingFailed),
		errors.Is(err, passage.ErrStorageUnavailable),
		errors.Is(err, service.ErrClientClosed),
		errors.Is(err, service.ErrNoTextProvider):
		return http.StatusServiceUnavailable, "Service Unavailable"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// WriteError writes a JSON:API formatted error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, title := StatusFor(err)

	detail := err.Error()
	var apiErr *APIError
	var serverErr *ServerError
	switch {
	case errors.As(err, &apiErr):
		detail = apiErr.Message()
	case errors.As(err, &serverErr):
		detail = serverErr.Message()
	}

	correlationID := GetCorrelationID(r.Context())

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request error",
			"correlation_id", correlationID,
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	e := jsonapi.NewError(strconv.Itoa(status), title, detail)
	e.ID = correlationID

	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonapi.NewErrorResponse(e))
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
