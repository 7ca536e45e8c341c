package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/authapi/internal/accounts"
	"github.com/example/authapi/internal/auth"
)

// APIError represents a structured API error response
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
	Details string `json:"details,omitempty"`
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorDetails(w, status, code, message, "")
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// writeMessage writes a {"message": ...} body
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeAPIError maps service and gate errors to their outward status. Anything
// unclassified is logged and reported as an internal error.
func (a *App) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// checked before username so a double conflict reports the email
	case errors.Is(err, accounts.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already registered")
	case errors.Is(err, accounts.ErrDuplicateUsername):
		writeError(w, http.StatusBadRequest, "DUPLICATE_USERNAME", "Username already in use")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	case errors.Is(err, accounts.ErrInactiveAccount), errors.Is(err, auth.ErrInactive):
		writeError(w, http.StatusForbidden, "INACTIVE_ACCOUNT", "Inactive account")
	case errors.Is(err, accounts.ErrInvalidCurrentPassword):
		writeError(w, http.StatusBadRequest, "INVALID_CURRENT_PASSWORD", "Current password is incorrect")
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeErrorDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", "password: max=72 bytes")
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Could not validate credentials")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient privileges")
	default:
		a.Log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
