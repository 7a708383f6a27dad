package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrorResponse is the body of every error reply: {"error":"<msg>"}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode JSON response: %w", err)
	}
	return nil
}

// WriteError writes err's message as an ErrorResponse.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteErrorMessage writes message as an ErrorResponse.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	if err := WriteJSON(w, status, ErrorResponse{Error: message}); err != nil {
		slog.Error("failed to write error response", "error", err, "message", message)
	}
}

// HealthHandler always answers 200 OK.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w)
	}
}

// HealthHandlerWithCheck answers 503 with the error when check fails and
// 200 OK otherwise. check gets the request context bounded to two seconds.
func HealthHandlerWithCheck(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			WriteError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeOK(w)
	}
}

func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("failed to write health response", "error", err)
	}
}
