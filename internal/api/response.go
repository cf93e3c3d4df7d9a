// Package api provides the HTTP handlers for the contact relay endpoint and
// its operational surface.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/formgate/internal/middleware"
)

// Machine error codes recorded in the request context for the logging
// middleware. The client only ever sees the human-readable message.
const (
	ErrCodeBadRequest              = "bad_request"
	ErrCodeMissingToken            = "missing_token"
	ErrCodeVerificationFailed      = "verification_failed"
	ErrCodeVerificationUnavailable = "verification_unavailable"
	ErrCodeDeliveryFailed          = "delivery_failed"
	ErrCodeMethodNotAllowed        = "method_not_allowed"
	ErrCodeNotFound                = "not_found"
	ErrCodeInternal                = "internal_error"
)

// Response is the endpoint's universal JSON body: every outcome, success or
// failure, renders as a success flag plus a human-readable message.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteSuccess writes a 200 response with the standard body.
func WriteSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// WriteError writes an error response with the standard body and records
// the machine error code in the context for the logging middleware.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	middleware.UpdateResponseContext(w, middleware.SetErrorCode(ctx, code))
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	data, err := json.Marshal(body)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.Error("failed to marshal response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
