package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestLogger returns a JSON slog.Logger writing into buf.
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLogging_CapturesStatusAndPath(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/includes/send-telegram", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}

	if entry["method"] != "POST" {
		t.Errorf("expected method POST, got %v", entry["method"])
	}
	if entry["path"] != "/includes/send-telegram" {
		t.Errorf("expected path, got %v", entry["path"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", entry["status"])
	}
	if entry["size"] != float64(len("short")) {
		t.Errorf("expected size 5, got %v", entry["size"])
	}
	if entry["client_ip"] != "192.0.2.7" {
		t.Errorf("expected client ip, got %v", entry["client_ip"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("expected WARN level for 4xx, got %v", entry["level"])
	}
}

func TestLogging_ErrorCodeFromHandlerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "verification_failed")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodPost, "/includes/send-telegram", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), "verification_failed") {
		t.Errorf("expected error_code in log output, got %s", buf.String())
	}
}

func TestLogging_ErrorLevelFor5xx(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("expected ERROR level for 5xx, got %v", entry["level"])
	}
}

func TestErrorCodeContext(t *testing.T) {
	ctx := context.Background()
	if GetErrorCode(ctx) != "" {
		t.Error("expected empty error code for fresh context")
	}

	ctx = SetErrorCode(ctx, "forbidden")
	if GetErrorCode(ctx) != "forbidden" {
		t.Errorf("expected 'forbidden', got %q", GetErrorCode(ctx))
	}
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if captured == "" {
		t.Fatal("expected generated request ID in context")
	}
	if w.Header().Get(RequestIDHeader) != captured {
		t.Errorf("expected response header %q to match context value %q", w.Header().Get(RequestIDHeader), captured)
	}
}

func TestRequestID_PreservesInbound(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "inbound-id" {
			t.Errorf("expected inbound request ID preserved, got %q", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "inbound-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodPost, "/includes/send-telegram", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not JSON: %v", err)
	}
	if body["success"] != false {
		t.Error("expected success=false in panic response")
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic detail must not reach the client")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Error("panic detail should be logged server-side")
	}
}
