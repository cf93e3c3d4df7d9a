package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newSiteverifyStub returns a test server answering with the given body and
// a client pointed at it.
func newSiteverifyStub(t *testing.T, handler http.HandlerFunc, threshold float64) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient("test-secret", threshold, WithBaseURL(srv.URL))
	return srv, client
}

func TestVerify_Success(t *testing.T) {
	var gotSecret, gotResponse, gotRemoteIP string
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotSecret = r.PostFormValue("secret")
		gotResponse = r.PostFormValue("response")
		gotRemoteIP = r.PostFormValue("remoteip")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"score":0.9}`))
	}, 0.5)

	err := client.Verify(context.Background(), "token-value", "192.0.2.1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if gotSecret != "test-secret" {
		t.Errorf("expected secret forwarded, got %q", gotSecret)
	}
	if gotResponse != "token-value" {
		t.Errorf("expected token forwarded, got %q", gotResponse)
	}
	if gotRemoteIP != "192.0.2.1" {
		t.Errorf("expected remote ip forwarded, got %q", gotRemoteIP)
	}
}

func TestVerify_ScoreBelowThreshold(t *testing.T) {
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"score":0.3}`))
	}, 0.5)

	err := client.Verify(context.Background(), "token", "")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestVerify_ScoreAtThreshold(t *testing.T) {
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"score":0.5}`))
	}, 0.5)

	if err := client.Verify(context.Background(), "token", ""); err != nil {
		t.Fatalf("score equal to threshold should pass, got %v", err)
	}
}

func TestVerify_SuccessWithoutScore(t *testing.T) {
	// v2 keys return no score; the success flag alone decides.
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}, 0.5)

	if err := client.Verify(context.Background(), "token", ""); err != nil {
		t.Fatalf("expected success without score, got %v", err)
	}
}

func TestVerify_NotSuccessful(t *testing.T) {
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}, 0.5)

	err := client.Verify(context.Background(), "token", "")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestVerify_MalformedResponse(t *testing.T) {
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`this is not json`))
	}, 0.5)

	err := client.Verify(context.Background(), "token", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestVerify_ServiceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	client := NewClient("secret", 0.5, WithBaseURL(srv.URL))
	err := client.Verify(context.Background(), "token", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestVerify_Timeout(t *testing.T) {
	_, client := newSiteverifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}, 0.5)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.Verify(ctx, "token", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
}
