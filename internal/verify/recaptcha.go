// Package verify implements the bot-score verification step of the relay
// pipeline by calling the reCAPTCHA siteverify API.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURL is the production siteverify endpoint.
const DefaultURL = "https://www.google.com/recaptcha/api/siteverify"

// defaultTimeout bounds how long a client request is held open waiting on
// the verification service.
const defaultTimeout = 5 * time.Second

// Verification outcome errors. ErrVerificationFailed means the service
// answered and judged the submission non-human; ErrUnavailable means the
// service could not be reached or answered with garbage.
var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrUnavailable        = errors.New("verification service unavailable")
)

// siteverifyResponse mirrors the siteverify JSON body. Score is a pointer
// because v2 keys return no score at all.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Client verifies submission tokens against the siteverify API.
type Client struct {
	secret    string
	threshold float64
	baseURL   string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the siteverify endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a verification client. threshold is the minimum
// acceptable score in [0,1]; responses without a score are judged on the
// success flag alone.
func NewClient(secret string, threshold float64, opts ...Option) *Client {
	c := &Client{
		secret:    secret,
		threshold: threshold,
		baseURL:   DefaultURL,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify checks the client token with the verification service.
// remoteIP is forwarded so the service can factor in the caller's address.
//
// Returns nil when the submission is judged human (success true and score,
// if present, at or above the threshold). Any transport failure or
// malformed response returns ErrUnavailable; a negative judgement returns
// ErrVerificationFailed. The pipeline must never treat either as a pass.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{
		"secret":   {c.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	if !result.Success || (result.Score != nil && *result.Score < c.threshold) {
		score := "n/a"
		if result.Score != nil {
			score = fmt.Sprintf("%g", *result.Score)
		}
		slog.WarnContext(ctx, "verification rejected submission",
			"success", result.Success,
			"score", score,
			"error_codes", strings.Join(result.ErrorCodes, ","),
		)
		return ErrVerificationFailed
	}

	return nil
}
