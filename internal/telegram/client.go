package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Bot API host.
const DefaultBaseURL = "https://api.telegram.org"

// defaultTimeout bounds the dispatch call so a slow Bot API cannot hold
// the client request open indefinitely.
const defaultTimeout = 5 * time.Second

// Dispatch errors. ErrUnavailable covers transport failures and malformed
// responses; ErrDeliveryFailed means the API answered ok:false. Neither may
// surface provider detail to the end user.
var (
	ErrUnavailable    = errors.New("telegram api unreachable")
	ErrDeliveryFailed = errors.New("telegram delivery failed")
)

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	MessageThreadID       *int   `json:"message_thread_id,omitempty"`
}

// sendMessageResponse is the subset of the Bot API response we read.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Client delivers formatted messages to a fixed chat (and optional forum
// thread) through the Bot API. Safe for concurrent use.
type Client struct {
	token    string
	chatID   string
	threadID *int
	baseURL  string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Bot API host (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a dispatch client. threadID may be nil when the chat
// has no forum threads.
func NewClient(token, chatID string, threadID *int, opts ...Option) *Client {
	c := &Client{
		token:    token,
		chatID:   chatID,
		threadID: threadID,
		baseURL:  DefaultBaseURL,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage delivers text to the configured chat. Single attempt, no
// retry: a duplicate notification is worse than a lost one the sender can
// resubmit.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	payload := sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
		MessageThreadID:       c.threadID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	if !result.OK {
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, result.Description)
	}

	return nil
}

// HealthCheck verifies the bot token by calling getMe. Used by the
// readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + "/bot" + c.token + "/getMe"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("malformed getMe response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("getMe reported failure: %s", result.Description)
	}
	return nil
}
