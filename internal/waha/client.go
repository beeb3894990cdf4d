package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultSession is the provider session used when none is configured
const DefaultSession = "default"

// Config holds messaging provider settings
type Config struct {
	BaseURL string
	APIKey  string
	Session string
}

// StatusError is returned when the provider answers with a non-2xx status
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("waha %s failed: status %d", e.Endpoint, e.StatusCode)
}

// Client calls the chat provider's HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	session    string
	httpClient *http.Client
}

// NewClient creates a Client for the given provider settings
func NewClient(cfg Config) *Client {
	session := cfg.Session
	if session == "" {
		session = DefaultSession
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		session:    session,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	ChatID  string `json:"chatId"`
	Session string `json:"session"`
	Text    string `json:"text,omitempty"`
}

// SendSeen marks the chat as seen
func (c *Client) SendSeen(ctx context.Context, chatID string) error {
	return c.post(ctx, "sendSeen", chatRequest{ChatID: chatID}, nil)
}

// StartTyping shows the typing indicator in the chat
func (c *Client) StartTyping(ctx context.Context, chatID string) error {
	return c.post(ctx, "startTyping", chatRequest{ChatID: chatID}, nil)
}

// StopTyping hides the typing indicator
func (c *Client) StopTyping(ctx context.Context, chatID string) error {
	return c.post(ctx, "stopTyping", chatRequest{ChatID: chatID}, nil)
}

// SendText posts a text message and returns the provider's message ID
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "sendText", chatRequest{ChatID: chatID, Text: text}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body chatRequest, out any) error {
	body.Session = c.session
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("waha %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
