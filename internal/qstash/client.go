// Package qstash talks to an Upstash-compatible delay queue: publishing
// delayed callback messages, and verifying the signatures the queue puts
// on the callbacks it delivers.
package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://qstash.upstash.io"

// Client publishes messages with a server-side delay. The queue invokes
// the target URL no earlier than the delay and retries non-2xx responses
// under its own policy.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "QStashClient"),
	}
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

// PublishJSON enqueues body for delivery to callbackURL after delay.
// It returns the queue's message id.
func (c *Client) PublishJSON(ctx context.Context, callbackURL string, body any, delay time.Duration) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("qstash publish: encode body: %w", err)
	}

	url := fmt.Sprintf("%s/v2/publish/%s", c.baseURL, callbackURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("qstash publish: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Delay", fmt.Sprintf("%ds", int(delay.Seconds())))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qstash publish: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("qstash publish: status %d: %s", resp.StatusCode, detail)
	}

	var decoded publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("qstash publish: decode response: %w", err)
	}

	c.logger.Debug("Delayed message published", "message_id", decoded.MessageID, "delay", delay)
	return decoded.MessageID, nil
}
