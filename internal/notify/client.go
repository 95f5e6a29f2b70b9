// Package notify delivers push-style notifications through an external
// webhook relay. Stub mode logs deliveries instead of calling out, which
// keeps local development working without the relay.
package notify

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

// Client talks to the notification relay.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	stubMode   bool
	logger     *slog.Logger
}

// NewClient creates a relay client with the given configuration.
func NewClient(baseURL, secret string, stubMode bool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
		logger:     logger,
	}
}

// PartnerAnswered tells a member their partner just answered today's prompt.
func (c *Client) PartnerAnswered(ctx context.Context, msg PartnerAnsweredMessage) error {
	return c.deliver(ctx, "/notify/partner-answered", msg)
}

// DailyReminder nudges a member who has not answered today's prompt.
func (c *Client) DailyReminder(ctx context.Context, msg DailyReminderMessage) error {
	return c.deliver(ctx, "/notify/daily-reminder", msg)
}

func (c *Client) deliver(ctx context.Context, path string, payload interface{}) error {
	if c.stubMode {
		c.logger.Info("Stub notification", "path", path, "payload", payload)
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Notify-Secret", c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
