// Package notify dispatches outbound notifications (email/SMS) through
// the CRM's notification gateway.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Notification is one outbound message.
type Notification struct {
	UserID  string `json:"user_id"`
	Channel string `json:"channel"` // email or sms
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// Client posts notifications to the gateway. An empty base URL disables
// dispatch, which keeps local development working without a gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a notification client for the given gateway URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send dispatches one notification. Failures are returned to the caller
// so a tool handler can report them instead of silently dropping them.
func (c *Client) Send(ctx context.Context, n Notification) error {
	if c.baseURL == "" {
		log.Warn().Str("user_id", n.UserID).Str("channel", n.Channel).
			Msg("notification gateway not configured, dropping notification")
		return errors.New("notification gateway not configured")
	}

	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("notification gateway returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
