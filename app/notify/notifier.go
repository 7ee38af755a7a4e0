// Package notify delivers outbound email notifications. Delivery is
// fire-and-forget: a failure must never roll back the account mutation that
// triggered it, so callers log errors and continue.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier is the minimal surface the identity service needs to reach the
// notification sink.
type Notifier interface {
	SendVerification(ctx context.Context, recipient, name, link string) error
	SendWelcome(ctx context.Context, recipient, name, link string) error
	SendPasswordReset(ctx context.Context, recipient, name, link string) error
	SendTwoFactorCode(ctx context.Context, recipient, name, code string) error
}

// linkMessage is the wire shape for link-carrying notifications.
type linkMessage struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Link      string `json:"link"`
}

type codeMessage struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Code      string `json:"code"`
}

// HTTPNotifier posts notification requests to the messaging service.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPNotifier(baseURL string) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *HTTPNotifier) SendVerification(ctx context.Context, recipient, name, link string) error {
	return n.post(ctx, "/user/email-verification", linkMessage{Recipient: recipient, Name: name, Link: link})
}

func (n *HTTPNotifier) SendWelcome(ctx context.Context, recipient, name, link string) error {
	return n.post(ctx, "/user/welcome", linkMessage{Recipient: recipient, Name: name, Link: link})
}

func (n *HTTPNotifier) SendPasswordReset(ctx context.Context, recipient, name, link string) error {
	return n.post(ctx, "/user/reset-password", linkMessage{Recipient: recipient, Name: name, Link: link})
}

func (n *HTTPNotifier) SendTwoFactorCode(ctx context.Context, recipient, name, code string) error {
	return n.post(ctx, "/user/two-factor-auth", codeMessage{Recipient: recipient, Name: name, Code: code})
}

func (n *HTTPNotifier) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification sink returned %d", resp.StatusCode)
	}
	return nil
}
