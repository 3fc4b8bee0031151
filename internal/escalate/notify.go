// ABOUTME: Escalation delivery: chat webhook and on-call SMS notifiers
// ABOUTME: Delivery failures are logged, never propagated to webhook callers

package escalate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers a rendered escalation somewhere a human will see it.
type Notifier interface {
	Notify(ctx context.Context, payload Payload) error
}

// ChatNotifier posts the chat rendering to a webhook URL as JSON.
type ChatNotifier struct {
	URL    string
	Client *http.Client
}

func (n *ChatNotifier) Notify(ctx context.Context, payload Payload) error {
	msg := RenderChat(payload)
	body, err := json.Marshal(map[string]string{
		"text": msg.Markdown,
		"html": msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("encoding chat message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting chat message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned %d", resp.StatusCode)
	}
	return nil
}

// MessageSender sends one outbound SMS.
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}

// SMSNotifier sends the condensed rendering to each on-call number.
type SMSNotifier struct {
	Sender  MessageSender
	Numbers []string
}

func (n *SMSNotifier) Notify(ctx context.Context, payload Payload) error {
	body := RenderSMS(payload)
	var firstErr error
	for _, to := range n.Numbers {
		if err := n.Sender.Send(ctx, to, body); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sending to %s: %w", to, err)
		}
	}
	return firstErr
}

// MultiNotifier fans out to several notifiers; every one is attempted.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, payload Payload) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogNotifier writes escalations to the log. Used when no chat webhook or
// SMS numbers are configured so escalations are never dropped silently.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, payload Payload) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("escalation", "order", payload.OrderID, "reason", payload.Reason, "summary", RenderSMS(payload))
	return nil
}
