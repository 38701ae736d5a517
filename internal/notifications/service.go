package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"satchel/internal/config"
)

const userAgent = "Satchel/0.1.0"

// Service defines the notification surface exposed to queue components.
// Notifications are best-effort and never gate queue progress.
type Service interface {
	NotifyEntryQueued(ctx context.Context, entryID string, attachments int)
	NotifyEntryDelivered(ctx context.Context, entryID string)
	NotifyEntryErrored(ctx context.Context, entryID, message string)
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		queued:   cfg.Notifications.Queued,
		success:  cfg.Notifications.Delivered,
		errors:   cfg.Notifications.Errors,
	}
}

// NewNoop returns a service that discards every notification.
func NewNoop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	queued   bool
	success  bool
	errors   bool
}

func (n *ntfyService) NotifyEntryQueued(ctx context.Context, entryID string, attachments int) {
	if !n.queued {
		return
	}
	_ = n.send(ctx, payload{
		title:   "Satchel - Queued",
		message: fmt.Sprintf("Submission %s queued with %d attachment(s)", shortID(entryID), attachments),
		tags:    []string{"satchel", "queued"},
	})
}

func (n *ntfyService) NotifyEntryDelivered(ctx context.Context, entryID string) {
	if !n.success {
		return
	}
	_ = n.send(ctx, payload{
		title:   "Satchel - Delivered",
		message: fmt.Sprintf("Submission %s delivered", shortID(entryID)),
		tags:    []string{"satchel", "delivered"},
	})
}

func (n *ntfyService) NotifyEntryErrored(ctx context.Context, entryID, message string) {
	if !n.errors {
		return
	}
	_ = n.send(ctx, payload{
		title:    "Satchel - Delivery Failed",
		message:  fmt.Sprintf("Submission %s exhausted retries: %s", shortID(entryID), strings.TrimSpace(message)),
		tags:     []string{"satchel", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Satchel - Test",
		message: "Test notification from satchel",
		tags:    []string{"satchel", "test"},
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopService struct{}

func (noopService) NotifyEntryQueued(context.Context, string, int)     {}
func (noopService) NotifyEntryDelivered(context.Context, string)       {}
func (noopService) NotifyEntryErrored(context.Context, string, string) {}
func (noopService) TestNotification(context.Context) error             { return nil }
