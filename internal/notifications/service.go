package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"xmlwatch/internal/config"
)

const userAgent = "xmlwatch/0.1.0"

// Service defines the notification surface used by the handler and daemon.
type Service interface {
	NotifyFileFailed(ctx context.Context, path, reason string, err error) error
	NotifyBacklogCompleted(ctx context.Context, seen, completed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
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
}

func (n *ntfyService) NotifyFileFailed(ctx context.Context, path, reason string, err error) error {
	var builder strings.Builder
	builder.WriteString("Left in place: ")
	builder.WriteString(strings.TrimSpace(path))
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString("\nReason: ")
		builder.WriteString(reason)
	}
	if err != nil {
		builder.WriteString("\nError: ")
		builder.WriteString(strings.TrimSpace(err.Error()))
	}
	return n.send(ctx, payload{
		title:    "xmlwatch - File Failed",
		message:  builder.String(),
		tags:     []string{"xmlwatch", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyBacklogCompleted(ctx context.Context, seen, completed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "xmlwatch - Backlog Complete"
	message := fmt.Sprintf("Startup backlog: %d of %d files handled in %s", completed, seen, duration)
	if failed > 0 {
		title = "xmlwatch - Backlog Complete (with errors)"
		message = fmt.Sprintf("Startup backlog: %d succeeded, %d failed of %d files in %s", completed, failed, seen, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"xmlwatch", "backlog", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "xmlwatch - Test",
		message:  "Notification system test",
		tags:     []string{"xmlwatch", "test"},
		priority: "low",
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

type noopService struct{}

func (noopService) NotifyFileFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyBacklogCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
