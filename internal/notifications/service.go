package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediacat/internal/config"
)

const userAgent = "Mediacat/0.1.0"

// Service defines the notification surface exposed to the importer and the
// scan workflow.
type Service interface {
	NotifyImportCompleted(ctx context.Context, file string, imported, skipped, failed int, committed bool) error
	NotifyScanStarted(ctx context.Context, root string) error
	NotifyScanCompleted(ctx context.Context, root string, added, updated, missing int64, duration time.Duration) error
	NotifyScanFailed(ctx context.Context, root, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:     topic,
		client:       client,
		notifyImport: cfg.Notifications.Import,
		notifyScan:   cfg.Notifications.Scan,
		notifyErrors: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	notifyImport bool
	notifyScan   bool
	notifyErrors bool
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, file string, imported, skipped, failed int, committed bool) error {
	if !n.notifyImport {
		return nil
	}
	mode := "dry run"
	if committed {
		mode = "committed"
	}
	data := payload{
		title:   "Mediacat - Import Complete",
		message: fmt.Sprintf("Import of %s (%s): %d imported, %d skipped, %d failed", file, mode, imported, skipped, failed),
		tags:    []string{"mediacat", "import", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanStarted(ctx context.Context, root string) error {
	if !n.notifyScan {
		return nil
	}
	data := payload{
		title:   "Mediacat - Scan Started",
		message: fmt.Sprintf("Started scanning: %s", strings.TrimSpace(root)),
		tags:    []string{"mediacat", "scan", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanCompleted(ctx context.Context, root string, added, updated, missing int64, duration time.Duration) error {
	if !n.notifyScan {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title: "Mediacat - Scan Complete",
		message: fmt.Sprintf("Scan of %s complete in %s: %d added, %d updated, %d missing",
			strings.TrimSpace(root), duration, added, updated, missing),
		tags: []string{"mediacat", "scan", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanFailed(ctx context.Context, root, reason string) error {
	if !n.notifyScan {
		return nil
	}
	data := payload{
		title:    "Mediacat - Scan Failed",
		message:  fmt.Sprintf("Scan of %s failed: %s", strings.TrimSpace(root), strings.TrimSpace(reason)),
		tags:     []string{"mediacat", "scan", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Mediacat - Error",
		message:  builder.String(),
		tags:     []string{"mediacat", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Mediacat - Test",
		message:  "Notification system test",
		tags:     []string{"mediacat", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyImportCompleted(context.Context, string, int, int, int, bool) error { return nil }
func (noopService) NotifyScanStarted(context.Context, string) error                          { return nil }
func (noopService) NotifyScanCompleted(context.Context, string, int64, int64, int64, time.Duration) error {
	return nil
}
func (noopService) NotifyScanFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error       { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
