package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"divimport/internal/config"
)

const userAgent = "divimport/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
// Every message carries only status-level information; the mnemonic and
// daemon credentials never reach a notifier.
type Service interface {
	NotifyRecoveryStarted(ctx context.Context) error
	NotifyImportCompleted(ctx context.Context) error
	NotifySyncCompleted(ctx context.Context) error
	NotifyDesktopLaunched(ctx context.Context) error
	NotifyRecoveryFailed(ctx context.Context, detail string) error
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

func (n *ntfyService) NotifyRecoveryStarted(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Divi Import - Recovery Started",
		message: "Wallet recovery started. The daemon is being prepared.",
		tags:    []string{"divimport", "recovery", "started"},
	})
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Divi Import - Wallet Imported",
		message: "Wallet recreated from seed. Blockchain sync in progress.",
		tags:    []string{"divimport", "import", "completed"},
	})
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Divi Import - Sync Complete",
		message: "Blockchain sync finished. Ready to launch Divi Desktop.",
		tags:    []string{"divimport", "sync", "completed"},
	})
}

func (n *ntfyService) NotifyDesktopLaunched(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Divi Import - Desktop Launched",
		message: "Divi Desktop has been launched. Recovery is complete.",
		tags:    []string{"divimport", "launch", "completed"},
	})
}

func (n *ntfyService) NotifyRecoveryFailed(ctx context.Context, detail string) error {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = "no detail available"
	}
	return n.send(ctx, payload{
		title:    "Divi Import - Recovery Failed",
		message:  fmt.Sprintf("Recovery failed: %s", detail),
		tags:     []string{"divimport", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Divi Import - Test",
		message:  "Notification system test",
		tags:     []string{"divimport", "test"},
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
	if data.priority != "" {
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

func (noopService) NotifyRecoveryStarted(context.Context) error         { return nil }
func (noopService) NotifyImportCompleted(context.Context) error         { return nil }
func (noopService) NotifySyncCompleted(context.Context) error           { return nil }
func (noopService) NotifyDesktopLaunched(context.Context) error         { return nil }
func (noopService) NotifyRecoveryFailed(context.Context, string) error  { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
