package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"socket/internal/config"
)

const userAgent = "Socket/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyBuildCompleted(ctx context.Context, appName, platform string) error
	NotifyPackageCompleted(ctx context.Context, appName, artifact string) error
	NotifyNotarizationResult(ctx context.Context, appName, status string) error
	NotifyFailure(ctx context.Context, err error, step string) error
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
		endpoint: topic,
		client:   client,
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

func (n *ntfyService) NotifyBuildCompleted(ctx context.Context, appName, platform string) error {
	appName = strings.TrimSpace(appName)
	platform = strings.TrimSpace(platform)
	if platform == "" {
		platform = "unknown"
	}
	data := payload{
		title:   "Socket - Build Complete",
		message: fmt.Sprintf("Build complete: %s (%s)", appName, platform),
		tags:    []string{"socket", "build", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPackageCompleted(ctx context.Context, appName, artifact string) error {
	appName = strings.TrimSpace(appName)
	artifact = strings.TrimSpace(artifact)
	message := fmt.Sprintf("Packaged: %s", appName)
	if artifact != "" {
		message = fmt.Sprintf("%s\nArtifact: %s", message, artifact)
	}
	data := payload{
		title:   "Socket - Packaged",
		message: message,
		tags:    []string{"socket", "package", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNotarizationResult(ctx context.Context, appName, status string) error {
	appName = strings.TrimSpace(appName)
	status = strings.TrimSpace(status)

	var title string
	var priority string
	tags := []string{"socket", "notary"}
	switch status {
	case "success":
		title = "Socket - Notarized"
		tags = append(tags, "completed")
	default:
		title = "Socket - Notarization Failed"
		priority = "high"
		tags = append(tags, "alert")
	}

	data := payload{
		title:    title,
		message:  fmt.Sprintf("Notarization %s: %s", status, appName),
		tags:     tags,
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFailure(ctx context.Context, err error, step string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if step = strings.TrimSpace(step); step != "" {
		builder.WriteString(" during ")
		builder.WriteString(step)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Socket - Error",
		message:  builder.String(),
		tags:     []string{"socket", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Socket - Test",
		message:  "Notification system test",
		tags:     []string{"socket", "test"},
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

func (noopService) NotifyBuildCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyPackageCompleted(context.Context, string, string) error   { return nil }
func (noopService) NotifyNotarizationResult(context.Context, string, string) error { return nil }
func (noopService) NotifyFailure(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
