package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snapship/internal/config"
)

const userAgent = "Snapship-Go/0.1.0"

// Event identifies a notification-worthy milestone.
type Event string

const (
	// EventStarted fires when the daemon begins watching.
	EventStarted Event = "started"
	// EventStopped fires when the daemon shuts down.
	EventStopped Event = "stopped"
	// EventUploadSucceeded fires after a file is uploaded and archived.
	EventUploadSucceeded Event = "upload_succeeded"
	// EventUploadFailed fires when an upload attempt fails.
	EventUploadFailed Event = "upload_failed"
	// EventTest fires on explicit notification tests.
	EventTest Event = "test"
)

// Payload carries event-specific values used to format the message.
type Payload map[string]string

// Service defines the notification surface exposed to daemon components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		prefs:    cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	prefs    config.Notifications
}

// Publish formats and sends the event. Events disabled in the config are
// silently dropped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	data, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventStarted:
		if !n.prefs.Lifecycle {
			return message{}, false
		}
		return message{
			title: "Snapship - Started",
			body:  fmt.Sprintf("Watching for new images in %s", payload.get("watchDir")),
			tags:  []string{"snapship", "watch", "started"},
		}, true
	case EventStopped:
		if !n.prefs.Lifecycle {
			return message{}, false
		}
		return message{
			title: "Snapship - Stopped",
			body:  fmt.Sprintf("Uploader stopped: %s uploaded, %s failed", payload.get("uploaded"), payload.get("failed")),
			tags:  []string{"snapship", "watch", "stopped"},
		}, true
	case EventUploadSucceeded:
		if !n.prefs.UploadSuccess {
			return message{}, false
		}
		body := fmt.Sprintf("⬆️ Uploaded: %s", payload.get("fileName"))
		if archived := payload.get("archiveName"); archived != "" && archived != payload.get("fileName") {
			body = fmt.Sprintf("%s\nArchived as: %s", body, archived)
		}
		return message{
			title: "Snapship - Uploaded",
			body:  body,
			tags:  []string{"snapship", "upload", "completed"},
		}, true
	case EventUploadFailed:
		if !n.prefs.UploadFailure {
			return message{}, false
		}
		body := fmt.Sprintf("❌ Upload failed: %s", payload.get("fileName"))
		if reason := payload.get("reason"); reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{
			title:    "Snapship - Upload Failed",
			body:     body,
			tags:     []string{"snapship", "upload", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Snapship - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"snapship", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
