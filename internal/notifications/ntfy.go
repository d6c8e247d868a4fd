package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipcraft/internal/config"
)

const userAgent = "clipcraft/0.1.0"

// NewFromConfig returns an ntfy reconciler when a topic is configured and a
// no-op otherwise.
func NewFromConfig(cfg *config.Config) Reconciler {
	if cfg == nil {
		return Noop{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Noop{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewNtfy(topic, &http.Client{Timeout: timeout})
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Ntfy publishes outcomes to an ntfy topic URL. Progress is not published.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

// NewNtfy posts to endpoint using client.
func NewNtfy(endpoint string, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Ntfy{endpoint: endpoint, client: client}
}

func (n *Ntfy) OnProgress(context.Context, Progress) error { return nil }

func (n *Ntfy) OnSuccess(ctx context.Context, artifactRef, label string) error {
	label = strings.TrimSpace(label)
	message := fmt.Sprintf("✅ %s", label)
	if ref := strings.TrimSpace(artifactRef); ref != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, ref)
	}
	return n.send(ctx, payload{
		title:   "Clipcraft - " + label,
		message: message,
		tags:    []string{"clipcraft", "edit", "completed"},
	})
}

func (n *Ntfy) OnError(ctx context.Context, kind, message string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if kind = strings.TrimSpace(kind); kind != "" {
		builder.WriteString(" (")
		builder.WriteString(kind)
		builder.WriteString(")")
	}
	builder.WriteString(": ")
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString(message)
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Clipcraft - Error",
		message:  builder.String(),
		tags:     []string{"clipcraft", "error", "alert"},
		priority: "high",
	})
}

func (n *Ntfy) send(ctx context.Context, data payload) error {
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
