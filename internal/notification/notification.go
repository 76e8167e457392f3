package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shyim/db-auto-backup/internal/config"
)

// DefaultTimeout bounds a single notification request
const DefaultTimeout = 30 * time.Second

// Report summarises a completed backup run
type Report struct {
	// Containers lists the names of containers whose backup was published
	Containers []string
	// Uploads lists the object keys confirmed by the storage backend
	Uploads []string
	// StorageEnabled mirrors S3_ENABLED, even when the settings were incomplete
	StorageEnabled bool
}

// Body renders the plain-text summary sent with verbose notifications
func (r Report) Body() string {
	body := strings.Join(r.Containers, "\n")
	if r.StorageEnabled {
		body += "\n\nS3 Uploads:\n" + strings.Join(r.Uploads, "\n")
	}
	return body
}

// Notifier delivers the end-of-run success signal
type Notifier interface {
	Send(ctx context.Context, report Report) error
}

// ResolveTarget picks the success URL from the configured candidates.
// An empty result means no notification is sent.
func ResolveTarget(cfg config.NotifyConfig) string {
	if cfg.SuccessHookURL != "" {
		return cfg.SuccessHookURL
	}

	if cfg.HealthchecksID != "" {
		host := cfg.HealthchecksHost
		if host == "" {
			host = config.DefaultHealthchecksHost
		}
		return fmt.Sprintf("https://%s/%s", host, cfg.HealthchecksID)
	}

	return cfg.UptimeKumaURL
}

// Webhook pings a URL once per successful run. With Verbose set the report
// is POSTed as text, otherwise a bare GET is issued.
type Webhook struct {
	url     string
	verbose bool
	client  *http.Client
}

var _ Notifier = (*Webhook)(nil)

// NewWebhook creates a webhook notifier for url
func NewWebhook(url string, verbose bool) *Webhook {
	return &Webhook{
		url:     url,
		verbose: verbose,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// URL returns the target URL
func (w *Webhook) URL() string {
	return w.url
}

// Send delivers the report. Any transport failure or non-2xx status is
// returned as an error.
func (w *Webhook) Send(ctx context.Context, report Report) error {
	method := http.MethodGet
	var body io.Reader
	if w.verbose {
		method = http.MethodPost
		body = strings.NewReader(report.Body())
	}

	req, err := http.NewRequestWithContext(ctx, method, w.url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if w.verbose {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	slog.Debug("notification sent", "method", method, "status", resp.StatusCode)
	return nil
}
