package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/report"
)

const defaultWebhookTemplate = `{"source":"ewwatch","healthy":{{ .Healthy }},"summary":{{ toJson .Summary }},"checks":{{ toJson .Checks }},"generated_at":{{ toJson .GeneratedAt }}}`

// WebhookCheck is one probe result as exposed to webhook templates.
type WebhookCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Healthy     bool
	Summary     string
	Text        string
	Checks      []WebhookCheck
	GeneratedAt time.Time
}

// WebhookNotifier sends reports to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *httpPoster
}

// NewWebhookNotifier creates a webhook notifier with the provided template.
// It returns nil when webhookURL is empty.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, tmpl string) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newHTTPPoster(logger, "webhook", webhookURL, "application/json", defaultTiming),
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, r report.Report) error {
	if n == nil {
		return nil
	}

	checks := make([]WebhookCheck, 0, len(r.Results))
	for _, res := range r.Results {
		checks = append(checks, WebhookCheck{Name: res.Name, Healthy: res.Healthy, Detail: res.Detail})
	}
	payload := WebhookPayload{
		Healthy:     r.Healthy,
		Summary:     r.Summary(),
		Text:        r.Format(),
		Checks:      checks,
		GeneratedAt: r.Timestamp.UTC(),
	}

	var buf bytes.Buffer
	if err := n.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if _, err := n.poster.post(ctx, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().Bool("healthy", r.Healthy).Msg("webhook notification sent")
	return nil
}
