// Package notify sends transactional mail through an HTTP mail webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/pkg/httpclient"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("mail webhook not configured")

// Message is the webhook request body.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// WebhookMailer posts messages as JSON to a mail webhook behind a circuit
// breaker.
type WebhookMailer struct {
	url    string
	client *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// NewWebhookMailer creates a mailer posting to url. An empty url yields a
// mailer whose Send returns ErrNotConfigured.
func NewWebhookMailer(url string, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *WebhookMailer {
	return &WebhookMailer{url: url, client: client, logger: logger}
}

// Send posts msg to the webhook.
func (m *WebhookMailer) Send(ctx context.Context, msg Message) error {
	if m.url == "" {
		return ErrNotConfigured
	}
	if msg.To == "" || msg.Subject == "" {
		return fmt.Errorf("send mail: missing recipient or subject")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	resp, err := m.client.Post(ctx, m.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if !statusOK(resp.StatusCode) {
		return fmt.Errorf("send mail: %w", httpclient.ParseResponseError(resp, "mail-webhook"))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	m.logger.DebugContext(ctx, "mail sent", slog.String("subject", msg.Subject))
	return nil
}

var bookingTmpl = template.Must(template.New("booking").Parse(`<div style="font-family: -apple-system, Segoe UI, Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #222;">
  <h2 style="margin: 0 0 12px;">Booking confirmed</h2>
  <p style="margin: 0 0 16px;">Hi {{.Name}},</p>
  <p style="margin: 0 0 8px;">You're booked for <strong>{{.Event.Name}}</strong>.</p>
  <p style="margin: 0 0 8px;">When: {{.Event.Time}}</p>
  <p style="margin: 0 0 8px;">Where: {{.Event.Address}}, {{.Event.Suburb}}</p>
  <hr style="margin: 16px 0; border: none; border-top: 1px solid #eee;" />
  <p style="margin: 0; font-size: 12px; color: #666;">This is an automated message. Please do not reply.</p>
</div>`))

// BookingConfirmation renders the mail sent after a user books an event.
func BookingConfirmation(to, name string, e *domain.Event) (Message, error) {
	if name == "" {
		name = to
	}
	var buf bytes.Buffer
	if err := bookingTmpl.Execute(&buf, struct {
		Name  string
		Event *domain.Event
	}{name, e}); err != nil {
		return Message{}, fmt.Errorf("render booking mail: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Booking confirmed: " + e.Name,
		HTML:    buf.String(),
	}, nil
}

// statusOK reports whether code is a success status.
func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
