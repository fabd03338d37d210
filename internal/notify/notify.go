// Package notify posts run summaries to a Discord-compatible webhook.
package notify

import (
	"context"
	"fmt"

	gladhttp "github.com/rizkyfirmansyah/glad-alerts/internal/http"
	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
)

// Embed colors.
const (
	ColorSuccess = 65280
	ColorError   = 16711680
)

// Message is one notification.
type Message struct {
	Title   string
	Text    string
	Success bool
}

// webhookPayload is the Discord webhook body.
type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Notifier sends messages to a webhook URL. A Notifier without a URL
// drops every message.
type Notifier struct {
	url    string
	client *gladhttp.Client
}

// New creates a Notifier. url may be empty.
func New(url string, client *gladhttp.Client) *Notifier {
	if client == nil {
		client = gladhttp.NewClient(gladhttp.DefaultOptions())
	}
	return &Notifier{url: url, client: client}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Send posts msg to the webhook.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}

	color := ColorError
	if msg.Success {
		color = ColorSuccess
	}
	payload := webhookPayload{Embeds: []embed{{
		Title:       msg.Title,
		Description: msg.Text,
		Color:       color,
	}}}

	if err := n.client.PostJSON(ctx, n.url, payload); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	logger := logctx.FromContext(ctx)
	logger.Debug().Str("title", msg.Title).Msg("Notification sent")
	return nil
}
