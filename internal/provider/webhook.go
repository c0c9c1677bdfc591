package provider

import (
	"context"
	"net/http"
	"time"
)

// DirectMessage is the JSON body posted to the chat gateway.
type DirectMessage struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// WebhookNotifier delivers direct messages by POSTing to the chat gateway.
// The URL is injected from config so tests can point to a local mock.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify posts the message and expects any 2xx response.
func (p *WebhookNotifier) Notify(ctx context.Context, ownerID, text string) error {
	return postJSON(ctx, p.httpClient, p.url, DirectMessage{UserID: ownerID, Content: text}, nil)
}

// compile-time check that WebhookNotifier implements Notifier
var _ Notifier = (*WebhookNotifier)(nil)

// WebhookPresence updates the bot status through the same gateway.
type WebhookPresence struct {
	url        string
	httpClient *http.Client
}

func NewWebhookPresence(url string, timeout time.Duration) *WebhookPresence {
	return &WebhookPresence{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *WebhookPresence) SetPresence(ctx context.Context, status string) error {
	return postJSON(ctx, p.httpClient, p.url, map[string]string{"status": status}, nil)
}

var _ PresenceSetter = (*WebhookPresence)(nil)
