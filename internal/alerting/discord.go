package alerting

import (
	"context"
	"net/http"
)

type DiscordClient struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordClient(webhookURL string) *DiscordClient {
	return &DiscordClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

func (c *DiscordClient) Name() string { return "discord" }

func (c *DiscordClient) Send(ctx context.Context, message string) error {
	payload := map[string]any{"content": message}
	return postJSON(ctx, c.client, c.webhookURL, payload, http.StatusOK, http.StatusNoContent)
}
