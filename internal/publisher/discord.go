package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// discordContentLimit is the maximum message length accepted by Discord.
const discordContentLimit = 2000

type discordWebhookPayload struct {
	Content string `json:"content"`
}

// DiscordPublisher posts messages to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish sends one message, truncated to Discord's length limit.
func (d *DiscordPublisher) Publish(ctx context.Context, content string) error {
	if d.webhookURL == "" {
		return fmt.Errorf("discord: webhook url not set: %w", ErrNotConfigured)
	}

	body, err := json.Marshal(discordWebhookPayload{Content: truncate(content, discordContentLimit)})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord: unexpected status %d", resp.StatusCode)
	}
	return nil
}
