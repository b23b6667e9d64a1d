package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

const colorDrop = 0x2ECC71 // green: price at or under the user's ceiling

// DiscordAdapter implements Adapter via a Discord incoming webhook.
type DiscordAdapter struct {
	webhookURL string
	client     *http.Client
	chats      PerChat
}

// NewDiscordAdapter creates a new DiscordAdapter.
func NewDiscordAdapter(webhookURL string, opts ...DiscordOption) *DiscordAdapter {
	d := &DiscordAdapter{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordAdapter.
type DiscordOption func(*DiscordAdapter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordAdapter) {
		d.client = c
	}
}

func (d *DiscordAdapter) Name() domain.Channel { return domain.ChannelDiscord }

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts payload as a single-embed Discord webhook message. Calls for
// the same channelTarget are serialized through the adapter's own PerChat so
// that one chat's messages never interleave out of order; calls for
// different targets run concurrently.
func (d *DiscordAdapter) Send(ctx context.Context, channelTarget string, payload domain.NotificationPayload) error {
	return d.chats.Do(channelTarget, func() error {
		webhook := discordWebhookPayload{Embeds: []discordEmbed{buildEmbed(payload)}}
		return d.post(ctx, channelTarget, webhook)
	})
}

func buildEmbed(p domain.NotificationPayload) discordEmbed {
	description := fmt.Sprintf("Nowa cena: **%s**", formatPrice(p))
	if hasDiscount(p) {
		description = fmt.Sprintf("Nowa cena: **%s** (limit: %s zł)", formatPrice(p), p.MaxPrice.StringFixed(2))
	}

	return discordEmbed{
		Title:       p.ProductName,
		URL:         p.ProductURL,
		Color:       colorDrop,
		Description: description,
		Fields: []discordEmbedField{
			{Name: "Sklep", Value: p.ShopName, Inline: true},
		},
	}
}

// post sends webhook to the per-chat webhook URL. channelTarget, for
// Discord, IS the webhook URL (one webhook per linked channel), so it is
// used in place of d.webhookURL when non-empty.
func (d *DiscordAdapter) post(ctx context.Context, channelTarget string, payload discordWebhookPayload) error {
	url := d.webhookURL
	if channelTarget != "" {
		url = channelTarget
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
