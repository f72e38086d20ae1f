package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Embed colours per event.
var discordColors = map[string]int{
	EventCrashSale:       0xE74C3C,
	EventManualCrashSale: 0xE67E22,
	EventLevelUp:         0x2ECC71,
	EventSkillUnlocked:   0x3498DB,
}

// DiscordSender posts messages to a Discord webhook as a single embed.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender with a 10 second HTTP timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send posts msg to the webhook. Discord answers 204 on success.
func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       discordColors[msg.Event],
	}
	for _, k := range sortedFieldKeys(msg.Fields) {
		embed.Fields = append(embed.Fields, discordField{Name: k, Value: msg.Fields[k], Inline: true})
	}

	if err := postJSON(ctx, d.client, d.webhookURL, discordPayload{Embeds: []discordEmbed{embed}}); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns "discord".
func (d *DiscordSender) Name() string { return "discord" }
