package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	colorRed   = 16711680
	colorGreen = 65280
	colorAmber = 16760576
	// Discord rejects embed descriptions longer than this.
	maxDescription = 4096
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields,omitempty"`
}

// Notifier posts run outcomes to Discord webhooks. An empty webhook URL
// disables that kind of notification.
type Notifier struct {
	ErrorURL   string
	SuccessURL string
	Client     *http.Client
}

func NewNotifier() *Notifier {
	return &Notifier{
		ErrorURL:   properties.DiscordErrorNotificationUrl(),
		SuccessURL: properties.DiscordSuccessNotificationUrl(),
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Error(ctx context.Context, errorMessage string) error {
	return n.send(ctx, n.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("So weird… must be your problem.\n\nAn error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func (n *Notifier) Warning(ctx context.Context, warningMessage string) error {
	return n.send(ctx, n.ErrorURL, DiscordEmbed{
		Title:       "⚠️ Warning Notification",
		Description: warningMessage,
		Color:       colorAmber,
	})
}

func (n *Notifier) Success(ctx context.Context, successMessage string, fields ...DiscordField) error {
	return n.send(ctx, n.SuccessURL, DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: fmt.Sprintf("Not sure how, but it worked...\n\n%s", successMessage),
		Color:       colorGreen,
		Fields:      fields,
	})
}

func (n *Notifier) send(ctx context.Context, url string, embed DiscordEmbed) error {
	if url == "" {
		logrus.WithField("title", embed.Title).Debug("discord webhook not configured, skipping notification")
		return nil
	}
	if runes := []rune(embed.Description); len(runes) > maxDescription {
		embed.Description = string(runes[:maxDescription-1]) + "…"
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}

func SendDiscordErrorNotification(errorMessage string) error {
	return NewNotifier().Error(context.Background(), errorMessage)
}
