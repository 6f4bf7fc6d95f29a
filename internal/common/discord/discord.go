package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// maxErrorLines limits how many item errors are quoted in a job embed.
const maxErrorLines = 5

type WebhookMessage struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Timestamp   time.Time `json:"timestamp"`
	Fields      []Field   `json:"fields,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) SendMessage(ctx context.Context, msg WebhookMessage) error {
	if c.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status: %d", resp.StatusCode)
	}

	return nil
}

// NotifyJob posts a summary embed of a finished harvest job.
func (c *Client) NotifyJob(ctx context.Context, source models.Source, job *models.Job) error {
	return c.SendMessage(ctx, WebhookMessage{Embeds: []Embed{JobEmbed(source, job)}})
}

// JobEmbed renders a job as a Discord embed.
func JobEmbed(source models.Source, job *models.Job) Embed {
	counts := job.Counts()

	embed := Embed{
		Title:       fmt.Sprintf("%s Harvest %s", statusEmoji(job.Status), job.Status),
		Description: fmt.Sprintf("Source **%s** (%s)", source.ID, source.URL),
		Color:       getColorForStatus(job.Status),
		Timestamp:   job.Started,
		Fields: []Field{
			{Name: "Items", Value: fmt.Sprintf("%d", len(job.Items)), Inline: true},
			{Name: "Done", Value: fmt.Sprintf("%d", counts[models.ItemDone]), Inline: true},
			{Name: "Skipped", Value: fmt.Sprintf("%d", counts[models.ItemSkipped]), Inline: true},
			{Name: "Failed", Value: fmt.Sprintf("%d", counts[models.ItemFailed]), Inline: true},
		},
	}

	if job.Ended != nil {
		embed.Timestamp = *job.Ended
		embed.Fields = append(embed.Fields, Field{
			Name:   "Duration",
			Value:  job.Ended.Sub(job.Started).Round(time.Second).String(),
			Inline: true,
		})
	}

	if errs := jobErrors(job); errs != "" {
		embed.Fields = append(embed.Fields, Field{Name: "Errors", Value: errs})
	}

	return embed
}

func jobErrors(job *models.Job) string {
	lines := append([]string(nil), job.Errors...)
	for _, item := range job.Items {
		if item.Status == models.ItemFailed && item.Error != "" {
			lines = append(lines, fmt.Sprintf("`%s`: %s", item.RemoteID, item.Error))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > maxErrorLines {
		more := len(lines) - maxErrorLines
		lines = append(lines[:maxErrorLines], fmt.Sprintf("... and %d more", more))
	}
	return strings.Join(lines, "\n")
}

func statusEmoji(status models.JobStatus) string {
	switch status {
	case models.JobDone:
		return "✅"
	case models.JobDoneErrors:
		return "⚠️"
	case models.JobFailed:
		return "🚨"
	default:
		return "ℹ️"
	}
}

func getColorForStatus(status models.JobStatus) int {
	switch status {
	case models.JobDone:
		return 0x2ECC71 // Green
	case models.JobDoneErrors:
		return 0xFFA500 // Orange
	case models.JobFailed:
		return 0xFF0000 // Red
	default:
		return 0x808080 // Gray
	}
}
