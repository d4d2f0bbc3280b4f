package digest

import (
	"context"
	"fmt"
	"strconv"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackPoster posts reports to a Slack channel.
type SlackPoster struct {
	client  slackClient
	channel string
}

// SlackOpts holds parameters for creating a SlackPoster.
type SlackOpts struct {
	BotToken string // xoxb-... bot token
	Channel  string // channel ID to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlackPoster creates a Slack poster.
func NewSlackPoster(opts SlackOpts) (*SlackPoster, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("digest: slack bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("digest: slack channel is required")
	}

	p := &SlackPoster{channel: opts.Channel}
	if opts.Client != nil {
		p.client = opts.Client
	} else {
		p.client = slackapi.New(opts.BotToken)
	}
	return p, nil
}

// Post delivers the report as an attachment message.
func (p *SlackPoster) Post(ctx context.Context, r *Report) error {
	att := slackapi.Attachment{
		Title:    r.Headline(),
		Text:     r.Body(),
		Color:    slackColor(r.Severity()),
		Fallback: r.Headline(),
		Fields: []slackapi.AttachmentField{
			{Title: "Overdue", Value: strconv.Itoa(len(r.Overdue)), Short: true},
			{Title: "Breaches (24h)", Value: strconv.Itoa(r.BreachesLast24h), Short: true},
			{Title: "Open escalations", Value: strconv.Itoa(r.OpenEscalations), Short: true},
		},
	}

	_, _, err := p.client.PostMessageContext(ctx, p.channel, slackapi.MsgOptionAttachments(att))
	if err != nil {
		return fmt.Errorf("digest: slack post: %w", err)
	}
	return nil
}

// slackColor maps a report severity to a Slack sidebar color.
func slackColor(severity string) string {
	if severity == "warning" {
		return "#e01e5a"
	}
	return "#36a64f"
}
