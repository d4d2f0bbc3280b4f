package digest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the Discord API methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordPoster posts reports to a Discord channel.
type DiscordPoster struct {
	session   discordSession
	channelID string
}

// DiscordOpts holds parameters for creating a DiscordPoster.
type DiscordOpts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session discordSession
}

// NewDiscordPoster creates a Discord poster.
func NewDiscordPoster(opts DiscordOpts) (*DiscordPoster, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("digest: discord bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("digest: discord channel ID is required")
	}

	p := &DiscordPoster{channelID: opts.ChannelID}
	if opts.Session != nil {
		p.session = opts.Session
	} else {
		session, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("digest: discord session: %w", err)
		}
		p.session = session
	}
	return p, nil
}

// Post delivers the report as an embed.
func (p *DiscordPoster) Post(ctx context.Context, r *Report) error {
	embed := &discordgo.MessageEmbed{
		Title:       r.Headline(),
		Description: r.Body(),
		Color:       discordColor(r.Severity()),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Overdue", Value: strconv.Itoa(len(r.Overdue)), Inline: true},
			{Name: "Breaches (24h)", Value: strconv.Itoa(r.BreachesLast24h), Inline: true},
			{Name: "Open escalations", Value: strconv.Itoa(r.OpenEscalations), Inline: true},
		},
	}

	_, err := p.session.ChannelMessageSendEmbed(p.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("digest: discord post: %w", err)
	}
	return nil
}

// discordColor maps a report severity to an embed color.
func discordColor(severity string) int {
	if severity == "warning" {
		return 0xe01e5a
	}
	return 0x36a64f
}
