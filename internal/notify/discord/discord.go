// Package discord implements the notify.Notifier for Discord. Outbound
// only: messages are posted over the REST API, no gateway connection is
// opened.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/quarrel-dev/upkeep/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts notifications to a Discord channel.
type Notifier struct {
	session   session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	Token     string // bot token
	ChannelID string // channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.Token == "" {
		return nil, fmt.Errorf("discord: token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel_id is required")
	}
	s := opts.Session
	if s == nil {
		dg, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: new session: %w", err)
		}
		s = dg
	}
	return &Notifier{session: s, channelID: opts.ChannelID}, nil
}

// Send posts the notification as a single message with the subject bolded.
func (n *Notifier) Send(ctx context.Context, msg notify.Notification) error {
	content := fmt.Sprintf("**%s**\n%s", msg.Subject, msg.Body)
	if _, err := n.session.ChannelMessageSend(n.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}
