// Package slack implements the notify.Notifier for Slack. Outbound only:
// Upkeep pushes notifications, it never reads the channel.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/quarrel-dev/upkeep/internal/notify"
)

// client abstracts the Slack API methods we use, enabling test mocks.
type client interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts notifications to a Slack channel.
type Notifier struct {
	client  client
	channel string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken string // xoxb-... Slack bot token
	Channel  string // channel ID to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client client
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	c := opts.Client
	if c == nil {
		c = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: c, channel: opts.Channel}, nil
}

// Send posts the notification as a single message with the subject bolded.
func (n *Notifier) Send(ctx context.Context, msg notify.Notification) error {
	text := fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Body)
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
