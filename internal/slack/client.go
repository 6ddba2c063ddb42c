// Package slack receives Events API webhooks and posts replies back to the
// workspace.
package slack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// BotAPI abstracts the Slack Web API client for testing. Only message
// posting is exposed; the agent never enumerates users or channels and
// addresses people by mention format (<@U123>) exclusively.
type BotAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier posts reply text to Slack channels.
type Notifier struct {
	api    BotAPI
	logger zerolog.Logger
}

// NewNotifier creates a Notifier backed by the real Slack Web API.
func NewNotifier(botToken string, logger zerolog.Logger) *Notifier {
	return newNotifier(slack.New(botToken), logger)
}

func newNotifier(api BotAPI, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:    api,
		logger: logger.With().Str("component", "slack.notifier").Logger(),
	}
}

// Post sends plain markdown text to a channel.
func (n *Notifier) Post(ctx context.Context, channelID, text string) error {
	if channelID == "" {
		return fmt.Errorf("posting message: empty channel")
	}
	_, ts, err := n.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting message to %s: %w", channelID, err)
	}
	n.logger.Debug().Str("channel", channelID).Str("ts", ts).Msg("message posted")
	return nil
}
