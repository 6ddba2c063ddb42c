package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	channels []string
	err      error
}

func (f *fakeBotAPI) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.channels = append(f.channels, channelID)
	return channelID, "1724961600.000100", nil
}

func TestNotifier_Post(t *testing.T) {
	api := &fakeBotAPI{}
	n := newNotifier(api, zerolog.Nop())

	err := n.Post(context.Background(), "C123", "olá")

	require.NoError(t, err)
	assert.Equal(t, []string{"C123"}, api.channels)
}

func TestNotifier_PostError(t *testing.T) {
	api := &fakeBotAPI{err: errors.New("channel_not_found")}
	n := newNotifier(api, zerolog.Nop())

	err := n.Post(context.Background(), "C123", "olá")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "C123")
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestNotifier_EmptyChannel(t *testing.T) {
	n := newNotifier(&fakeBotAPI{}, zerolog.Nop())

	assert.Error(t, n.Post(context.Background(), "", "olá"))
}
