package alert

import (
	"context"

	bursarErrors "github.com/harunnryd/bursar/internal/errors"

	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

func (s *SlackNotifier) Notify(ctx context.Context, message string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(message, false))
	if err != nil {
		return bursarErrors.Wrap(err, "send slack alert")
	}
	return nil
}
