package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned for members without a chat platform id.
var ErrNoRecipient = errors.New("member has no platform user id")

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackSink posts reminders as direct messages.
type SlackSink struct {
	client slackPoster
	logger *zap.Logger
}

// NewSlackSink builds a sink using a bot token.
func NewSlackSink(token string, logger *zap.Logger) *SlackSink {
	return newSlackSink(slack.New(token), logger)
}

func newSlackSink(client slackPoster, logger *zap.Logger) *SlackSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackSink{client: client, logger: logger}
}

func (s *SlackSink) Send(ctx context.Context, r Reminder) error {
	if r.Member.PlatformUserID == "" {
		return fmt.Errorf("send reminder to %s: %w", r.Member.ID, ErrNoRecipient)
	}
	text := r.Text()
	channel, ts, err := s.client.PostMessageContext(ctx, r.Member.PlatformUserID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "*"+text+"*", false, false), nil, nil),
		),
	)
	if err != nil {
		return fmt.Errorf("post slack reminder: %w", err)
	}
	s.logger.Debug("slack reminder posted",
		zap.String("member_id", r.Member.ID),
		zap.String("channel", channel),
		zap.String("ts", ts))
	return nil
}
