// Package delivery sends queued reminders to members.
package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/domain"
)

// Reminder is one notification resolved to its recipient and conversation.
type Reminder struct {
	Notification domain.PendingMemberNotification
	Member       domain.Member
	Conversation domain.Conversation
}

// Sink delivers reminders. Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, r Reminder) error
}

// Text renders the reminder as a short message.
func (r Reminder) Text() string {
	switch r.Notification.Kind {
	case domain.NotificationKindOverdue:
		return fmt.Sprintf("Conversation %s in room %s is overdue for a response.", r.Conversation.ID, r.Conversation.RoomID)
	default:
		return fmt.Sprintf("Conversation %s in room %s is close to its response deadline.", r.Conversation.ID, r.Conversation.RoomID)
	}
}

// LogSink writes reminders to the log instead of a chat platform.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a sink that only logs.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, r Reminder) error {
	s.logger.Info("reminder",
		zap.String("member_id", r.Member.ID),
		zap.String("conversation_id", r.Conversation.ID),
		zap.String("kind", string(r.Notification.Kind)),
		zap.String("text", r.Text()))
	return nil
}
