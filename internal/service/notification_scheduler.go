package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/clock"
	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/observability"
	"github.com/spec-kit/support-sla/internal/repository"
	"github.com/spec-kit/support-sla/internal/workinghours"
)

// NotificationScheduler queues reminders for members, timed to their
// working hours.
type NotificationScheduler struct {
	pending         repository.PendingNotificationRepository
	clock           clock.Clock
	logger          *zap.Logger
	metrics         *observability.Metrics
	defaultHours    workinghours.WorkingHours
	defaultWorkDays []time.Weekday
}

// SchedulerDependencies bundles collaborators for the scheduler.
type SchedulerDependencies struct {
	PendingRepo     repository.PendingNotificationRepository
	Clock           clock.Clock
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	DefaultHours    workinghours.WorkingHours
	DefaultWorkDays []time.Weekday
}

// NewNotificationScheduler constructs the scheduler.
func NewNotificationScheduler(deps SchedulerDependencies) *NotificationScheduler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	return &NotificationScheduler{
		pending:         deps.PendingRepo,
		clock:           c,
		logger:          logger,
		metrics:         deps.Metrics,
		defaultHours:    deps.DefaultHours,
		defaultWorkDays: deps.DefaultWorkDays,
	}
}

// Schedule queues one reminder per member unless the member already has an
// outstanding reminder for the conversation. Returns the members that got a
// new row.
func (s *NotificationScheduler) Schedule(ctx context.Context, conversation *domain.Conversation, kind domain.NotificationKind, members []domain.Member) ([]string, error) {
	now := s.clock.UTCNow()
	var scheduled []string
	for _, m := range members {
		notBefore := NextNotifyTime(m, s.defaultHours, s.defaultWorkDays, now)
		row := &domain.PendingMemberNotification{
			ID:             uuid.NewString(),
			MemberID:       m.ID,
			ConversationID: conversation.ID,
			Kind:           kind,
			NotBeforeUTC:   &notBefore,
			CreatedOn:      now,
		}
		created, err := s.pending.CreateIfNone(ctx, row)
		if err != nil {
			return scheduled, err
		}
		if !created {
			s.metrics.RecordNotification("deduplicated")
			continue
		}
		s.metrics.RecordNotification("scheduled")
		scheduled = append(scheduled, m.ID)
		s.logger.Debug("reminder scheduled",
			zap.String("conversation_id", conversation.ID),
			zap.String("member_id", m.ID),
			zap.String("kind", string(kind)),
			zap.Time("not_before", notBefore))
	}
	return scheduled, nil
}

// Cancel drops reminders for the conversation that no worker has claimed yet.
func (s *NotificationScheduler) Cancel(ctx context.Context, conversationID string) error {
	n, err := s.pending.DeleteOutstandingForConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug("reminders cancelled", zap.String("conversation_id", conversationID), zap.Int64("count", n))
	}
	return nil
}

// NextNotifyTime returns the earliest instant at or after nowUTC when the
// member is at work. Members with an unknown time zone, or no work days at
// all, are notified immediately.
func NextNotifyTime(m domain.Member, defaultHours workinghours.WorkingHours, defaultWorkDays []time.Weekday, nowUTC time.Time) time.Time {
	zone := m.TimeZone()
	days := m.WorkDays
	if len(days) == 0 {
		days = defaultWorkDays
	}
	if zone == nil || len(days) == 0 {
		return nowUTC
	}
	hours := defaultHours
	if m.Hours != nil {
		hours = *m.Hours
	}

	local := nowUTC.In(zone)
	tod := workinghours.Of(local)
	if hours.Contains(tod) {
		shiftDay := local
		// After midnight an overnight shift still belongs to the day it began.
		if hours.IsOvernight() && tod < hours.End {
			shiftDay = local.AddDate(0, 0, -1)
		}
		if slices.Contains(days, shiftDay.Weekday()) {
			return nowUTC
		}
	}

	for i := 0; i <= 7; i++ {
		d := local.AddDate(0, 0, i)
		if !slices.Contains(days, d.Weekday()) {
			continue
		}
		if start := hours.Start.On(d, zone); start.After(nowUTC) {
			return start.UTC()
		}
	}
	return nowUTC
}
