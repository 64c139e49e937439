package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/repository"
)

// SweepResult summarizes one deadline sweep.
type SweepResult struct {
	Warned  int `json:"warned"`
	Overdue int `json:"overdue"`
	Woken   int `json:"woken"`
	Failed  int `json:"failed"`
}

// SLAService escalates conversations that wait too long for support.
type SLAService struct {
	conversations *ConversationService
	batchSize     int
}

// NewSLAService constructs the service on top of the conversation workflows.
func NewSLAService(conversations *ConversationService, batchSize int) *SLAService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SLAService{conversations: conversations, batchSize: batchSize}
}

// CheckDeadlines warns first responders about conversations nearing their
// deadline, marks the ones past it overdue and wakes expired snoozes. A
// failure on one conversation is logged and does not stop the sweep.
func (s *SLAService) CheckDeadlines(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cs := s.conversations
	now := cs.clock.UTCNow()

	waiting, err := cs.conversations.List(ctx, repository.ConversationFilter{
		States: []domain.ConversationState{domain.ConversationStateNew, domain.ConversationStateNeedsResponse},
		Limit:  s.batchSize,
	})
	if err != nil {
		return result, err
	}
	for i := range waiting {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		outcome, err := s.checkConversation(ctx, &waiting[i], now)
		if err != nil {
			result.Failed++
			cs.logger.Warn("deadline check failed",
				zap.String("conversation_id", waiting[i].ID),
				zap.Error(err))
			continue
		}
		switch outcome {
		case domain.NotificationKindWarning:
			result.Warned++
		case domain.NotificationKindOverdue:
			result.Overdue++
		}
	}

	woken, failed, err := s.wakeSnoozed(ctx, now)
	result.Woken, result.Failed = woken, result.Failed+failed
	if err != nil {
		return result, err
	}

	if result.Warned+result.Overdue+result.Woken+result.Failed > 0 {
		cs.logger.Info("deadline sweep finished",
			zap.Int("warned", result.Warned),
			zap.Int("overdue", result.Overdue),
			zap.Int("woken", result.Woken),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// checkConversation returns the kind of reminder the conversation triggered,
// or an empty kind when it is still within its warning threshold.
func (s *SLAService) checkConversation(ctx context.Context, conv *domain.Conversation, now time.Time) (domain.NotificationKind, error) {
	cs := s.conversations
	target, err := cs.thresholds(ctx, conv.RoomID, conv.OrganizationID)
	if err != nil {
		return "", err
	}
	elapsed, err := cs.businessTime(ctx, conv.RoomID, conv.OrganizationID, conv.LastStateChangeOn, now)
	if err != nil {
		return "", err
	}

	var kind domain.NotificationKind
	var observations []domain.MetricObservation
	switch {
	case target.Deadline > 0 && elapsed >= target.Deadline:
		if err := conv.MarkOverdue(now); err != nil {
			return "", err
		}
		kind = domain.NotificationKindOverdue
		observations = append(observations, newObservation(conv, domain.MetricConversationOverdue, 1, now))
	case target.Warning > 0 && elapsed >= target.Warning && conv.TimeToRespondWarningNotificationSent == nil:
		if err := conv.MarkWarningSent(now); err != nil {
			return "", err
		}
		kind = domain.NotificationKindWarning
	default:
		return "", nil
	}

	if err := cs.persist(ctx, conv, observations); err != nil {
		return "", err
	}
	if cs.scheduler == nil {
		return kind, nil
	}
	members, err := cs.responders(ctx, conv.RoomID, conv.OrganizationID, kind)
	if err != nil {
		return kind, err
	}
	scheduled, err := cs.scheduler.Schedule(ctx, conv, kind, members)
	if err != nil {
		return kind, err
	}
	if cs.dispatcher != nil && len(scheduled) > 0 {
		_ = cs.dispatcher.Publish(ctx, notificationScheduledEvent(conv.ID, kind, scheduled, now))
	}
	return kind, nil
}

func (s *SLAService) wakeSnoozed(ctx context.Context, now time.Time) (int, int, error) {
	cs := s.conversations
	snoozed, err := cs.conversations.List(ctx, repository.ConversationFilter{
		States:        []domain.ConversationState{domain.ConversationStateSnoozed},
		SnoozedBefore: &now,
		Limit:         s.batchSize,
	})
	if err != nil {
		return 0, 0, err
	}
	var woken, failed int
	for i := range snoozed {
		conv := &snoozed[i]
		if !conv.SnoozeExpired(now) {
			continue
		}
		if err := conv.Wake(now, nil); err != nil {
			failed++
			continue
		}
		if err := cs.persist(ctx, conv, nil); err != nil {
			failed++
			cs.logger.Warn("wake snoozed conversation failed",
				zap.String("conversation_id", conv.ID),
				zap.Error(err))
			continue
		}
		woken++
	}
	return woken, failed, nil
}
