package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/events"
	"github.com/spec-kit/support-sla/internal/observability"
)

// AuditService logs and counts domain events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventConversationStateChanged, a.handleStateChanged)
	a.dispatcher.Subscribe(events.EventMetricRecorded, a.handleMetricRecorded)
	a.dispatcher.Subscribe(events.EventNotificationScheduled, a.handleNotificationScheduled)
}

func (a *AuditService) handleStateChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StateChangedPayload)
	if !ok {
		return nil
	}
	a.metrics.RecordTransition(payload.OldState.String(), payload.NewState.String())
	fields := []zap.Field{
		zap.String("conversation_id", event.ConversationID),
		zap.String("room_id", payload.RoomID),
		zap.String("old_state", payload.OldState.String()),
		zap.String("new_state", payload.NewState.String()),
		zap.Bool("implicit", payload.Implicit),
	}
	if event.Actor.MemberID != nil {
		fields = append(fields, zap.String("actor_id", *event.Actor.MemberID))
	}
	a.logger.Info("ConversationStateChanged", fields...)
	return nil
}

func (a *AuditService) handleMetricRecorded(_ context.Context, event events.Event) error {
	a.logger.Info("MetricRecorded", zap.String("conversation_id", event.ConversationID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleNotificationScheduled(_ context.Context, event events.Event) error {
	a.logger.Info("NotificationScheduled", zap.String("conversation_id", event.ConversationID), zap.Any("payload", event.Payload))
	return nil
}

func notificationScheduledEvent(conversationID string, kind domain.NotificationKind, memberIDs []string, now time.Time) events.Event {
	return events.Event{
		ID:             uuid.NewString(),
		Type:           events.EventNotificationScheduled,
		ConversationID: conversationID,
		Timestamp:      now,
		Payload:        events.NotificationScheduledPayload{Kind: kind, MemberIDs: memberIDs},
	}
}
