package events

import (
	"time"

	"github.com/spec-kit/support-sla/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventConversationStateChanged EventType = "conversation_state_changed"
	EventMetricRecorded           EventType = "metric_recorded"
	EventNotificationScheduled    EventType = "notification_scheduled"
)

// Actor encapsulates actor metadata for an event. A nil MemberID means the
// system caused the event.
type Actor struct {
	Type     domain.SubjectType `json:"type,omitempty"`
	MemberID *string            `json:"member_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// StateChangedPayload payload.
type StateChangedPayload struct {
	RoomID   string                   `json:"room_id"`
	OldState domain.ConversationState `json:"old_state"`
	NewState domain.ConversationState `json:"new_state"`
	Implicit bool                     `json:"implicit"`
}

// MetricRecordedPayload payload.
type MetricRecordedPayload struct {
	Metric domain.MetricName `json:"metric"`
	Value  float64           `json:"value"`
}

// NotificationScheduledPayload payload.
type NotificationScheduledPayload struct {
	Kind      domain.NotificationKind `json:"kind"`
	MemberIDs []string                `json:"member_ids"`
}

// FromStateChange converts a persisted transition into a dispatchable event.
func FromStateChange(roomID string, ev domain.StateChangedEvent) Event {
	actor := Actor{MemberID: ev.ActorID}
	if ev.ActorID != nil {
		actor.Type = domain.SubjectTypeMember
	}
	return Event{
		ID:             ev.ID,
		Type:           EventConversationStateChanged,
		ConversationID: ev.ConversationID,
		Actor:          actor,
		Timestamp:      ev.Timestamp,
		Payload: StateChangedPayload{
			RoomID:   roomID,
			OldState: ev.OldState,
			NewState: ev.NewState,
			Implicit: ev.Implicit,
		},
	}
}
