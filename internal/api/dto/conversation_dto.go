package dto

import (
	"time"

	"github.com/spec-kit/support-sla/internal/domain"
)

// MessagePostedRequest is reported by the chat bridge for every message.
type MessagePostedRequest struct {
	ConversationID string                   `json:"conversation_id"`
	RoomID         string                   `json:"room_id"`
	OrganizationID string                   `json:"organization_id"`
	AuthorType     domain.MessageAuthorType `json:"author_type"`
	AuthorID       string                   `json:"author_id"`
	Hidden         bool                     `json:"hidden"`
	Timestamp      *time.Time               `json:"timestamp"`
}

// SnoozeRequest payload.
type SnoozeRequest struct {
	Until time.Time `json:"until"`
}

// ConversationResponse summarizes a conversation.
type ConversationResponse struct {
	ID                 string                   `json:"id"`
	RoomID             string                   `json:"room_id"`
	OrganizationID     string                   `json:"organization_id"`
	State              domain.ConversationState `json:"state"`
	CreatedOn          time.Time                `json:"created_on"`
	LastStateChangeOn  time.Time                `json:"last_state_change_on"`
	FirstResponseOn    *time.Time               `json:"first_response_on"`
	ClosedOn           *time.Time               `json:"closed_on"`
	ArchivedOn         *time.Time               `json:"archived_on"`
	WarningSentOn      *time.Time               `json:"warning_sent_on"`
	SnoozedUntil       *time.Time               `json:"snoozed_until"`
	Version            int64                    `json:"version"`
	WaitingForResponse bool                     `json:"waiting_for_response"`
}

// ConversationDetailResponse adds the timeline and observations.
type ConversationDetailResponse struct {
	ConversationResponse
	Events       []StateChangeResponse `json:"events"`
	Observations []ObservationResponse `json:"observations"`
}

// StateChangeResponse is one timeline entry.
type StateChangeResponse struct {
	ID        string                   `json:"id"`
	OldState  domain.ConversationState `json:"old_state"`
	NewState  domain.ConversationState `json:"new_state"`
	Implicit  bool                     `json:"implicit"`
	ActorID   *string                  `json:"actor_id"`
	Timestamp time.Time                `json:"timestamp"`
}

// ObservationResponse is one recorded metric.
type ObservationResponse struct {
	Metric    domain.MetricName `json:"metric"`
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
}

// ResponseTimeResponse reports business time between two instants.
type ResponseTimeResponse struct {
	ConversationID string    `json:"conversation_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Seconds        float64   `json:"seconds"`
}

// CoverageResponse lists a room's covered windows in one zone.
type CoverageResponse struct {
	RoomID   string           `json:"room_id"`
	TimeZone string           `json:"time_zone"`
	Windows  []CoverageWindow `json:"windows"`
}

// CoverageWindow is a time-of-day range.
type CoverageWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
