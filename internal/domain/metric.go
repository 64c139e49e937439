package domain

import "time"

// MetricName identifies a recorded observation.
type MetricName string

const (
	// MetricResponseTime is the business seconds a customer waited for support.
	MetricResponseTime MetricName = "ResponseTime"
	// MetricConversationOverdue counts conversations that missed the deadline.
	MetricConversationOverdue MetricName = "ConversationOverdue"
)

// MetricObservation is an append-only measurement tied to a conversation.
type MetricObservation struct {
	ID             string
	Timestamp      time.Time
	Metric         MetricName
	Value          float64
	ConversationID string
	RoomID         string
	OrganizationID string
}
