package domain

import "time"

// ResponseTarget is the business-time budget for answering a conversation.
type ResponseTarget struct {
	Warning  time.Duration
	Deadline time.Duration
}

// IsZero reports an unset target.
func (t ResponseTarget) IsZero() bool {
	return t.Warning == 0 && t.Deadline == 0
}

// Room is a shared chat channel where customers talk to support.
type Room struct {
	ID             string
	OrganizationID string
	Name           string
	PlatformRoomID string
	// TimeToRespond overrides the organization default when set.
	TimeToRespond          *ResponseTarget
	FirstResponderIDs      []string
	EscalationResponderIDs []string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Organization holds defaults shared by its rooms.
type Organization struct {
	ID                            string
	Name                          string
	DefaultTimeToRespond          *ResponseTarget
	DefaultFirstResponderIDs      []string
	DefaultEscalationResponderIDs []string
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}
