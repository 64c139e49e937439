package domain

import (
	"time"

	"github.com/spec-kit/support-sla/internal/workinghours"
)

// Member is a support agent who can respond to conversations.
type Member struct {
	ID             string
	OrganizationID string
	DisplayName    string
	// PlatformUserID is the chat platform's id used to deliver reminders.
	PlatformUserID string
	TimeZoneID     string
	// Hours overrides the organization's default working hours when set.
	Hours *workinghours.WorkingHours
	// WorkDays lists the weekdays the member works; empty means the default.
	WorkDays  []time.Weekday
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeZone resolves the member's IANA zone; nil when unknown.
func (m Member) TimeZone() *time.Location {
	return workinghours.LoadZone(m.TimeZoneID)
}

// WorkingHours returns the member's own hours, nil when using the default.
func (m Member) WorkingHours() *workinghours.WorkingHours {
	return m.Hours
}

// Workers adapts members for coverage calculations.
func Workers(members []Member) []workinghours.Worker {
	workers := make([]workinghours.Worker, 0, len(members))
	for _, m := range members {
		workers = append(workers, m)
	}
	return workers
}
