package domain

import "time"

// NotificationKind distinguishes reminder types.
type NotificationKind string

const (
	NotificationKindWarning NotificationKind = "WARNING"
	NotificationKindOverdue NotificationKind = "OVERDUE"
)

// PendingMemberNotification is a reminder queued for one member about one
// conversation. At most one row per (member, conversation) is outstanding,
// meaning DateSentUTC is nil. Rows are deleted once delivered.
type PendingMemberNotification struct {
	ID             string
	MemberID       string
	ConversationID string
	Kind           NotificationKind
	NotBeforeUTC   *time.Time
	// DateSentUTC is set when a worker claims the row for delivery.
	DateSentUTC *time.Time
	CreatedOn   time.Time
}

// Outstanding reports a row not yet claimed for delivery.
func (n PendingMemberNotification) Outstanding() bool {
	return n.DateSentUTC == nil
}

// Due reports an outstanding row whose delivery window has opened.
func (n PendingMemberNotification) Due(now time.Time) bool {
	return n.Outstanding() && (n.NotBeforeUTC == nil || !n.NotBeforeUTC.After(now))
}
