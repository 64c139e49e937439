package domain

import "time"

// MessageAuthorType indicates who authored a message.
type MessageAuthorType string

const (
	AuthorTypeCustomer MessageAuthorType = "CUSTOMER"
	AuthorTypeSupport  MessageAuthorType = "SUPPORT"
	AuthorTypeSystem   MessageAuthorType = "SYSTEM"
)

// MessagePosted is a chat message already translated from the platform event.
type MessagePosted struct {
	ConversationID string
	RoomID         string
	OrganizationID string
	AuthorType     MessageAuthorType
	AuthorID       string
	// Hidden marks system-created threads that should not show up in queues.
	Hidden    bool
	Timestamp time.Time
}
