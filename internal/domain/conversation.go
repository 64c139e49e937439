package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when an explicit action is not allowed
// from the conversation's current state.
var ErrInvalidTransition = errors.New("invalid conversation state transition")

// Conversation is the aggregate tracked against response-time targets.
type Conversation struct {
	ID                                   string
	RoomID                               string
	OrganizationID                       string
	State                                ConversationState
	CreatedOn                            time.Time
	LastStateChangeOn                    time.Time
	FirstResponseOn                      *time.Time
	ClosedOn                             *time.Time
	ArchivedOn                           *time.Time
	TimeToRespondWarningNotificationSent *time.Time
	SnoozedUntil                         *time.Time
	// Version is the optimistic concurrency token checked on update.
	Version int64
	// PendingEvents holds transitions applied since the aggregate was loaded.
	PendingEvents []StateChangedEvent
}

// StateChangedEvent is an immutable timeline entry for one transition.
type StateChangedEvent struct {
	ID             string
	ConversationID string
	OldState       ConversationState
	NewState       ConversationState
	// Implicit marks transitions caused by a message or the system rather
	// than a direct user action.
	Implicit  bool
	ActorID   *string
	Timestamp time.Time
}

// NewConversation starts a conversation for a first customer message, or a
// hidden one for system-created threads.
func NewConversation(id, roomID, organizationID string, now time.Time, hidden bool) *Conversation {
	state := ConversationStateNew
	if hidden {
		state = ConversationStateHidden
	}
	return &Conversation{
		ID:                id,
		RoomID:            roomID,
		OrganizationID:    organizationID,
		State:             state,
		CreatedOn:         now,
		LastStateChangeOn: now,
	}
}

// SupportResponded moves a conversation awaiting support to Waiting. The
// first such move stamps FirstResponseOn. Returns false when nothing changed.
func (c *Conversation) SupportResponded(now time.Time, actorID *string) bool {
	if !c.State.awaitsFirstLineResponse() && c.State != ConversationStateOverdue {
		return false
	}
	if c.FirstResponseOn == nil {
		c.FirstResponseOn = &now
	}
	c.TimeToRespondWarningNotificationSent = nil
	c.transition(ConversationStateWaiting, now, true, actorID)
	return true
}

// CustomerResponded reopens a conversation the customer wrote to again.
// Returns false when nothing changed.
func (c *Conversation) CustomerResponded(now time.Time, actorID *string) bool {
	switch c.State {
	case ConversationStateWaiting, ConversationStateClosed, ConversationStateArchived:
		c.transition(ConversationStateNeedsResponse, now, true, actorID)
		return true
	default:
		return false
	}
}

// MarkWarningSent records that responders were warned about the deadline.
func (c *Conversation) MarkWarningSent(now time.Time) error {
	if !c.State.awaitsFirstLineResponse() {
		return c.invalid("warn")
	}
	c.TimeToRespondWarningNotificationSent = &now
	return nil
}

// MarkOverdue moves a conversation past its response deadline to Overdue.
func (c *Conversation) MarkOverdue(now time.Time) error {
	if !c.State.awaitsFirstLineResponse() {
		return c.invalid("mark overdue")
	}
	c.transition(ConversationStateOverdue, now, true, nil)
	return nil
}

// Close closes any open conversation.
func (c *Conversation) Close(now time.Time, actorID *string) error {
	if !c.State.IsOpen() {
		return c.invalid("close")
	}
	c.ClosedOn = &now
	c.SnoozedUntil = nil
	c.transition(ConversationStateClosed, now, false, actorID)
	return nil
}

// Archive archives a conversation from any state.
func (c *Conversation) Archive(now time.Time, actorID *string) error {
	if c.State == ConversationStateArchived || c.State == ConversationStateUnknown {
		return c.invalid("archive")
	}
	c.ArchivedOn = &now
	c.SnoozedUntil = nil
	c.transition(ConversationStateArchived, now, false, actorID)
	return nil
}

// Snooze hides an open conversation until the given instant.
func (c *Conversation) Snooze(now, until time.Time, actorID *string) error {
	if !c.State.IsOpen() || c.State == ConversationStateSnoozed || c.State == ConversationStateHidden {
		return c.invalid("snooze")
	}
	if !until.After(now) {
		return fmt.Errorf("%w: snooze must end after %s", ErrInvalidTransition, now.Format(time.RFC3339))
	}
	c.SnoozedUntil = &until
	c.transition(ConversationStateSnoozed, now, false, actorID)
	return nil
}

// Wake returns a snoozed conversation to NeedsResponse. A nil actor means the
// snooze expired.
func (c *Conversation) Wake(now time.Time, actorID *string) error {
	if c.State != ConversationStateSnoozed {
		return c.invalid("wake")
	}
	c.SnoozedUntil = nil
	c.transition(ConversationStateNeedsResponse, now, actorID == nil, actorID)
	return nil
}

// SnoozeExpired reports a snoozed conversation whose snooze has ended.
func (c *Conversation) SnoozeExpired(now time.Time) bool {
	return c.State == ConversationStateSnoozed && c.SnoozedUntil != nil && !c.SnoozedUntil.After(now)
}

func (c *Conversation) transition(to ConversationState, now time.Time, implicit bool, actorID *string) {
	c.PendingEvents = append(c.PendingEvents, StateChangedEvent{
		ConversationID: c.ID,
		OldState:       c.State,
		NewState:       to,
		Implicit:       implicit,
		ActorID:        actorID,
		Timestamp:      now,
	})
	c.State = to
	c.LastStateChangeOn = now
}

func (c *Conversation) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s conversation in state %s", ErrInvalidTransition, action, c.State)
}
