package domain

// ConversationState enumerates lifecycle states for conversations.
type ConversationState string

const (
	// ConversationStateUnknown marks rows written before states existed or
	// values this build does not recognize. It is never entered at runtime.
	ConversationStateUnknown       ConversationState = "Unknown"
	ConversationStateNew           ConversationState = "New"
	ConversationStateNeedsResponse ConversationState = "NeedsResponse"
	ConversationStateOverdue       ConversationState = "Overdue"
	ConversationStateWaiting       ConversationState = "Waiting"
	ConversationStateClosed        ConversationState = "Closed"
	ConversationStateArchived      ConversationState = "Archived"
	ConversationStateSnoozed       ConversationState = "Snoozed"
	ConversationStateHidden        ConversationState = "Hidden"
)

// ParseConversationState maps a persisted value to a state; anything
// unrecognized becomes ConversationStateUnknown.
func ParseConversationState(s string) ConversationState {
	switch state := ConversationState(s); state {
	case ConversationStateNew,
		ConversationStateNeedsResponse,
		ConversationStateOverdue,
		ConversationStateWaiting,
		ConversationStateClosed,
		ConversationStateArchived,
		ConversationStateSnoozed,
		ConversationStateHidden:
		return state
	default:
		return ConversationStateUnknown
	}
}

// IsOpen reports every known state except Closed and Archived.
func (s ConversationState) IsOpen() bool {
	switch s {
	case ConversationStateNew,
		ConversationStateNeedsResponse,
		ConversationStateOverdue,
		ConversationStateWaiting,
		ConversationStateSnoozed,
		ConversationStateHidden:
		return true
	default:
		return false
	}
}

// IsWaitingForResponse reports states where the customer awaits support.
func (s ConversationState) IsWaitingForResponse() bool {
	switch s {
	case ConversationStateNew,
		ConversationStateNeedsResponse,
		ConversationStateOverdue,
		ConversationStateSnoozed:
		return true
	default:
		return false
	}
}

// awaitsFirstLineResponse reports states a support reply moves to Waiting and
// a deadline check may escalate.
func (s ConversationState) awaitsFirstLineResponse() bool {
	return s == ConversationStateNew || s == ConversationStateNeedsResponse
}

// String implements fmt.Stringer.
func (s ConversationState) String() string {
	return string(s)
}
