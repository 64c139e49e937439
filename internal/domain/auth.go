package domain

// SubjectType differentiates bearer token holders.
type SubjectType string

const (
	// SubjectTypeMember is a support agent acting through the API.
	SubjectTypeMember SubjectType = "MEMBER"
	// SubjectTypeService is the chat-platform bridge that reports messages.
	SubjectTypeService SubjectType = "SERVICE"
)
