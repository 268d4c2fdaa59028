package model

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message of caller-supplied history. Only the user
// and assistant roles are accepted from clients; the system role is used
// internally for grounding instructions.
type ConversationTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// GroundingPayload is what the response generator sends to the language model.
type GroundingPayload struct {
	SystemInstructions string             `json:"systemInstructions"`
	Messages           []ConversationTurn `json:"messages"`
}
