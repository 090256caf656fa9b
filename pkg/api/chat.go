package api

// Role is the author of a chat message
type Role string

// Message is a single chat message sent to a provider
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
