package llms

import (
	"strings"
)

// Role is the author of a message.
type Role string

const (
	// RoleSystem is a system instruction or tool observation.
	RoleSystem Role = "system"
	// RoleUser is a human question.
	RoleUser Role = "user"
	// RoleAssistant is a model answer.
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ParseRole returns the role by its name, case-insensitive.
// Legacy aliases `human`, `ai` and `tool` are accepted.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system", "tool":
		return RoleSystem, true
	case "user", "human":
		return RoleUser, true
	case "assistant", "ai":
		return RoleAssistant, true
	}
	return "", false
}

// String returns a short `role: content` form.
func (m Message) String() string {
	return string(m.Role) + ": " + m.Content
}
