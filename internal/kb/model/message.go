// File path: internal/kb/model/message.go
package model

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is an immutable conversation entry.
type Message struct {
	Role            Role      `json:"role"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	SQL             string    `json:"sql,omitempty"`
	Rows            []Row     `json:"table,omitempty"`
	RefinedQuestion string    `json:"refined_question,omitempty"`
}

// NewMessage stamps a message with the current UTC time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}
