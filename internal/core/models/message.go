package models

import (
	"time"
)

// Role identifies who authored a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in the chat log
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
	ReplyTo   string // ID of the user message an assistant turn answers
	IsError   bool   // Assistant turn reporting a failure instead of an answer
}

// IsUser reports whether the message was written by the user
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}
