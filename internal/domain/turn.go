package domain

import "time"

// Role identifies the speaker of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message in the conversation log. Turns are append-only and
// never mutated after creation; insertion order is render order and replay
// order, so the log is persisted wholesale when a draft is saved.
type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
