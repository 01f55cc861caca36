package models

import "time"

// MessageType distinguishes user text from engine-generated system lines.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// SystemSenderID is the sentinel sender for system messages.
const SystemSenderID int64 = 0

// ChatMessage is one append-only entry in a team's chat history.
type ChatMessage struct {
	ID        int64       `json:"id"`
	TeamID    int64       `json:"team_id"`
	SenderID  int64       `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
