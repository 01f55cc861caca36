package models

import "time"

// Event names pushed to connected clients.
const (
	EventMessagePosted       = "message-posted"
	EventTypingChanged       = "typing-changed"
	EventMemberJoined        = "member-joined"
	EventMemberLeft          = "member-left"
	EventNotificationCreated = "notification-created"
)

// Event is the envelope for everything pushed over a live connection.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// TypingPayload is the body of a typing-changed event.
type TypingPayload struct {
	TeamID   int64 `json:"team_id"`
	UserID   int64 `json:"user_id"`
	IsTyping bool  `json:"is_typing"`
}

// MemberPayload is the body of member-joined and member-left events.
type MemberPayload struct {
	TeamID      int64     `json:"team_id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	At          time.Time `json:"at"`
}
