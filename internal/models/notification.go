package models

import "time"

// NotificationKind enumerates the events a notification can describe.
type NotificationKind string

const (
	NotifyTeamInvitation NotificationKind = "team_invitation"
	NotifyMemberAdded    NotificationKind = "member_added"
	NotifyNewMessage     NotificationKind = "new_message"
	NotifyMention        NotificationKind = "mention"
	NotifyDocumentShared NotificationKind = "document_shared"
	NotifyRoleChange     NotificationKind = "role_change"
)

// Notification is a recipient-visible record of an event.
type Notification struct {
	ID          int64             `json:"id"`
	RecipientID int64             `json:"recipient_id"`
	Kind        NotificationKind  `json:"kind"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Read        bool              `json:"read"`
	ActionRef   string            `json:"action_ref,omitempty"`
	Payload     map[string]string `json:"payload,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NotificationPreferences is one user's per-category notification gate
// plus delivery-channel toggles.
type NotificationPreferences struct {
	UserID          int64 `json:"user_id"`
	TeamInvitations bool  `json:"team_invitations"`
	MemberAdded     bool  `json:"member_added"`
	NewMessages     bool  `json:"new_messages"`
	Mentions        bool  `json:"mentions"`
	DocumentShared  bool  `json:"document_shared"`
	RoleChanges     bool  `json:"role_changes"`
	EmailEnabled    bool  `json:"email_enabled"`
	PushEnabled     bool  `json:"push_enabled"`
}

// DefaultPreferences returns the matrix used before a user ever saves one:
// every category on, push on, email off.
func DefaultPreferences(userID int64) NotificationPreferences {
	return NotificationPreferences{
		UserID:          userID,
		TeamInvitations: true,
		MemberAdded:     true,
		NewMessages:     true,
		Mentions:        true,
		DocumentShared:  true,
		RoleChanges:     true,
		EmailEnabled:    false,
		PushEnabled:     true,
	}
}

// Allows reports whether the preference gate for the given kind is open.
func (p NotificationPreferences) Allows(kind NotificationKind) bool {
	switch kind {
	case NotifyTeamInvitation:
		return p.TeamInvitations
	case NotifyMemberAdded:
		return p.MemberAdded
	case NotifyNewMessage:
		return p.NewMessages
	case NotifyMention:
		return p.Mentions
	case NotifyDocumentShared:
		return p.DocumentShared
	case NotifyRoleChange:
		return p.RoleChanges
	}
	return false
}
