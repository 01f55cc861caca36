package models

import "time"

// InvitationStatus is one of the five invitation lifecycle states.
// Transitions are forward-only: pending is the sole non-terminal state.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationRejected  InvitationStatus = "rejected"
	InvitationCancelled InvitationStatus = "cancelled"
	InvitationExpired   InvitationStatus = "expired"
)

// Invitation is a proposed membership pending the invitee's decision.
type Invitation struct {
	ID           string           `json:"id"`
	TeamID       int64            `json:"team_id"`
	InviterID    int64            `json:"inviter_id"`
	InviteeID    int64            `json:"invitee_id"`
	InviteeEmail string           `json:"invitee_email"`
	Role         Role             `json:"role"`
	Message      string           `json:"message,omitempty"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// Overdue reports whether a still-pending invitation has passed its expiry.
func (i *Invitation) Overdue(now time.Time) bool {
	return i.Status == InvitationPending && now.After(i.ExpiresAt)
}
