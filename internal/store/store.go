// Package store defines the data-access contracts consumed by the
// collaboration engine and provides their MySQL implementation. The engine
// depends only on the interfaces; tests substitute in-memory fakes.
package store

import (
	"context"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

// TeamStore reads and writes teams.
type TeamStore interface {
	GetTeam(ctx context.Context, id int64) (models.Team, error)
	// CreateTeam inserts the team and, atomically with it, the owner's
	// membership row.
	CreateTeam(ctx context.Context, team *models.Team) error
	UpdateTeam(ctx context.Context, team *models.Team) error
	ListTeamsForUser(ctx context.Context, userID int64) ([]models.Team, error)
}

// MembershipStore reads and writes (team, user, role) rows.
type MembershipStore interface {
	// GetMembership returns models.ErrNotFound when the user has no row
	// in the team; callers decide whether that is an authorization failure.
	GetMembership(ctx context.Context, teamID, userID int64) (models.Membership, error)
	InsertMembership(ctx context.Context, m models.Membership) error
	DeleteMembership(ctx context.Context, teamID, userID int64) error
	ListMembers(ctx context.Context, teamID int64) ([]models.Member, error)
}

// UserStore resolves accounts.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	// FindUserByContact resolves an account by its contact identifier
	// (email). Returns models.ErrNotFound for unknown contacts; the engine
	// never provisions accounts for invitees.
	FindUserByContact(ctx context.Context, contact string) (models.User, error)
}

// InvitationStore reads and writes invitations.
type InvitationStore interface {
	// InsertInvitation persists a new invitation. The insert is conditional
	// on no pending invitation existing for the (team, invitee) pair;
	// models.ErrDuplicatePending is returned otherwise, so the
	// at-most-one-pending rule holds even when two creates race past the
	// read-side duplicate check.
	InsertInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitation(ctx context.Context, id string) (models.Invitation, error)
	// UpdateInvitationStatus transitions id from expected to next. It is a
	// conditional update: models.ErrConflict is returned when the stored
	// status no longer matches expected, so two racing resolutions cannot
	// both succeed.
	UpdateInvitationStatus(ctx context.Context, id string, expected, next models.InvitationStatus) error
	FindPendingInvitation(ctx context.Context, teamID, inviteeID int64) (models.Invitation, error)
	ListPendingForInvitee(ctx context.Context, inviteeID int64) ([]models.Invitation, error)
	DeleteInvitation(ctx context.Context, id string) error
}

// MessageStore is the chat message store adapter: append plus a bounded
// recent-history load used to seed joiners.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListRecentMessages(ctx context.Context, teamID int64, limit int) ([]models.ChatMessage, error)
}

// NotificationStore reads and writes notification rows.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id int64) (models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, recipientID int64) error
	DeleteNotification(ctx context.Context, id int64) error
	DeleteReadNotifications(ctx context.Context, recipientID int64) error
	ListNotifications(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error)
}

// PreferenceStore reads and writes notification preference rows.
type PreferenceStore interface {
	// GetPreferences returns models.ErrNotFound when the user never saved
	// preferences; callers fall back to models.DefaultPreferences.
	GetPreferences(ctx context.Context, userID int64) (models.NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, prefs models.NotificationPreferences) error
}
