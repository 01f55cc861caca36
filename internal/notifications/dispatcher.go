// Package notifications persists and pushes preference-gated notifications.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

// Pusher delivers an event to a user's live connections, if any. Delivery is
// best effort; the return value only says whether anything was attempted.
type Pusher interface {
	PushToUser(userID int64, ev models.Event) bool
}

// Dispatcher is the preference-gated notification fan-out point.
type Dispatcher struct {
	notifications store.NotificationStore
	preferences   store.PreferenceStore
	pusher        Pusher
	now           func() time.Time
	log           *logger.Logger
}

func NewDispatcher(ns store.NotificationStore, ps store.PreferenceStore, pusher Pusher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: ns,
		preferences:   ps,
		pusher:        pusher,
		now:           time.Now,
		log:           log,
	}
}

// WithClock overrides the clock, for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch persists and pushes a notification unless the recipient has the
// kind's category disabled, in which case it is a silent no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientID int64, kind models.NotificationKind,
	title, message, actionRef string, payload map[string]string) error {

	prefs, err := d.preferencesFor(ctx, recipientID)
	if err != nil {
		return err
	}
	if !prefs.Allows(kind) {
		d.log.Debug("notification suppressed by preferences", "recipient", recipientID, "kind", kind)
		return nil
	}

	n := &models.Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		Read:        false,
		ActionRef:   actionRef,
		Payload:     payload,
		CreatedAt:   d.now().UTC(),
	}
	if err := d.notifications.InsertNotification(ctx, n); err != nil {
		return err
	}

	if prefs.PushEnabled && d.pusher != nil {
		d.pusher.PushToUser(recipientID, models.Event{
			Event:   models.EventNotificationCreated,
			Payload: n,
		})
	}
	return nil
}

// MarkRead flips the read flag; only the recipient may do so.
func (d *Dispatcher) MarkRead(ctx context.Context, id, actingUser int64) error {
	n, err := d.notifications.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != actingUser {
		return fmt.Errorf("notification %d: %w", id, models.ErrPermissionDenied)
	}
	return d.notifications.MarkNotificationRead(ctx, id)
}

// MarkAllRead flips the read flag on every unread notification of the caller.
func (d *Dispatcher) MarkAllRead(ctx context.Context, actingUser int64) error {
	return d.notifications.MarkAllNotificationsRead(ctx, actingUser)
}

// Delete removes one notification; only the recipient may do so.
func (d *Dispatcher) Delete(ctx context.Context, id, actingUser int64) error {
	n, err := d.notifications.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != actingUser {
		return fmt.Errorf("notification %d: %w", id, models.ErrPermissionDenied)
	}
	return d.notifications.DeleteNotification(ctx, id)
}

// ClearAllRead bulk-deletes the caller's read notifications.
func (d *Dispatcher) ClearAllRead(ctx context.Context, actingUser int64) error {
	return d.notifications.DeleteReadNotifications(ctx, actingUser)
}

// List returns the caller's most recent notifications.
func (d *Dispatcher) List(ctx context.Context, actingUser int64, limit int) ([]models.Notification, error) {
	return d.notifications.ListNotifications(ctx, actingUser, limit)
}

// Preferences returns the caller's stored matrix, or the defaults if none
// was ever saved.
func (d *Dispatcher) Preferences(ctx context.Context, userID int64) (models.NotificationPreferences, error) {
	return d.preferencesFor(ctx, userID)
}

// UpdatePreferences merges a partial patch of preference keys into the
// stored matrix. Unknown keys reject the whole patch.
func (d *Dispatcher) UpdatePreferences(ctx context.Context, userID int64, patch map[string]bool) (models.NotificationPreferences, error) {
	prefs, err := d.preferencesFor(ctx, userID)
	if err != nil {
		return models.NotificationPreferences{}, err
	}

	for key, value := range patch {
		switch key {
		case "team_invitations":
			prefs.TeamInvitations = value
		case "member_added":
			prefs.MemberAdded = value
		case "new_messages":
			prefs.NewMessages = value
		case "mentions":
			prefs.Mentions = value
		case "document_shared":
			prefs.DocumentShared = value
		case "role_changes":
			prefs.RoleChanges = value
		case "email_enabled":
			prefs.EmailEnabled = value
		case "push_enabled":
			prefs.PushEnabled = value
		default:
			return models.NotificationPreferences{}, fmt.Errorf("unknown preference %q: %w", key, models.ErrInvalidInput)
		}
	}

	if err := d.preferences.UpsertPreferences(ctx, prefs); err != nil {
		return models.NotificationPreferences{}, err
	}
	return prefs, nil
}

func (d *Dispatcher) preferencesFor(ctx context.Context, userID int64) (models.NotificationPreferences, error) {
	prefs, err := d.preferences.GetPreferences(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return models.NotificationPreferences{}, err
	}
	return prefs, nil
}
