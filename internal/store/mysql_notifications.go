package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

func (s *MySQL) InsertNotification(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return storeErr("encode notification payload", err)
	}
	query := `INSERT INTO notifications
	          (recipient_id, kind, title, message, is_read, action_ref, payload, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		n.RecipientID, n.Kind, n.Title, n.Message, n.Read, n.ActionRef, payload, n.CreatedAt)
	if err != nil {
		return storeErr("insert notification", err)
	}
	n.ID, err = res.LastInsertId()
	if err != nil {
		return storeErr("insert notification", err)
	}
	return nil
}

func (s *MySQL) GetNotification(ctx context.Context, id int64) (models.Notification, error) {
	var n models.Notification
	var payload []byte
	query := `SELECT id, recipient_id, kind, title, message, is_read, action_ref, payload, created_at
	          FROM notifications WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Message, &n.Read, &n.ActionRef, &payload, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, models.ErrNotFound
	}
	if err != nil {
		return models.Notification{}, storeErr("get notification", err)
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &n.Payload)
	}
	return n, nil
}

func (s *MySQL) MarkNotificationRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	if err != nil {
		return storeErr("mark notification read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MySQL) MarkAllNotificationsRead(ctx context.Context, recipientID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = ? AND is_read = FALSE`, recipientID)
	if err != nil {
		return storeErr("mark all notifications read", err)
	}
	return nil
}

func (s *MySQL) DeleteNotification(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete notification", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MySQL) DeleteReadNotifications(ctx context.Context, recipientID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE recipient_id = ? AND is_read = TRUE`, recipientID)
	if err != nil {
		return storeErr("delete read notifications", err)
	}
	return nil
}

func (s *MySQL) ListNotifications(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, recipient_id, kind, title, message, is_read, action_ref, payload, created_at
	          FROM notifications WHERE recipient_id = ?
	          ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, storeErr("list notifications", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Message,
			&n.Read, &n.ActionRef, &payload, &n.CreatedAt); err != nil {
			return nil, storeErr("scan notification", err)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &n.Payload)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list notifications", err)
	}
	return out, nil
}

func (s *MySQL) GetPreferences(ctx context.Context, userID int64) (models.NotificationPreferences, error) {
	var p models.NotificationPreferences
	query := `SELECT user_id, team_invitations, member_added, new_messages, mentions,
	                 document_shared, role_changes, email_enabled, push_enabled
	          FROM notification_preferences WHERE user_id = ?`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.TeamInvitations, &p.MemberAdded, &p.NewMessages, &p.Mentions,
		&p.DocumentShared, &p.RoleChanges, &p.EmailEnabled, &p.PushEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotificationPreferences{}, models.ErrNotFound
	}
	if err != nil {
		return models.NotificationPreferences{}, storeErr("get preferences", err)
	}
	return p, nil
}

func (s *MySQL) UpsertPreferences(ctx context.Context, p models.NotificationPreferences) error {
	query := `INSERT INTO notification_preferences
	          (user_id, team_invitations, member_added, new_messages, mentions,
	           document_shared, role_changes, email_enabled, push_enabled)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON DUPLICATE KEY UPDATE
	            team_invitations = VALUES(team_invitations),
	            member_added = VALUES(member_added),
	            new_messages = VALUES(new_messages),
	            mentions = VALUES(mentions),
	            document_shared = VALUES(document_shared),
	            role_changes = VALUES(role_changes),
	            email_enabled = VALUES(email_enabled),
	            push_enabled = VALUES(push_enabled)`
	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.TeamInvitations, p.MemberAdded, p.NewMessages, p.Mentions,
		p.DocumentShared, p.RoleChanges, p.EmailEnabled, p.PushEnabled)
	if err != nil {
		return storeErr("upsert preferences", err)
	}
	return nil
}
