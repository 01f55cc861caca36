package store

import (
	"context"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

func (s *MySQL) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `INSERT INTO messages (team_id, sender_id, content, type, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		msg.TeamID, msg.SenderID, msg.Content, msg.Type, msg.CreatedAt)
	if err != nil {
		return storeErr("append message", err)
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return storeErr("append message", err)
	}
	return nil
}

// ListRecentMessages returns up to limit messages in chronological order.
func (s *MySQL) ListRecentMessages(ctx context.Context, teamID int64, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, team_id, sender_id, content, type, created_at
	          FROM (SELECT id, team_id, sender_id, content, type, created_at
	                FROM messages WHERE team_id = ?
	                ORDER BY id DESC LIMIT ?) recent
	          ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, teamID, limit)
	if err != nil {
		return nil, storeErr("list recent messages", err)
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.TeamID, &m.SenderID, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			return nil, storeErr("scan message", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list recent messages", err)
	}
	return msgs, nil
}
