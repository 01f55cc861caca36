package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

const invitationColumns = `id, team_id, inviter_id, invitee_id, invitee_email,
	role, message, status, created_at, updated_at, expires_at`

func scanInvitation(row interface{ Scan(...interface{}) error }) (models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeID, &inv.InviteeEmail,
		&inv.Role, &inv.Message, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt, &inv.ExpiresAt)
	return inv, err
}

// InsertInvitation is conditional the same way UpdateInvitationStatus is:
// the row only lands if no pending invitation exists for the (team, invitee)
// pair, so two racing creates cannot both persist one.
func (s *MySQL) InsertInvitation(ctx context.Context, inv *models.Invitation) error {
	query := `INSERT INTO invitations (` + invitationColumns + `)
	          SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ? FROM DUAL
	          WHERE NOT EXISTS (
	              SELECT 1 FROM invitations
	              WHERE team_id = ? AND invitee_id = ? AND status = ?)`
	res, err := s.db.ExecContext(ctx, query,
		inv.ID, inv.TeamID, inv.InviterID, inv.InviteeID, inv.InviteeEmail,
		inv.Role, inv.Message, inv.Status, inv.CreatedAt, inv.UpdatedAt, inv.ExpiresAt,
		inv.TeamID, inv.InviteeID, models.InvitationPending)
	if err != nil {
		return storeErr("insert invitation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDuplicatePending
	}
	return nil
}

func (s *MySQL) GetInvitation(ctx context.Context, id string) (models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = ?`
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, models.ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, storeErr("get invitation", err)
	}
	return inv, nil
}

// UpdateInvitationStatus is the compare-and-swap transition: the UPDATE is
// conditioned on the expected status, and zero affected rows means the
// transition lost a race (or the row is gone).
func (s *MySQL) UpdateInvitationStatus(ctx context.Context, id string, expected, next models.InvitationStatus) error {
	query := `UPDATE invitations SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return storeErr("update invitation status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConflict
	}
	return nil
}

func (s *MySQL) FindPendingInvitation(ctx context.Context, teamID, inviteeID int64) (models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
	          WHERE team_id = ? AND invitee_id = ? AND status = ?`
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, teamID, inviteeID, models.InvitationPending))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, models.ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, storeErr("find pending invitation", err)
	}
	return inv, nil
}

func (s *MySQL) ListPendingForInvitee(ctx context.Context, inviteeID int64) ([]models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
	          WHERE invitee_id = ? AND status = ?
	          ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, inviteeID, models.InvitationPending)
	if err != nil {
		return nil, storeErr("list pending invitations", err)
	}
	defer rows.Close()

	var invs []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, storeErr("scan invitation", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list pending invitations", err)
	}
	return invs, nil
}

func (s *MySQL) DeleteInvitation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete invitation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
