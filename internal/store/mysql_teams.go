package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

func (s *MySQL) GetTeam(ctx context.Context, id int64) (models.Team, error) {
	var t models.Team
	query := `SELECT id, name, category, is_public, owner_id, created_at, updated_at
	          FROM teams WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Category, &t.IsPublic, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Team{}, models.ErrNotFound
	}
	if err != nil {
		return models.Team{}, storeErr("get team", err)
	}
	return t, nil
}

// CreateTeam inserts the team and its owner membership in one transaction.
func (s *MySQL) CreateTeam(ctx context.Context, team *models.Team) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("create team", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO teams (name, category, is_public, owner_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, query,
		team.Name, team.Category, team.IsPublic, team.OwnerID, team.CreatedAt, team.UpdatedAt)
	if err != nil {
		return storeErr("create team", err)
	}
	team.ID, err = res.LastInsertId()
	if err != nil {
		return storeErr("create team", err)
	}

	query = `INSERT INTO memberships (team_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, team.ID, team.OwnerID, models.RoleOwner, team.CreatedAt); err != nil {
		return storeErr("create owner membership", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("create team", err)
	}
	return nil
}

func (s *MySQL) UpdateTeam(ctx context.Context, team *models.Team) error {
	query := `UPDATE teams SET name = ?, category = ?, is_public = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		team.Name, team.Category, team.IsPublic, team.UpdatedAt, team.ID)
	if err != nil {
		return storeErr("update team", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MySQL) ListTeamsForUser(ctx context.Context, userID int64) ([]models.Team, error) {
	query := `SELECT t.id, t.name, t.category, t.is_public, t.owner_id, t.created_at, t.updated_at
	          FROM teams t
	          JOIN memberships m ON m.team_id = t.id
	          WHERE m.user_id = ?
	          ORDER BY t.created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeErr("list teams", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.IsPublic, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, storeErr("scan team", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list teams", err)
	}
	return teams, nil
}

func (s *MySQL) GetMembership(ctx context.Context, teamID, userID int64) (models.Membership, error) {
	var m models.Membership
	query := `SELECT team_id, user_id, role, joined_at FROM memberships
	          WHERE team_id = ? AND user_id = ?`
	err := s.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, models.ErrNotFound
	}
	if err != nil {
		return models.Membership{}, storeErr("get membership", err)
	}
	return m, nil
}

func (s *MySQL) InsertMembership(ctx context.Context, m models.Membership) error {
	query := `INSERT INTO memberships (team_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, m.TeamID, m.UserID, m.Role, m.JoinedAt); err != nil {
		return storeErr("insert membership", err)
	}
	return nil
}

func (s *MySQL) DeleteMembership(ctx context.Context, teamID, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if err != nil {
		return storeErr("delete membership", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MySQL) ListMembers(ctx context.Context, teamID int64) ([]models.Member, error) {
	query := `SELECT m.team_id, m.user_id, m.role, m.joined_at, u.email, u.display_name
	          FROM memberships m
	          JOIN users u ON u.id = m.user_id
	          WHERE m.team_id = ?
	          ORDER BY m.joined_at ASC`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt, &m.Email, &m.DisplayName); err != nil {
			return nil, storeErr("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list members", err)
	}
	return members, nil
}
