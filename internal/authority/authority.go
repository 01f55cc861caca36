// Package authority answers role questions for a team from persisted
// membership state. It is side-effect free: no-membership is reported as
// RoleNone / false, never as an error.
package authority

import (
	"context"
	"errors"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

type Authority struct {
	teams       store.TeamStore
	memberships store.MembershipStore
}

func New(teams store.TeamStore, memberships store.MembershipStore) *Authority {
	return &Authority{teams: teams, memberships: memberships}
}

// RoleOf resolves userID's role within teamID; RoleNone for non-members.
func (a *Authority) RoleOf(ctx context.Context, teamID, userID int64) (models.Role, error) {
	m, err := a.memberships.GetMembership(ctx, teamID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.RoleNone, nil
	}
	if err != nil {
		return models.RoleNone, err
	}
	return m.Role, nil
}

// CanAssignRole reports whether actingUser may hand out target within the
// team: the owner always can; otherwise the actor must hold at least admin
// and outrank the target role.
func (a *Authority) CanAssignRole(ctx context.Context, teamID, actingUser int64, target models.Role) (bool, error) {
	team, err := a.teams.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if team.OwnerID == actingUser {
		return true, nil
	}

	role, err := a.RoleOf(ctx, teamID, actingUser)
	if err != nil {
		return false, err
	}
	return role.Rank() >= models.RoleAdmin.Rank() && role.Rank() > target.Rank(), nil
}

// CanRemoveMember reports whether actingUser may remove targetUser from the
// team. Members may always remove themselves, except the owner, who cannot
// leave. Otherwise the actor must hold at least admin and outrank the target.
func (a *Authority) CanRemoveMember(ctx context.Context, teamID, actingUser, targetUser int64) (bool, error) {
	team, err := a.teams.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if targetUser == team.OwnerID {
		return false, nil
	}
	if actingUser == targetUser {
		return true, nil
	}
	if actingUser == team.OwnerID {
		return true, nil
	}

	actorRole, err := a.RoleOf(ctx, teamID, actingUser)
	if err != nil {
		return false, err
	}
	targetRole, err := a.RoleOf(ctx, teamID, targetUser)
	if err != nil {
		return false, err
	}
	return actorRole.Rank() >= models.RoleAdmin.Rank() && actorRole.Rank() > targetRole.Rank(), nil
}

// IsMember reports whether userID has any membership in teamID.
func (a *Authority) IsMember(ctx context.Context, teamID, userID int64) (bool, error) {
	role, err := a.RoleOf(ctx, teamID, userID)
	if err != nil {
		return false, err
	}
	return role != models.RoleNone, nil
}
