package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

func seedTeam(t *testing.T, st *store.Memory) models.Team {
	t.Helper()
	ctx := context.Background()

	owner := models.User{Email: "owner@example.com", DisplayName: "Owner"}
	require.NoError(t, st.CreateUser(ctx, &owner))

	team := models.Team{Name: "research", OwnerID: owner.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateTeam(ctx, &team))
	return team
}

func addMember(t *testing.T, st *store.Memory, teamID int64, email string, role models.Role) models.User {
	t.Helper()
	ctx := context.Background()

	user := models.User{Email: email, DisplayName: email}
	require.NoError(t, st.CreateUser(ctx, &user))
	require.NoError(t, st.InsertMembership(ctx, models.Membership{
		TeamID:   teamID,
		UserID:   user.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}))
	return user
}

func TestRoleOf(t *testing.T) {
	st := store.NewMemory()
	team := seedTeam(t, st)
	editor := addMember(t, st, team.ID, "editor@example.com", models.RoleEditor)
	auth := New(st, st)
	ctx := context.Background()

	role, err := auth.RoleOf(ctx, team.ID, team.OwnerID)
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, role)

	role, err = auth.RoleOf(ctx, team.ID, editor.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleEditor, role)

	// No membership is not an error.
	role, err = auth.RoleOf(ctx, team.ID, 9999)
	require.NoError(t, err)
	require.Equal(t, models.RoleNone, role)
}

func TestCanAssignRole(t *testing.T) {
	st := store.NewMemory()
	team := seedTeam(t, st)
	admin := addMember(t, st, team.ID, "admin@example.com", models.RoleAdmin)
	editor := addMember(t, st, team.ID, "editor@example.com", models.RoleEditor)
	auth := New(st, st)
	ctx := context.Background()

	cases := []struct {
		name   string
		actor  int64
		target models.Role
		want   bool
	}{
		{"owner assigns admin", team.OwnerID, models.RoleAdmin, true},
		{"owner assigns viewer", team.OwnerID, models.RoleViewer, true},
		{"admin assigns editor", admin.ID, models.RoleEditor, true},
		{"admin assigns viewer", admin.ID, models.RoleViewer, true},
		{"admin cannot assign admin", admin.ID, models.RoleAdmin, false},
		{"editor cannot assign viewer", editor.ID, models.RoleViewer, false},
		{"non-member cannot assign", 9999, models.RoleViewer, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.CanAssignRole(ctx, team.ID, tc.actor, tc.target)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCanAssignRoleUnknownTeam(t *testing.T) {
	st := store.NewMemory()
	auth := New(st, st)

	ok, err := auth.CanAssignRole(context.Background(), 42, 1, models.RoleViewer)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanRemoveMember(t *testing.T) {
	st := store.NewMemory()
	team := seedTeam(t, st)
	admin := addMember(t, st, team.ID, "admin@example.com", models.RoleAdmin)
	editor := addMember(t, st, team.ID, "editor@example.com", models.RoleEditor)
	auth := New(st, st)
	ctx := context.Background()

	cases := []struct {
		name          string
		actor, target int64
		want          bool
	}{
		{"owner removes admin", team.OwnerID, admin.ID, true},
		{"admin removes editor", admin.ID, editor.ID, true},
		{"editor cannot remove admin", editor.ID, admin.ID, false},
		{"editor leaves on their own", editor.ID, editor.ID, true},
		{"owner cannot leave", team.OwnerID, team.OwnerID, false},
		{"admin cannot remove owner", admin.ID, team.OwnerID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.CanRemoveMember(ctx, team.ID, tc.actor, tc.target)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestIsMember(t *testing.T) {
	st := store.NewMemory()
	team := seedTeam(t, st)
	viewer := addMember(t, st, team.ID, "viewer@example.com", models.RoleViewer)
	auth := New(st, st)
	ctx := context.Background()

	ok, err := auth.IsMember(ctx, team.ID, viewer.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = auth.IsMember(ctx, team.ID, 9999)
	require.NoError(t, err)
	require.False(t, ok)
}
