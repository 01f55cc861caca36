package invitations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PaddyOakTree/ai-project-planner/internal/authority"
	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/ratelimit"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

type dispatchCall struct {
	recipientID int64
	kind        models.NotificationKind
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (n *fakeNotifier) Dispatch(_ context.Context, recipientID int64, kind models.NotificationKind,
	_, _, _ string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, dispatchCall{recipientID: recipientID, kind: kind})
	return nil
}

func (n *fakeNotifier) sentTo(recipientID int64, kind models.NotificationKind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.calls {
		if c.recipientID == recipientID && c.kind == kind {
			return true
		}
	}
	return false
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
	posts  []models.ChatMessage
}

func (b *fakeBroadcaster) PostMessage(_ context.Context, teamID, senderID int64, content string, typ models.MessageType) (models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := models.ChatMessage{TeamID: teamID, SenderID: senderID, Content: content, Type: typ}
	b.posts = append(b.posts, msg)
	return msg, nil
}

func (b *fakeBroadcaster) Broadcast(_ int64, ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

type fixture struct {
	st          *store.Memory
	svc         *Service
	notifier    *fakeNotifier
	broadcaster *fakeBroadcaster
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:          store.NewMemory(),
		notifier:    &fakeNotifier{},
		broadcaster: &fakeBroadcaster{},
		now:         time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Teams:       f.st,
		Memberships: f.st,
		Users:       f.st,
		Invitations: f.st,
		Authority:   authority.New(f.st, f.st),
		Notifier:    f.notifier,
		Broadcaster: f.broadcaster,
		Limiter:     ratelimit.NewMemory(),
		Log:         logger.New("invitations-test"),
	}).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) user(t *testing.T, email, name string) int64 {
	t.Helper()
	u := &models.User{Email: email, DisplayName: name}
	require.NoError(t, f.st.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) team(t *testing.T, ownerID int64) int64 {
	t.Helper()
	team := &models.Team{Name: "research", OwnerID: ownerID, CreatedAt: f.now}
	require.NoError(t, f.st.CreateTeam(context.Background(), team))
	return team.ID
}

func (f *fixture) member(t *testing.T, teamID, userID int64, role models.Role) {
	t.Helper()
	require.NoError(t, f.st.InsertMembership(context.Background(), models.Membership{
		TeamID: teamID, UserID: userID, Role: role, JoinedAt: f.now,
	}))
}

func TestCreateInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	invitee := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "join us")
	require.NoError(t, err)
	require.NotEmpty(t, inv.ID)
	require.Equal(t, models.InvitationPending, inv.Status)
	require.Equal(t, invitee, inv.InviteeID)
	require.Equal(t, f.now.Add(DefaultTTL), inv.ExpiresAt)

	require.True(t, f.notifier.sentTo(invitee, models.NotifyTeamInvitation))
	// No membership until acceptance.
	require.Zero(t, f.st.MembershipCount(teamID, invitee))
}

func TestCreateRejectsUnassignableRole(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", "Owner")
	f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	for _, role := range []models.Role{models.RoleOwner, "superuser", ""} {
		_, err := f.svc.Create(context.Background(), teamID, owner, "dana@example.com", role, "")
		require.ErrorIs(t, err, models.ErrInvalidInput, "role %q", role)
	}
}

func TestCreatePermissionDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	editor := f.user(t, "ed@example.com", "Ed")
	outsider := f.user(t, "out@example.com", "Out")
	f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)
	f.member(t, teamID, editor, models.RoleEditor)

	_, err := f.svc.Create(ctx, teamID, editor, "dana@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = f.svc.Create(ctx, teamID, outsider, "dana@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestCreateAdminCannotGrantAdmin(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", "Owner")
	admin := f.user(t, "admin@example.com", "Admin")
	f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)
	f.member(t, teamID, admin, models.RoleAdmin)

	_, err := f.svc.Create(context.Background(), teamID, admin, "dana@example.com", models.RoleAdmin, "")
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = f.svc.Create(context.Background(), teamID, admin, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)
}

func TestCreateUnknownInvitee(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", "Owner")
	teamID := f.team(t, owner)

	_, err := f.svc.Create(context.Background(), teamID, owner, "nobody@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreateAlreadyMember(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)
	f.member(t, teamID, dana, models.RoleViewer)

	_, err := f.svc.Create(context.Background(), teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.ErrorIs(t, err, models.ErrAlreadyMember)
}

func TestCreateDuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	_, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrDuplicatePending)
}

// blindPendingLookup hides pending rows from the read-side duplicate check,
// standing in for a rival create committing between this one's check and its
// insert.
type blindPendingLookup struct {
	store.InvitationStore
}

func (b *blindPendingLookup) FindPendingInvitation(context.Context, int64, int64) (models.Invitation, error) {
	return models.Invitation{}, models.ErrNotFound
}

func TestCreateDuplicatePendingPastReadCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	f.svc.deps.Invitations = &blindPendingLookup{InvitationStore: f.st}

	_, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	// The duplicate check sees nothing, but the conditional insert still
	// rejects a second pending row for the pair.
	_, err = f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrDuplicatePending)

	pending, err := f.st.ListPendingForInvitee(ctx, dana)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestCreateReplacesLapsedPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	first, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	f.now = f.now.Add(DefaultTTL + time.Hour)

	second, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	// The lapsed one was flipped, not left pending.
	old, err := f.st.GetInvitation(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, old.Status)

	pending, err := f.svc.ListPendingFor(ctx, dana)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)
}

func TestCreateRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	f.user(t, "a@example.com", "A")
	f.user(t, "b@example.com", "B")
	f.user(t, "c@example.com", "C")
	teamA := f.team(t, owner)
	teamB := f.team(t, owner)
	teamC := f.team(t, owner)

	_, err := f.svc.Create(ctx, teamA, owner, "a@example.com", models.RoleViewer, "")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, teamB, owner, "b@example.com", models.RoleViewer, "")
	require.NoError(t, err)

	// A third distinct team on the same day is over the cap.
	_, err = f.svc.Create(ctx, teamC, owner, "c@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrRateLimited)

	// An already-counted team stays open.
	_, err = f.svc.Create(ctx, teamA, owner, "b@example.com", models.RoleViewer, "")
	require.NoError(t, err)

	// And the cap resets at the UTC day boundary.
	f.now = f.now.Add(24 * time.Hour)
	_, err = f.svc.Create(ctx, teamC, owner, "c@example.com", models.RoleViewer, "")
	require.NoError(t, err)
}

func TestResolveAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, inv.ID, dana, ActionAccept)
	require.NoError(t, err)
	require.Equal(t, models.InvitationAccepted, resolved.Status)

	// Acceptance is the only path to a membership row, and exactly one.
	require.Equal(t, 1, f.st.MembershipCount(teamID, dana))
	role, err := authority.New(f.st, f.st).RoleOf(ctx, teamID, dana)
	require.NoError(t, err)
	require.Equal(t, models.RoleEditor, role)

	// Room side effects: member-joined event plus a system chat line.
	require.Len(t, f.broadcaster.events, 1)
	require.Equal(t, models.EventMemberJoined, f.broadcaster.events[0].Event)
	require.Len(t, f.broadcaster.posts, 1)
	require.Equal(t, models.MessageSystem, f.broadcaster.posts[0].Type)
	require.Equal(t, models.SystemSenderID, f.broadcaster.posts[0].SenderID)

	require.True(t, f.notifier.sentTo(owner, models.NotifyMemberAdded))

	// Inviting the new member again fails on membership, not on duplicates.
	_, err = f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleViewer, "")
	require.ErrorIs(t, err, models.ErrAlreadyMember)
}

func TestResolveReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, inv.ID, dana, ActionReject)
	require.NoError(t, err)
	require.Equal(t, models.InvitationRejected, resolved.Status)

	require.Zero(t, f.st.MembershipCount(teamID, dana))
	require.Empty(t, f.broadcaster.events)
	require.True(t, f.notifier.sentTo(owner, models.NotifyTeamInvitation))
}

func TestResolveCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, inv.ID, owner, ActionCancel)
	require.NoError(t, err)
	require.Equal(t, models.InvitationCancelled, resolved.Status)
	require.Zero(t, f.st.MembershipCount(teamID, dana))
	require.True(t, f.notifier.sentTo(dana, models.NotifyTeamInvitation))

	// A late accept loses to the cancellation.
	_, err = f.svc.Resolve(ctx, inv.ID, dana, ActionAccept)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestResolveActorChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	other := f.user(t, "other@example.com", "Other")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	// Only the invitee may accept or reject.
	_, err = f.svc.Resolve(ctx, inv.ID, owner, ActionAccept)
	require.ErrorIs(t, err, models.ErrPermissionDenied)
	_, err = f.svc.Resolve(ctx, inv.ID, other, ActionReject)
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	// Only the inviter may cancel.
	_, err = f.svc.Resolve(ctx, inv.ID, dana, ActionCancel)
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	// The failed attempts changed nothing.
	current, err := f.st.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationPending, current.Status)
}

func TestResolveAlreadyResolved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, inv.ID, dana, ActionReject)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, inv.ID, dana, ActionAccept)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
	require.Zero(t, f.st.MembershipCount(teamID, dana))
}

func TestResolveExpiredEagerFlip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	f.now = f.now.Add(DefaultTTL + time.Minute)

	_, err = f.svc.Resolve(ctx, inv.ID, dana, ActionAccept)
	require.ErrorIs(t, err, models.ErrExpired)

	current, err := f.st.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, current.Status)
	require.Zero(t, f.st.MembershipCount(teamID, dana))
}

func TestResolveUnknownInvitation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Resolve(context.Background(), "no-such-id", 1, ActionAccept)
	require.ErrorIs(t, err, models.ErrNotFound)
}

// racingInvitations wraps the in-memory invitation store and simulates a
// rival writer on the first conditional status update.
type racingInvitations struct {
	store.InvitationStore
	rivalStatus models.InvitationStatus
	fired       bool
}

func (r *racingInvitations) UpdateInvitationStatus(ctx context.Context, id string, expected, next models.InvitationStatus) error {
	if !r.fired {
		r.fired = true
		if r.rivalStatus != "" {
			if err := r.InvitationStore.UpdateInvitationStatus(ctx, id, expected, r.rivalStatus); err != nil {
				return err
			}
		}
		return models.ErrConflict
	}
	return r.InvitationStore.UpdateInvitationStatus(ctx, id, expected, next)
}

func TestResolveRetriesSpuriousConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	f.svc.deps.Invitations = &racingInvitations{InvitationStore: f.st}

	resolved, err := f.svc.Resolve(ctx, inv.ID, dana, ActionAccept)
	require.NoError(t, err)
	require.Equal(t, models.InvitationAccepted, resolved.Status)
	require.Equal(t, 1, f.st.MembershipCount(teamID, dana))
}

func TestResolveLostRaceReportsTerminalState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	f.svc.deps.Invitations = &racingInvitations{InvitationStore: f.st, rivalStatus: models.InvitationRejected}

	_, err = f.svc.Resolve(ctx, inv.ID, dana, ActionAccept)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
	require.Zero(t, f.st.MembershipCount(teamID, dana))
}

func TestDeleteInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamID := f.team(t, owner)

	inv, err := f.svc.Create(ctx, teamID, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, inv.ID, dana)
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	require.NoError(t, f.svc.Delete(ctx, inv.ID, owner))
	_, err = f.st.GetInvitation(ctx, inv.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestListPendingForFlipsOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", "Owner")
	dana := f.user(t, "dana@example.com", "Dana")
	teamA := f.team(t, owner)
	teamB := f.team(t, owner)

	stale, err := f.svc.Create(ctx, teamA, owner, "dana@example.com", models.RoleEditor, "")
	require.NoError(t, err)

	f.now = f.now.Add(DefaultTTL - time.Hour)
	fresh, err := f.svc.Create(ctx, teamB, owner, "dana@example.com", models.RoleViewer, "")
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)

	pending, err := f.svc.ListPendingFor(ctx, dana)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, fresh.ID, pending[0].ID)

	flipped, err := f.st.GetInvitation(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, flipped.Status)
}
