// Package invitations implements the invitation lifecycle: creation with
// authorization and rate limiting, and the forward-only transitions out of
// pending. Acceptance is the only path that creates a membership row.
package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PaddyOakTree/ai-project-planner/internal/authority"
	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/ratelimit"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

// DefaultTTL is how long an invitation stays actionable.
const DefaultTTL = 7 * 24 * time.Hour

// Action is an invitee or inviter decision on a pending invitation.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
)

// Notifier is the dispatcher surface the lifecycle manager emits events to.
type Notifier interface {
	Dispatch(ctx context.Context, recipientID int64, kind models.NotificationKind,
		title, message, actionRef string, payload map[string]string) error
}

// Broadcaster is the hub surface used for room-scoped side effects of a
// membership change.
type Broadcaster interface {
	PostMessage(ctx context.Context, teamID, senderID int64, content string, typ models.MessageType) (models.ChatMessage, error)
	Broadcast(teamID int64, ev models.Event)
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Teams       store.TeamStore
	Memberships store.MembershipStore
	Users       store.UserStore
	Invitations store.InvitationStore
	Authority   *authority.Authority
	Notifier    Notifier
	Broadcaster Broadcaster
	Limiter     ratelimit.Limiter
	Log         *logger.Logger
}

// Service is the invitation lifecycle manager.
type Service struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps, ttl: DefaultTTL, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create issues a pending invitation after the full gauntlet of checks:
// assignable role, inviter authority, pre-existing invitee account, no
// existing membership, no duplicate pending invitation, and the daily
// distinct-team rate cap.
func (s *Service) Create(ctx context.Context, teamID, inviterID int64, inviteeContact string, role models.Role, message string) (models.Invitation, error) {
	if !role.Assignable() {
		return models.Invitation{}, fmt.Errorf("role %q is not assignable: %w", role, models.ErrInvalidInput)
	}

	allowed, err := s.deps.Authority.CanAssignRole(ctx, teamID, inviterID, role)
	if err != nil {
		return models.Invitation{}, err
	}
	if !allowed {
		return models.Invitation{}, fmt.Errorf("user %d cannot assign %q in team %d: %w",
			inviterID, role, teamID, models.ErrPermissionDenied)
	}

	invitee, err := s.deps.Users.FindUserByContact(ctx, inviteeContact)
	if errors.Is(err, models.ErrNotFound) {
		// Invitees must pre-exist; accounts are never provisioned here.
		return models.Invitation{}, fmt.Errorf("no account for %q: %w", inviteeContact, models.ErrInvalidInput)
	}
	if err != nil {
		return models.Invitation{}, err
	}

	if _, err := s.deps.Memberships.GetMembership(ctx, teamID, invitee.ID); err == nil {
		return models.Invitation{}, fmt.Errorf("user %d in team %d: %w", invitee.ID, teamID, models.ErrAlreadyMember)
	} else if !errors.Is(err, models.ErrNotFound) {
		return models.Invitation{}, err
	}

	now := s.now().UTC()
	if existing, err := s.deps.Invitations.FindPendingInvitation(ctx, teamID, invitee.ID); err == nil {
		if !existing.Overdue(now) {
			return models.Invitation{}, fmt.Errorf("invitation %s: %w", existing.ID, models.ErrDuplicatePending)
		}
		// The old pending invitation lapsed; flip it and carry on.
		s.expire(ctx, existing.ID)
	} else if !errors.Is(err, models.ErrNotFound) {
		return models.Invitation{}, err
	}

	allowed, err = s.deps.Limiter.Reserve(ctx, inviterID, teamID, ratelimit.Day(now))
	if err != nil {
		return models.Invitation{}, err
	}
	if !allowed {
		return models.Invitation{}, fmt.Errorf("user %d reached the daily team cap: %w", inviterID, models.ErrRateLimited)
	}

	inv := models.Invitation{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		InviterID:    inviterID,
		InviteeID:    invitee.ID,
		InviteeEmail: invitee.Email,
		Role:         role,
		Message:      message,
		Status:       models.InvitationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.deps.Invitations.InsertInvitation(ctx, &inv); err != nil {
		return models.Invitation{}, err
	}

	s.notify(ctx, invitee.ID, models.NotifyTeamInvitation,
		"Team invitation",
		fmt.Sprintf("You have been invited to join a team as %s", role),
		"invitation:"+inv.ID,
		map[string]string{"invitation_id": inv.ID, "team_id": fmt.Sprintf("%d", teamID), "role": string(role)})

	s.deps.Log.Info("invitation created",
		"invitation_id", inv.ID, "team_id", teamID, "inviter", inviterID, "invitee", invitee.ID)
	return inv, nil
}

// Resolve applies an accept, reject, or cancel decision to a pending
// invitation. The transition is a conditional update keyed on the pending
// status, so two racing resolutions cannot both succeed; the loser of the
// race sees the terminal state. An overdue invitation is eagerly flipped to
// expired and the requested action fails.
func (s *Service) Resolve(ctx context.Context, invitationID string, actingUserID int64, action Action) (models.Invitation, error) {
	inv, err := s.deps.Invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return models.Invitation{}, err
	}

	if err := checkActor(inv, actingUserID, action); err != nil {
		return models.Invitation{}, err
	}
	if inv.Status != models.InvitationPending {
		return models.Invitation{}, terminalErr(inv.Status)
	}
	if inv.Overdue(s.now().UTC()) {
		s.expire(ctx, inv.ID)
		return models.Invitation{}, fmt.Errorf("invitation %s: %w", inv.ID, models.ErrExpired)
	}

	next := map[Action]models.InvitationStatus{
		ActionAccept: models.InvitationAccepted,
		ActionReject: models.InvitationRejected,
		ActionCancel: models.InvitationCancelled,
	}[action]
	if next == "" {
		return models.Invitation{}, fmt.Errorf("unknown action %q: %w", action, models.ErrInvalidInput)
	}

	err = s.deps.Invitations.UpdateInvitationStatus(ctx, inv.ID, models.InvitationPending, next)
	if errors.Is(err, models.ErrConflict) {
		// Lost a race. Re-read once to report what actually happened
		// rather than surfacing the conflict.
		current, rerr := s.deps.Invitations.GetInvitation(ctx, inv.ID)
		if rerr != nil {
			return models.Invitation{}, rerr
		}
		if current.Status != models.InvitationPending {
			return models.Invitation{}, terminalErr(current.Status)
		}
		// Still pending after a spurious conflict; one more attempt.
		err = s.deps.Invitations.UpdateInvitationStatus(ctx, inv.ID, models.InvitationPending, next)
		if errors.Is(err, models.ErrConflict) {
			return models.Invitation{}, fmt.Errorf("invitation %s: %w", inv.ID, models.ErrConflict)
		}
	}
	if err != nil {
		return models.Invitation{}, err
	}

	inv.Status = next
	inv.UpdatedAt = s.now().UTC()

	switch action {
	case ActionAccept:
		if err := s.commitAcceptance(ctx, inv); err != nil {
			return models.Invitation{}, err
		}
	case ActionReject:
		s.notify(ctx, inv.InviterID, models.NotifyTeamInvitation,
			"Invitation declined",
			fmt.Sprintf("Your invitation to %s was declined", inv.InviteeEmail),
			"invitation:"+inv.ID, nil)
	case ActionCancel:
		s.notify(ctx, inv.InviteeID, models.NotifyTeamInvitation,
			"Invitation withdrawn",
			"An invitation sent to you was withdrawn",
			"invitation:"+inv.ID, nil)
	}

	s.deps.Log.Info("invitation resolved",
		"invitation_id", inv.ID, "action", action, "acting_user", actingUserID)
	return inv, nil
}

// Delete hard-removes an invitation in any state. Inviter only.
func (s *Service) Delete(ctx context.Context, invitationID string, actingUserID int64) error {
	inv, err := s.deps.Invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.InviterID != actingUserID {
		return fmt.Errorf("invitation %s: %w", invitationID, models.ErrPermissionDenied)
	}
	return s.deps.Invitations.DeleteInvitation(ctx, invitationID)
}

// ListPendingFor returns the user's actionable invitations. Overdue ones
// are flipped to expired on the way through and omitted.
func (s *Service) ListPendingFor(ctx context.Context, userID int64) ([]models.Invitation, error) {
	invs, err := s.deps.Invitations.ListPendingForInvitee(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	live := invs[:0]
	for _, inv := range invs {
		if inv.Overdue(now) {
			s.expire(ctx, inv.ID)
			continue
		}
		live = append(live, inv)
	}
	return live, nil
}

// commitAcceptance records the membership and fans out the side effects of
// a completed invitation: member-joined to the room, a system chat line,
// and a member_added notification to the inviter.
func (s *Service) commitAcceptance(ctx context.Context, inv models.Invitation) error {
	joinedAt := s.now().UTC()
	err := s.deps.Memberships.InsertMembership(ctx, models.Membership{
		TeamID:   inv.TeamID,
		UserID:   inv.InviteeID,
		Role:     inv.Role,
		JoinedAt: joinedAt,
	})
	if err != nil {
		return err
	}

	name := inv.InviteeEmail
	if user, uerr := s.deps.Users.GetUser(ctx, inv.InviteeID); uerr == nil && user.DisplayName != "" {
		name = user.DisplayName
	}

	s.deps.Broadcaster.Broadcast(inv.TeamID, models.Event{
		Event: models.EventMemberJoined,
		Payload: models.MemberPayload{
			TeamID:      inv.TeamID,
			UserID:      inv.InviteeID,
			DisplayName: name,
			At:          joinedAt,
		},
	})
	if _, perr := s.deps.Broadcaster.PostMessage(ctx, inv.TeamID, models.SystemSenderID,
		fmt.Sprintf("%s joined the team", name), models.MessageSystem); perr != nil {
		s.deps.Log.Warn("failed to post join message", "team_id", inv.TeamID, "error", perr)
	}

	s.notify(ctx, inv.InviterID, models.NotifyMemberAdded,
		"Member joined",
		fmt.Sprintf("%s accepted your invitation", name),
		fmt.Sprintf("team:%d", inv.TeamID),
		map[string]string{"team_id": fmt.Sprintf("%d", inv.TeamID), "user_id": fmt.Sprintf("%d", inv.InviteeID)})
	return nil
}

// expire lazily applies the pending -> expired transition. A conflict means
// someone else already moved the invitation, which is fine.
func (s *Service) expire(ctx context.Context, id string) {
	err := s.deps.Invitations.UpdateInvitationStatus(ctx, id, models.InvitationPending, models.InvitationExpired)
	if err != nil && !errors.Is(err, models.ErrConflict) {
		s.deps.Log.Warn("failed to expire invitation", "invitation_id", id, "error", err)
	}
}

// notify is best-effort: a dispatch failure never fails the operation that
// triggered it.
func (s *Service) notify(ctx context.Context, recipientID int64, kind models.NotificationKind,
	title, message, actionRef string, payload map[string]string) {
	if err := s.deps.Notifier.Dispatch(ctx, recipientID, kind, title, message, actionRef, payload); err != nil {
		s.deps.Log.Warn("notification dispatch failed", "recipient", recipientID, "kind", kind, "error", err)
	}
}

func checkActor(inv models.Invitation, actingUserID int64, action Action) error {
	var allowed bool
	switch action {
	case ActionAccept, ActionReject:
		allowed = actingUserID == inv.InviteeID
	case ActionCancel:
		allowed = actingUserID == inv.InviterID
	default:
		return fmt.Errorf("unknown action %q: %w", action, models.ErrInvalidInput)
	}
	if !allowed {
		return fmt.Errorf("user %d may not %s invitation %s: %w", actingUserID, action, inv.ID, models.ErrPermissionDenied)
	}
	return nil
}

func terminalErr(status models.InvitationStatus) error {
	if status == models.InvitationExpired {
		return fmt.Errorf("invitation is %s: %w", status, models.ErrExpired)
	}
	return fmt.Errorf("invitation is %s: %w", status, models.ErrAlreadyResolved)
}
