package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

// Memory implements every store contract in process memory. It backs the
// engine's tests; the MySQL implementation is the production store.
type Memory struct {
	mu sync.Mutex

	teams       map[int64]models.Team
	memberships map[string]models.Membership
	users       map[int64]models.User
	invitations map[string]models.Invitation
	messages    map[int64][]models.ChatMessage
	notifs      map[int64]models.Notification
	prefs       map[int64]models.NotificationPreferences

	nextTeamID  int64
	nextUserID  int64
	nextMsgID   int64
	nextNotifID int64
}

func NewMemory() *Memory {
	return &Memory{
		teams:       make(map[int64]models.Team),
		memberships: make(map[string]models.Membership),
		users:       make(map[int64]models.User),
		invitations: make(map[string]models.Invitation),
		messages:    make(map[int64][]models.ChatMessage),
		notifs:      make(map[int64]models.Notification),
		prefs:       make(map[int64]models.NotificationPreferences),
	}
}

func membershipKey(teamID, userID int64) string {
	return fmt.Sprintf("%d:%d", teamID, userID)
}

// Teams

func (m *Memory) GetTeam(_ context.Context, id int64) (models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return models.Team{}, models.ErrNotFound
	}
	return t, nil
}

func (m *Memory) CreateTeam(_ context.Context, team *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTeamID++
	team.ID = m.nextTeamID
	m.teams[team.ID] = *team
	m.memberships[membershipKey(team.ID, team.OwnerID)] = models.Membership{
		TeamID:   team.ID,
		UserID:   team.OwnerID,
		Role:     models.RoleOwner,
		JoinedAt: team.CreatedAt,
	}
	return nil
}

func (m *Memory) UpdateTeam(_ context.Context, team *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; !ok {
		return models.ErrNotFound
	}
	m.teams[team.ID] = *team
	return nil
}

func (m *Memory) ListTeamsForUser(_ context.Context, userID int64) ([]models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var teams []models.Team
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			teams = append(teams, m.teams[mem.TeamID])
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

// Memberships

func (m *Memory) GetMembership(_ context.Context, teamID, userID int64) (models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[membershipKey(teamID, userID)]
	if !ok {
		return models.Membership{}, models.ErrNotFound
	}
	return mem, nil
}

func (m *Memory) InsertMembership(_ context.Context, mem models.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := membershipKey(mem.TeamID, mem.UserID)
	if _, exists := m.memberships[key]; exists {
		return models.ErrConflict
	}
	m.memberships[key] = mem
	return nil
}

func (m *Memory) DeleteMembership(_ context.Context, teamID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := membershipKey(teamID, userID)
	if _, ok := m.memberships[key]; !ok {
		return models.ErrNotFound
	}
	delete(m.memberships, key)
	return nil
}

func (m *Memory) ListMembers(_ context.Context, teamID int64) ([]models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var members []models.Member
	for _, mem := range m.memberships {
		if mem.TeamID != teamID {
			continue
		}
		user := m.users[mem.UserID]
		members = append(members, models.Member{
			Membership:  mem,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

// MembershipCount reports how many rows exist for (teamID, userID); a test
// helper for the one-row-per-pair invariant.
func (m *Memory) MembershipCount(teamID, userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memberships[membershipKey(teamID, userID)]; ok {
		return 1
	}
	return 0
}

// Users

func (m *Memory) GetUser(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	u.Password = ""
	return u, nil
}

func (m *Memory) FindUserByContact(_ context.Context, contact string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contact = strings.ToLower(strings.TrimSpace(contact))
	for _, u := range m.users {
		if u.Email == contact {
			u.Password = ""
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	u.ID = m.nextUserID
	u.Email = strings.ToLower(u.Email)
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUserWithPassword(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

// Invitations

func (m *Memory) InsertInvitation(_ context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invitations {
		if existing.TeamID == inv.TeamID && existing.InviteeID == inv.InviteeID &&
			existing.Status == models.InvitationPending {
			return models.ErrDuplicatePending
		}
	}
	m.invitations[inv.ID] = *inv
	return nil
}

func (m *Memory) GetInvitation(_ context.Context, id string) (models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return models.Invitation{}, models.ErrNotFound
	}
	return inv, nil
}

func (m *Memory) UpdateInvitationStatus(_ context.Context, id string, expected, next models.InvitationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok || inv.Status != expected {
		return models.ErrConflict
	}
	inv.Status = next
	m.invitations[id] = inv
	return nil
}

func (m *Memory) FindPendingInvitation(_ context.Context, teamID, inviteeID int64) (models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.TeamID == teamID && inv.InviteeID == inviteeID && inv.Status == models.InvitationPending {
			return inv, nil
		}
	}
	return models.Invitation{}, models.ErrNotFound
}

func (m *Memory) ListPendingForInvitee(_ context.Context, inviteeID int64) ([]models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var invs []models.Invitation
	for _, inv := range m.invitations {
		if inv.InviteeID == inviteeID && inv.Status == models.InvitationPending {
			invs = append(invs, inv)
		}
	}
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.Before(invs[j].CreatedAt) })
	return invs, nil
}

func (m *Memory) DeleteInvitation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invitations[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.invitations, id)
	return nil
}

// Messages

func (m *Memory) AppendMessage(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsgID++
	msg.ID = m.nextMsgID
	m.messages[msg.TeamID] = append(m.messages[msg.TeamID], *msg)
	return nil
}

func (m *Memory) ListRecentMessages(_ context.Context, teamID int64, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	msgs := m.messages[teamID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Notifications

func (m *Memory) InsertNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNotifID++
	n.ID = m.nextNotifID
	m.notifs[n.ID] = *n
	return nil
}

func (m *Memory) GetNotification(_ context.Context, id int64) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifs[id]
	if !ok {
		return models.Notification{}, models.ErrNotFound
	}
	return n, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifs[id]
	if !ok {
		return models.ErrNotFound
	}
	n.Read = true
	m.notifs[id] = n
	return nil
}

func (m *Memory) MarkAllNotificationsRead(_ context.Context, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notifs {
		if n.RecipientID == recipientID {
			n.Read = true
			m.notifs[id] = n
		}
	}
	return nil
}

func (m *Memory) DeleteNotification(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifs[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.notifs, id)
	return nil
}

func (m *Memory) DeleteReadNotifications(_ context.Context, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notifs {
		if n.RecipientID == recipientID && n.Read {
			delete(m.notifs, id)
		}
	}
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Notification
	for _, n := range m.notifs {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Preferences

func (m *Memory) GetPreferences(_ context.Context, userID int64) (models.NotificationPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return models.NotificationPreferences{}, models.ErrNotFound
	}
	return p, nil
}

func (m *Memory) UpsertPreferences(_ context.Context, p models.NotificationPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.UserID] = p
	return nil
}
