package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

type fakePusher struct {
	mu     sync.Mutex
	pushes []models.Event
}

func (p *fakePusher) PushToUser(userID int64, ev models.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, ev)
	return true
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

func newDispatcher(t *testing.T) (*Dispatcher, *store.Memory, *fakePusher) {
	t.Helper()
	st := store.NewMemory()
	pusher := &fakePusher{}
	d := NewDispatcher(st, st, pusher, logger.New("notifications-test")).
		WithClock(func() time.Time { return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC) })
	return d, st, pusher
}

func TestDispatchPersistsAndPushes(t *testing.T) {
	d, _, pusher := newDispatcher(t)
	ctx := context.Background()

	err := d.Dispatch(ctx, 7, models.NotifyTeamInvitation, "Team invitation", "You were invited", "invitation:abc",
		map[string]string{"invitation_id": "abc"})
	require.NoError(t, err)

	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, models.NotifyTeamInvitation, items[0].Kind)
	require.False(t, items[0].Read)
	require.Equal(t, "invitation:abc", items[0].ActionRef)

	require.Equal(t, 1, pusher.count())
	require.Equal(t, models.EventNotificationCreated, pusher.pushes[0].Event)
}

func TestDispatchSuppressedByPreference(t *testing.T) {
	d, st, pusher := newDispatcher(t)
	ctx := context.Background()

	prefs := models.DefaultPreferences(7)
	prefs.NewMessages = false
	require.NoError(t, st.UpsertPreferences(ctx, prefs))

	// A disabled category is a silent no-op, not an error.
	err := d.Dispatch(ctx, 7, models.NotifyNewMessage, "New message", "hi", "", nil)
	require.NoError(t, err)

	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Zero(t, pusher.count())
}

func TestDispatchPushDisabledStillPersists(t *testing.T) {
	d, st, pusher := newDispatcher(t)
	ctx := context.Background()

	prefs := models.DefaultPreferences(7)
	prefs.PushEnabled = false
	require.NoError(t, st.UpsertPreferences(ctx, prefs))

	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMemberAdded, "Member joined", "x joined", "", nil))

	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Zero(t, pusher.count())
}

func TestDefaultPreferences(t *testing.T) {
	d, _, _ := newDispatcher(t)

	prefs, err := d.Preferences(context.Background(), 99)
	require.NoError(t, err)
	require.True(t, prefs.TeamInvitations)
	require.True(t, prefs.NewMessages)
	require.True(t, prefs.PushEnabled)
	require.False(t, prefs.EmailEnabled)
}

func TestMarkReadScoping(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMention, "Mention", "you were mentioned", "", nil))
	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	err = d.MarkRead(ctx, items[0].ID, 8)
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	require.NoError(t, d.MarkRead(ctx, items[0].ID, 7))
	items, err = d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.True(t, items[0].Read)
}

func TestDeleteScoping(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMention, "Mention", "m", "", nil))
	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)

	err = d.Delete(ctx, items[0].ID, 8)
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	require.NoError(t, d.Delete(ctx, items[0].ID, 7))
	items, err = d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestClearAllReadKeepsUnread(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMention, "first", "m", "", nil))
	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMention, "second", "m", "", nil))

	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NoError(t, d.MarkRead(ctx, items[0].ID, 7))

	require.NoError(t, d.ClearAllRead(ctx, 7))
	items, err = d.List(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].Read)
}

func TestMarkAllRead(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMention, "a", "m", "", nil))
	require.NoError(t, d.Dispatch(ctx, 7, models.NotifyMention, "b", "m", "", nil))
	require.NoError(t, d.MarkAllRead(ctx, 7))

	items, err := d.List(ctx, 7, 10)
	require.NoError(t, err)
	for _, n := range items {
		require.True(t, n.Read)
	}
}

func TestUpdatePreferences(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	prefs, err := d.UpdatePreferences(ctx, 7, map[string]bool{
		"new_messages":  false,
		"email_enabled": true,
	})
	require.NoError(t, err)
	require.False(t, prefs.NewMessages)
	require.True(t, prefs.EmailEnabled)
	// Untouched keys keep their defaults.
	require.True(t, prefs.TeamInvitations)

	// The merge persisted.
	stored, err := d.Preferences(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, prefs, stored)
}

func TestUpdatePreferencesUnknownKey(t *testing.T) {
	d, _, _ := newDispatcher(t)

	_, err := d.UpdatePreferences(context.Background(), 7, map[string]bool{"pager_enabled": true})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	// The rejected patch left nothing behind.
	prefs, perr := d.Preferences(context.Background(), 7)
	require.NoError(t, perr)
	require.Equal(t, models.DefaultPreferences(7), prefs)
}
