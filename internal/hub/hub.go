// Package hub is the presence and room broadcast layer: it owns the
// process-local map of team rooms and their live connections, and is the
// sole path by which messages, typing pulses, and membership events reach
// connected clients. All state here is rebuildable from zero; clients
// rejoin on reconnect.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

// TypingTTL is how long a typing signal stays live without a follow-up
// before the hub broadcasts a synthetic stop.
const TypingTTL = 3 * time.Second

// Conn is one live client connection. Send must be safe for concurrent use;
// a failed Send marks the connection stale, and the hub drops it silently and
// closes it. Close must be idempotent and safe to call concurrently with Send.
type Conn interface {
	UserID() int64
	Send(ev models.Event) error
	Close() error
}

// Hub routes room-scoped and user-scoped events to live connections.
type Hub struct {
	mu    sync.Mutex
	rooms map[int64]*room
	users map[int64]map[Conn]struct{}
	conns map[Conn]map[int64]struct{}

	messages  store.MessageStore
	typingTTL time.Duration
	now       func() time.Time
	log       *logger.Logger
}

func New(messages store.MessageStore, log *logger.Logger) *Hub {
	return &Hub{
		rooms:     make(map[int64]*room),
		users:     make(map[int64]map[Conn]struct{}),
		conns:     make(map[Conn]map[int64]struct{}),
		messages:  messages,
		typingTTL: TypingTTL,
		now:       time.Now,
		log:       log,
	}
}

// WithTypingTTL overrides the typing expiry window, for tests.
func (h *Hub) WithTypingTTL(ttl time.Duration) *Hub {
	h.typingTTL = ttl
	return h
}

// WithClock overrides the clock, for tests.
func (h *Hub) WithClock(now func() time.Time) *Hub {
	h.now = now
	return h
}

// Register indexes a new connection for user-scoped pushes. It must be
// called once per connection before any Join.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[conn.UserID()] == nil {
		h.users[conn.UserID()] = make(map[Conn]struct{})
	}
	h.users[conn.UserID()][conn] = struct{}{}
	h.conns[conn] = make(map[int64]struct{})
}

// Join subscribes the connection to the team's room.
func (h *Hub) Join(teamID int64, conn Conn) {
	r := h.room(teamID)

	h.mu.Lock()
	if joined, ok := h.conns[conn]; ok {
		joined[teamID] = struct{}{}
	}
	h.mu.Unlock()

	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
}

// Leave unsubscribes the connection. If it was the user's last connection in
// the room, any live typing signal for that user is cleared and a stop is
// relayed.
func (h *Hub) Leave(teamID int64, conn Conn) {
	h.mu.Lock()
	r := h.rooms[teamID]
	if joined, ok := h.conns[conn]; ok {
		delete(joined, teamID)
	}
	h.mu.Unlock()
	if r == nil {
		return
	}

	userID := conn.UserID()
	r.mu.Lock()
	delete(r.conns, conn)
	lastOfUser := !r.hasUserLocked(userID)
	var stale []Conn
	if lastOfUser && r.stopTypingLocked(userID) {
		stale = r.relayLocked(typingEvent(teamID, userID, false), userID)
	}
	r.mu.Unlock()

	h.dropStale(teamID, stale)
	h.deleteRoomIfEmpty(teamID)
}

// Disconnect removes the connection from every room it joined and from the
// user index. Transport handlers call this on socket close.
func (h *Hub) Disconnect(conn Conn) {
	h.mu.Lock()
	joined := h.conns[conn]
	delete(h.conns, conn)
	if userConns := h.users[conn.UserID()]; userConns != nil {
		delete(userConns, conn)
		if len(userConns) == 0 {
			delete(h.users, conn.UserID())
		}
	}
	h.mu.Unlock()

	for teamID := range joined {
		h.Leave(teamID, conn)
	}
}

// PostMessage appends the message to the store, then relays it to every
// connection in the room, sender included. The room lock is held across
// persist and relay so delivery order always matches persistence order.
func (h *Hub) PostMessage(ctx context.Context, teamID, senderID int64, content string, typ models.MessageType) (models.ChatMessage, error) {
	r := h.room(teamID)

	r.mu.Lock()
	msg := &models.ChatMessage{
		TeamID:    teamID,
		SenderID:  senderID,
		Content:   content,
		Type:      typ,
		CreatedAt: h.now().UTC(),
	}
	if err := h.messages.AppendMessage(ctx, msg); err != nil {
		r.mu.Unlock()
		return models.ChatMessage{}, err
	}
	ev := models.Event{Event: models.EventMessagePosted, Payload: *msg}
	stale := r.relayLocked(ev, noExclusion)
	r.mu.Unlock()

	h.dropStale(teamID, stale)
	return *msg, nil
}

// SetTyping relays the signal to every other connection in the room. A true
// signal arms (or re-arms) a per-sender timer that broadcasts a synthetic
// stop after the TTL elapses with no follow-up.
func (h *Hub) SetTyping(teamID, userID int64, isTyping bool) {
	r := h.room(teamID)

	r.mu.Lock()
	if isTyping {
		r.armTypingLocked(userID, h.typingTTL, func() { h.expireTyping(teamID, userID) })
	} else {
		r.stopTypingLocked(userID)
	}
	stale := r.relayLocked(typingEvent(teamID, userID, isTyping), userID)
	r.mu.Unlock()

	h.dropStale(teamID, stale)
}

// Broadcast relays an event to every connection in the team's room. Used for
// membership-change events emitted by the lifecycle manager.
func (h *Hub) Broadcast(teamID int64, ev models.Event) {
	h.mu.Lock()
	r := h.rooms[teamID]
	h.mu.Unlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	stale := r.relayLocked(ev, noExclusion)
	r.mu.Unlock()

	h.dropStale(teamID, stale)
}

// PushToUser delivers an event to all of the user's live connections,
// regardless of room. Reports whether at least one delivery was attempted.
func (h *Hub) PushToUser(userID int64, ev models.Event) bool {
	h.mu.Lock()
	targets := make([]Conn, 0, len(h.users[userID]))
	for conn := range h.users[userID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	delivered := false
	for _, conn := range targets {
		if err := conn.Send(ev); err == nil {
			delivered = true
		}
	}
	return delivered
}

// IsUserConnected reports whether the user has any live connection.
func (h *Hub) IsUserConnected(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) room(teamID int64) *room {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[teamID]
	if !ok {
		r = newRoom(teamID)
		h.rooms[teamID] = r
	}
	return r
}

func (h *Hub) expireTyping(teamID, userID int64) {
	h.mu.Lock()
	r := h.rooms[teamID]
	h.mu.Unlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	if _, armed := r.typing[userID]; !armed {
		r.mu.Unlock()
		return
	}
	delete(r.typing, userID)
	stale := r.relayLocked(typingEvent(teamID, userID, false), userID)
	r.mu.Unlock()

	h.dropStale(teamID, stale)
}

// dropStale detaches and closes connections whose Send failed. Without the
// close the peer would keep a half-dead session: still read from, never
// written to. The failure never surfaces to whoever triggered the relay.
func (h *Hub) dropStale(teamID int64, stale []Conn) {
	for _, conn := range stale {
		h.log.Debug("dropping stale connection", "team_id", teamID, "user_id", conn.UserID())
		h.Disconnect(conn)
		if err := conn.Close(); err != nil {
			h.log.Debug("closing stale connection", "user_id", conn.UserID(), "error", err)
		}
	}
}

func (h *Hub) deleteRoomIfEmpty(teamID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[teamID]
	if r == nil {
		return
	}
	r.mu.Lock()
	empty := len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, teamID)
	}
}

func typingEvent(teamID, userID int64, isTyping bool) models.Event {
	return models.Event{
		Event: models.EventTypingChanged,
		Payload: models.TypingPayload{
			TeamID:   teamID,
			UserID:   userID,
			IsTyping: isTyping,
		},
	}
}
