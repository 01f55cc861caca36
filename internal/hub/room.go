package hub

import (
	"sync"
	"time"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

// noExclusion relays to every connection in the room, sender included.
const noExclusion int64 = -1

// room holds one team's live connections and typing timers. Each room has
// its own lock so unrelated rooms never contend.
type room struct {
	teamID int64

	mu     sync.Mutex
	conns  map[Conn]struct{}
	typing map[int64]*time.Timer
}

func newRoom(teamID int64) *room {
	return &room{
		teamID: teamID,
		conns:  make(map[Conn]struct{}),
		typing: make(map[int64]*time.Timer),
	}
}

// relayLocked sends ev to every connection except those owned by exceptUser,
// returning the connections whose Send failed so the hub can detach them.
// Callers hold r.mu.
func (r *room) relayLocked(ev models.Event, exceptUser int64) []Conn {
	var stale []Conn
	for conn := range r.conns {
		if conn.UserID() == exceptUser {
			continue
		}
		if err := conn.Send(ev); err != nil {
			stale = append(stale, conn)
		}
	}
	return stale
}

// hasUserLocked reports whether the user still has a connection in the room.
func (r *room) hasUserLocked(userID int64) bool {
	for conn := range r.conns {
		if conn.UserID() == userID {
			return true
		}
	}
	return false
}

// armTypingLocked starts or re-arms the user's typing expiry timer.
func (r *room) armTypingLocked(userID int64, ttl time.Duration, expire func()) {
	if t, ok := r.typing[userID]; ok {
		t.Stop()
	}
	r.typing[userID] = time.AfterFunc(ttl, expire)
}

// stopTypingLocked cancels a live typing timer; reports whether one existed.
func (r *room) stopTypingLocked(userID int64) bool {
	t, ok := r.typing[userID]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.typing, userID)
	return true
}
