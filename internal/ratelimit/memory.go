package ratelimit

import (
	"context"
	"sync"
)

// MemoryLimiter is a process-local Limiter used when Redis is not configured
// and by tests. State is lost on restart, which only ever under-counts for
// the remainder of the day.
type MemoryLimiter struct {
	mu    sync.Mutex
	state map[string]map[int64]struct{}
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{state: make(map[string]map[int64]struct{})}
}

func (l *MemoryLimiter) Reserve(_ context.Context, userID, teamID int64, day string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := rateKey(userID, day)
	teams := l.state[key]
	if _, counted := teams[teamID]; counted {
		return true, nil
	}
	if len(teams) >= MaxTeamsPerDay {
		return false, nil
	}
	if teams == nil {
		teams = make(map[int64]struct{})
		l.state[key] = teams
	}
	teams[teamID] = struct{}{}
	return true, nil
}
