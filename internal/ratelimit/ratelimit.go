// Package ratelimit tracks, per user and UTC day, the distinct teams for
// which that user has issued invitations. The cap applies to distinct teams
// only: a team already counted today never blocks further invitations to it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxTeamsPerDay is the number of distinct teams a user may invite from in
// one UTC calendar day.
const MaxTeamsPerDay = 2

// Limiter is the invitation rate state consulted by the lifecycle manager.
type Limiter interface {
	// Reserve atomically counts teamID against userID's state for the day
	// and reports whether the cap allows it. A denied reservation leaves
	// the state unchanged, so two racing reservations for distinct teams
	// cannot both slip past the cap.
	Reserve(ctx context.Context, userID, teamID int64, day string) (bool, error)
}

// Day formats t as the UTC day bucket key.
func Day(t time.Time) string { return t.UTC().Format("2006-01-02") }

// RedisLimiter keeps one set of team ids per (user, day) key.
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisLimiter { return &RedisLimiter{rdb: rdb} }

func rateKey(userID int64, day string) string {
	return fmt.Sprintf("invite_rate:%d:%s", userID, day)
}

// Reserve adds the team to the day's set first and checks the resulting
// cardinality, undoing the add when it pushed the set over the cap. Checking
// after the add means a racing reservation sees this one's effect; the worst
// race outcome is an over-strict denial, never an over-admission.
func (l *RedisLimiter) Reserve(ctx context.Context, userID, teamID int64, day string) (bool, error) {
	key := rateKey(userID, day)
	member := fmt.Sprintf("%d", teamID)

	added, err := l.rdb.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, err
	}
	if added == 0 {
		// Already counted today; never blocks.
		return true, nil
	}
	// Keys expire 48h after first use, comfortably past the day they cover.
	if err := l.rdb.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
		return false, err
	}

	n, err := l.rdb.SCard(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n > MaxTeamsPerDay {
		if err := l.rdb.SRem(ctx, key, member).Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
