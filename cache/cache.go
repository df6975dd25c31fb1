package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/mo"
)

// TTL is an optional time-to-live. An absent TTL means the entry never expires.
type TTL = mo.Option[time.Duration]

// NoExpiry returns a TTL for entries that are kept until removed.
func NoExpiry() TTL {
	return mo.None[time.Duration]()
}

// ExpireAfter returns a TTL of d. Non-positive durations mean no expiry.
func ExpireAfter(d time.Duration) TTL {
	if d <= 0 {
		return NoExpiry()
	}
	return mo.Some(d)
}

type Cache[T any] interface {
	Add(key string, value T) T
	AddWithTTL(key string, value T, ttl time.Duration) T
	Get(key string) (T, bool)
	Delete(key string) (T, bool)
	Clear()
	Len() int
	Snapshot() Snapshot[T]
	ResetFrom(snapshot Snapshot[T])
}

// Record is the portable form of a cache entry. ExpiresAt holds unix milliseconds,
// nil for entries without expiry.
type Record[T any] struct {
	Value     T      `json:"value"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

type Snapshot[T any] map[string]Record[T]

type cacheRecord[T any] struct {
	value     T
	createdAt time.Time
	ttl       TTL
	timer     *clock.Timer
}

func (r *cacheRecord[T]) expiresAt() (time.Time, bool) {
	d, ok := r.ttl.Get()
	if !ok {
		return time.Time{}, false
	}
	return r.createdAt.Add(d), true
}

func (r *cacheRecord[T]) IsExpired(now time.Time) bool {
	at, ok := r.expiresAt()
	if !ok {
		return false
	}
	return !now.Before(at)
}

func (r *cacheRecord[T]) stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
