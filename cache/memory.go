package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Option func(*memoryOptions)

type memoryOptions struct {
	clock clock.Clock
}

// WithClock replaces the wall clock used for timestamps and expiry timers.
func WithClock(c clock.Clock) Option {
	return func(o *memoryOptions) {
		o.clock = c
	}
}

type memoryCache[T any] struct {
	mu         sync.Mutex
	data       map[string]*cacheRecord[T]
	defaultTTL TTL
	clock      clock.Clock
}

// NewMemoryCache creates a cache whose entries are evicted by timers once their TTL
// elapses. Entries added without an explicit TTL use defaultTTL.
func NewMemoryCache[T any](defaultTTL TTL, opts ...Option) Cache[T] {
	o := memoryOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return &memoryCache[T]{
		data:       make(map[string]*cacheRecord[T]),
		defaultTTL: defaultTTL,
		clock:      o.clock,
	}
}

func (m *memoryCache[T]) Add(key string, value T) T {
	return m.set(key, value, m.defaultTTL)
}

// AddWithTTL stores value for ttl. A non-positive ttl falls back to the default TTL.
func (m *memoryCache[T]) AddWithTTL(key string, value T, ttl time.Duration) T {
	if ttl <= 0 {
		return m.set(key, value, m.defaultTTL)
	}
	return m.set(key, value, ExpireAfter(ttl))
}

func (m *memoryCache[T]) Get(key string) (T, bool) {
	var value T
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, found := m.data[key]
	if !found || rec.IsExpired(m.clock.Now()) {
		return value, false
	}
	return rec.value, true
}

func (m *memoryCache[T]) Delete(key string) (T, bool) {
	var value T
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, found := m.data[key]
	if !found {
		return value, false
	}
	rec.stop()
	delete(m.data, key)
	if rec.IsExpired(m.clock.Now()) {
		return value, false
	}
	return rec.value, true
}

func (m *memoryCache[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.data {
		rec.stop()
	}
	m.data = make(map[string]*cacheRecord[T])
}

func (m *memoryCache[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	count := 0
	for _, rec := range m.data {
		if !rec.IsExpired(now) {
			count++
		}
	}
	return count
}

// Snapshot returns the live entries together with their absolute expiry time.
func (m *memoryCache[T]) Snapshot() Snapshot[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	snap := make(Snapshot[T], len(m.data))
	for key, rec := range m.data {
		if rec.IsExpired(now) {
			continue
		}
		r := Record[T]{Value: rec.value}
		if at, ok := rec.expiresAt(); ok {
			ms := at.UnixMilli()
			r.ExpiresAt = &ms
		}
		snap[key] = r
	}
	return snap
}

// ResetFrom re-inserts the snapshot entries that have not expired yet, each one with
// the time it has left rather than its original TTL.
func (m *memoryCache[T]) ResetFrom(snapshot Snapshot[T]) {
	now := m.clock.Now()
	for key, r := range snapshot {
		if r.ExpiresAt == nil {
			m.set(key, r.Value, NoExpiry())
			continue
		}
		remaining := time.UnixMilli(*r.ExpiresAt).Sub(now)
		if remaining <= 0 {
			continue
		}
		m.set(key, r.Value, ExpireAfter(remaining))
	}
}

func (m *memoryCache[T]) set(key string, value T, ttl TTL) T {
	m.mu.Lock()
	defer m.mu.Unlock()

	// the old timer must not fire against the new entry
	if old, found := m.data[key]; found {
		old.stop()
	}

	rec := &cacheRecord[T]{
		value:     value,
		createdAt: m.clock.Now(),
		ttl:       ttl,
	}
	if d, ok := ttl.Get(); ok {
		rec.timer = m.clock.AfterFunc(d, func() {
			m.expire(key, rec)
		})
	}
	m.data[key] = rec
	return value
}

func (m *memoryCache[T]) expire(key string, rec *cacheRecord[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[key] == rec {
		delete(m.data, key)
	}
}
