package persistent

import (
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/msaldanha/plasticine/cache"
	"github.com/msaldanha/plasticine/storage"
)

var (
	ErrNilStorage      = errors.New("storage cannot be nil")
	ErrInvalidCacheKey = errors.New("invalid cache key")
)

type Options struct {
	// CacheKey is the storage key holding the snapshot of the memory cache.
	CacheKey   string
	DefaultTTL cache.TTL
	Storage    *storage.WebStorage
	Clock      clock.Clock
	Logger     *zap.Logger
}

// Persistent keeps a memory cache and its snapshot in a WebStorage consistent.
// Reads only touch memory; writes reach the storage when asked to.
type Persistent[T any] struct {
	// mu orders memory changes and their snapshots so the stored snapshot is never
	// older than an acknowledged write.
	mu       sync.Mutex
	memory   cache.Cache[T]
	storage  *storage.WebStorage
	cacheKey string
	logger   *zap.Logger
}

// NewPersistent builds the memory cache and hydrates it from the last snapshot found
// in storage, dropping entries that expired in the meantime.
func NewPersistent[T any](opts Options) (*Persistent[T], error) {
	if opts.Storage == nil {
		return nil, ErrNilStorage
	}
	if opts.CacheKey == "" {
		return nil, ErrInvalidCacheKey
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	p := &Persistent[T]{
		memory:   cache.NewMemoryCache[T](opts.DefaultTTL, cache.WithClock(opts.Clock)),
		storage:  opts.Storage,
		cacheKey: opts.CacheKey,
		logger:   opts.Logger.Named("Persistent").With(zap.String("cache_key", opts.CacheKey)),
	}
	p.hydrate()
	return p, nil
}

func (p *Persistent[T]) Get(key string) (T, bool) {
	return p.memory.Get(key)
}

func (p *Persistent[T]) Set(key string, value T, immediate bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.memory.Add(key, value)
	if immediate {
		return p.flush()
	}
	return nil
}

func (p *Persistent[T]) Remove(key string, immediate bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.memory.Delete(key)
	if immediate {
		return p.flush()
	}
	return nil
}

// Clear empties the memory cache. With immediate set it also removes every key of
// this storage's namespace, the snapshot included.
func (p *Persistent[T]) Clear(immediate bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.memory.Clear()
	if immediate {
		return p.storage.ClearNamespace()
	}
	return nil
}

// Flush writes the whole memory cache to storage under the snapshot key.
func (p *Persistent[T]) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush()
}

func (p *Persistent[T]) flush() error {
	snap := p.memory.Snapshot()
	if er := p.storage.Set(p.cacheKey, snap); er != nil {
		p.logger.Error("failed to persist snapshot", zap.Int("entries", len(snap)), zap.Error(er))
		return er
	}
	return nil
}

func (p *Persistent[T]) Len() int {
	return p.memory.Len()
}

func (p *Persistent[T]) hydrate() {
	snap := storage.Read(p.storage, p.cacheKey, cache.Snapshot[T](nil))
	if len(snap) == 0 {
		return
	}
	p.memory.ResetFrom(snap)
	p.logger.Debug("hydrated from storage", zap.Int("stored", len(snap)), zap.Int("restored", p.memory.Len()))
}
