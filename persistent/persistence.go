package persistent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/msaldanha/plasticine/cache"
	"github.com/msaldanha/plasticine/storage"
)

const (
	LocalCacheKey   = "COMMON__LOCAL__KEY__"
	SessionCacheKey = "COMMON__SESSION__KEY__"
)

var ErrUnknownCacheType = errors.New("unknown cache type")

// CacheType selects whether data survives a restart (Local) or only lives as long as
// the process (Session).
type CacheType int

const (
	Local CacheType = iota
	Session
)

func (t CacheType) String() string {
	switch t {
	case Local:
		return "local"
	case Session:
		return "session"
	default:
		return "unknown"
	}
}

func ParseCacheType(s string) (CacheType, error) {
	switch strings.ToLower(s) {
	case "local":
		return Local, nil
	case "session":
		return Session, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCacheType, s)
	}
}

type PersistenceOptions struct {
	LocalStore   storage.Store
	SessionStore storage.Store
	Prefix       string
	DefaultTTL   cache.TTL
	Clock        clock.Clock
	Logger       *zap.Logger
}

// Persistence pairs a long lived and a short lived Persistent.
type Persistence[T any] struct {
	Local   *Persistent[T]
	Session *Persistent[T]
}

func NewPersistence[T any](opts PersistenceOptions) (*Persistence[T], error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	local, er := newScoped[T](opts, opts.LocalStore, LocalCacheKey, Local)
	if er != nil {
		return nil, fmt.Errorf("local: %w", er)
	}
	session, er := newScoped[T](opts, opts.SessionStore, SessionCacheKey, Session)
	if er != nil {
		return nil, fmt.Errorf("session: %w", er)
	}

	return &Persistence[T]{Local: local, Session: session}, nil
}

func (p *Persistence[T]) For(t CacheType) *Persistent[T] {
	if t == Session {
		return p.Session
	}
	return p.Local
}

func (p *Persistence[T]) ClearAll(immediate bool) error {
	return errors.Join(p.Session.Clear(immediate), p.Local.Clear(immediate))
}

func newScoped[T any](opts PersistenceOptions, st storage.Store, cacheKey string, t CacheType) (*Persistent[T], error) {
	logger := opts.Logger.With(zap.Stringer("scope", t))
	ws, er := storage.NewWebStorage(storage.Options{
		Store:   st,
		Prefix:  opts.Prefix,
		Timeout: opts.DefaultTTL,
		Clock:   opts.Clock,
		Logger:  logger,
	})
	if er != nil {
		return nil, er
	}
	return NewPersistent[T](Options{
		CacheKey:   cacheKey,
		DefaultTTL: opts.DefaultTTL,
		Storage:    ws,
		Clock:      opts.Clock,
		Logger:     logger,
	})
}
