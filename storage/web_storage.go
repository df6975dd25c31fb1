package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// envelope is what gets written to the Store for every value.
// Time and Expire are unix milliseconds.
type envelope struct {
	Value  json.RawMessage `json:"value"`
	Time   int64           `json:"time"`
	Expire *int64          `json:"expire"`
}

type Options struct {
	Store Store
	// Prefix namespaces every key written to Store. It should end with a separator
	// such as "__" when other namespaces share the Store.
	Prefix string
	// Timeout is applied by Set. None keeps values until removed.
	Timeout mo.Option[time.Duration]
	Clock   clock.Clock
	Logger  *zap.Logger
}

// WebStorage stores JSON values in a Store under namespaced keys, each one wrapped
// with the timestamps needed to evaluate its expiry.
type WebStorage struct {
	store   Store
	prefix  string
	timeout mo.Option[time.Duration]
	clock   clock.Clock
	logger  *zap.Logger
}

func NewWebStorage(opts Options) (*WebStorage, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &WebStorage{
		store:   opts.Store,
		prefix:  opts.Prefix,
		timeout: opts.Timeout,
		clock:   opts.Clock,
		logger:  opts.Logger.Named("WebStorage").With(zap.String("prefix", opts.Prefix)),
	}, nil
}

// Key returns the key used in the underlying Store for key.
func (s *WebStorage) Key(key string) string {
	return strings.ToUpper(s.prefix + key)
}

func (s *WebStorage) Set(key string, value any) error {
	return s.SetWithTTL(key, value, s.timeout)
}

func (s *WebStorage) SetWithTTL(key string, value any, ttl mo.Option[time.Duration]) error {
	js, er := json.Marshal(value)
	if er != nil {
		return fmt.Errorf("%w: %w", ErrEncode, er)
	}

	now := s.clock.Now()
	env := envelope{
		Value: js,
		Time:  now.UnixMilli(),
	}
	if d, ok := ttl.Get(); ok && d > 0 {
		expire := now.Add(d).UnixMilli()
		env.Expire = &expire
	}

	data, er := json.Marshal(env)
	if er != nil {
		return fmt.Errorf("%w: %w", ErrEncode, er)
	}
	return s.store.Set(s.Key(key), string(data))
}

// Get decodes the value stored under key into out and reports whether it was found.
// Missing, unreadable and expired values are all reported as not found; expired ones
// are removed from the Store.
func (s *WebStorage) Get(key string, out any) bool {
	raw, ok := s.lookup(key)
	if !ok {
		return false
	}
	if er := json.Unmarshal(raw, out); er != nil {
		s.logger.Warn("cannot decode value", zap.String("key", key), zap.Error(er))
		return false
	}
	return true
}

func (s *WebStorage) Remove(key string) error {
	return s.store.Remove(s.Key(key))
}

// Clear wipes the whole underlying Store, including keys of other namespaces.
func (s *WebStorage) Clear() error {
	return s.store.Clear()
}

// ClearNamespace removes only the keys carrying this storage's prefix. Without a prefix
// there is no namespace to tell apart, so it fails with ErrEmptyPrefix.
func (s *WebStorage) ClearNamespace() error {
	if s.prefix == "" {
		return ErrEmptyPrefix
	}
	keys, er := s.store.Keys()
	if er != nil {
		return er
	}
	prefix := strings.ToUpper(s.prefix)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if er := s.store.Remove(k); er != nil {
			return er
		}
	}
	return nil
}

func (s *WebStorage) lookup(key string) (json.RawMessage, bool) {
	data, found, er := s.store.Get(s.Key(key))
	if er != nil {
		s.logger.Warn("cannot read from store", zap.String("key", key), zap.Error(er))
		return nil, false
	}
	if !found {
		return nil, false
	}

	env := envelope{}
	if er := json.Unmarshal([]byte(data), &env); er != nil {
		s.logger.Warn("corrupt envelope", zap.String("key", key), zap.Error(er))
		return nil, false
	}

	if env.Expire != nil && *env.Expire < s.clock.Now().UnixMilli() {
		if er := s.Remove(key); er != nil {
			s.logger.Warn("cannot remove expired value", zap.String("key", key), zap.Error(er))
		}
		return nil, false
	}
	return env.Value, true
}

// Read returns the value stored under key, or def when it is missing, unreadable
// or expired.
func Read[T any](s *WebStorage, key string, def T) T {
	var value T
	if !s.Get(key, &value) {
		return def
	}
	return value
}
