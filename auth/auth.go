package auth

import (
	"github.com/msaldanha/plasticine/persistent"
)

const TokenKey = "TOKEN__"

// Auth keeps authentication data in the persistent store selected by the permission
// cache type. Writes are always flushed to storage.
type Auth struct {
	store *persistent.Persistent[string]
}

func New(p *persistent.Persistence[string], cacheType persistent.CacheType) *Auth {
	return &Auth{store: p.For(cacheType)}
}

func (a *Auth) Token() (string, bool) {
	return a.Get(TokenKey)
}

func (a *Auth) SetToken(token string) error {
	return a.Set(TokenKey, token)
}

func (a *Auth) Get(key string) (string, bool) {
	return a.store.Get(key)
}

func (a *Auth) Set(key, value string) error {
	return a.store.Set(key, value, true)
}

func (a *Auth) Clear(immediate bool) error {
	return a.store.Clear(immediate)
}
