package storage

import "errors"

//go:generate mockgen -source=store.go -destination=store_mock.go -package=storage

var (
	ErrNilDB             = errors.New("db cannot be nil")
	ErrInvalidBucketName = errors.New("invalid bucket name")
	ErrNilStore          = errors.New("store cannot be nil")
	ErrEncode            = errors.New("failed to encode value")
	ErrEmptyPrefix       = errors.New("prefix cannot be empty")
)

// Store is a string keyed, string valued durable key-value surface.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
	Keys() ([]string, error)
}
