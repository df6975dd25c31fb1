package server

import "errors"

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrEmptyPassword  = errors.New("password cannot be empty")
	ErrNotFound       = errors.New("not found")
	ErrNilPersistence = errors.New("persistence cannot be nil")
)
