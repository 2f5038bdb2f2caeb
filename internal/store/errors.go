package store

import "errors"

var (
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrTokenExhausted = errors.New("token exhausted")
	ErrStaleStatus    = errors.New("stale status")
)
