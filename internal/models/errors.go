package models

import "errors"

// Engine-wide error taxonomy. Services return these (possibly wrapped);
// the transport layer maps them to status codes with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyMember    = errors.New("user is already a member")
	ErrDuplicatePending = errors.New("a pending invitation already exists")
	ErrAlreadyResolved  = errors.New("invitation already resolved")
	ErrExpired          = errors.New("invitation expired")
	ErrRateLimited      = errors.New("invitation rate limit reached")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("concurrent update conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)
