package domain

import "errors"

// Domain-level errors for messaging behaviors
var (
	ErrNotFound     = errors.New("messaging: not found")
	ErrForbidden    = errors.New("messaging: caller is not a participant in the conversation")
	ErrUnauthorized = errors.New("messaging: caller identity not established")
	ErrEmptyText    = errors.New("messaging: message text is empty")
	ErrSelfMessage  = errors.New("messaging: sender and receiver must differ")
	ErrBadID        = errors.New("messaging: malformed id")
)
