package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint rejected the write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUsageLimitReached is returned when an agency's metered usage hits its ceiling.
	ErrUsageLimitReached = errors.New("usage limit reached")
)
