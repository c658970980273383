package session

import "errors"

var (
	// ErrNotFound is returned when a session id is unknown to the store or
	// its entry has expired.
	ErrNotFound = errors.New("session not found")
	// ErrIDGeneration is returned when the random id source fails.
	ErrIDGeneration = errors.New("failed to generate session id")
	// ErrClosed is returned for writes to a store that has been stopped.
	ErrClosed = errors.New("session store is closed")
	// ErrAlreadyStarted is returned when a store's background reaper is
	// started twice.
	ErrAlreadyStarted = errors.New("session store already started")
	// ErrNotStarted is returned when stopping a store whose reaper never ran.
	ErrNotStarted = errors.New("session store not started")
	// ErrMigration is returned when applying schema migrations fails.
	ErrMigration = errors.New("failed to apply session store migrations")
)
