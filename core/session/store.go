package session

import "context"

// Store defines the persistence interface for sessions.
// Implementations must handle concurrent access safely: a read-modify-write
// cycle for one session id must not silently lose a concurrent write to the
// same id from the store's own bookkeeping.
type Store[Data any] interface {
	// Get returns the session for id. It fails soft with ErrNotFound when
	// the id is unknown or the entry has expired, even if a cleanup sweep
	// has not removed it yet.
	Get(ctx context.Context, id string) (Session[Data], error)

	// Set upserts the session under id and bumps its last-access time.
	Set(ctx context.Context, id string, sess Session[Data]) error

	// Destroy removes the session. Destroying an absent id is not an error.
	Destroy(ctx context.Context, id string) error

	// All returns a snapshot of the currently live (non-expired) sessions.
	// Order is unspecified.
	All(ctx context.Context) ([]Session[Data], error)

	// Len returns the count of live sessions, consistent with what All
	// would report at the same instant.
	Len(ctx context.Context) (int, error)
}
