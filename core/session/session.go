package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// Session holds per-visitor state with generic data storage. The Data type
// parameter allows custom session payloads specific to your application.
type Session[Data any] struct {
	// ID is the cryptographically unguessable session identifier
	// (32 random bytes, base64url). It doubles as the cookie value.
	ID string

	// Data holds custom application-specific session information.
	// Examples: shopping cart, UI preferences, flash messages.
	Data Data

	CreatedAt  time.Time
	LastAccess time.Time
}

// New creates an empty session with a freshly generated ID.
func New[Data any]() (Session[Data], error) {
	id, err := GenerateID()
	if err != nil {
		return Session[Data]{}, err
	}

	now := time.Now()
	return Session[Data]{
		ID:         id,
		Data:       *new(Data),
		CreatedAt:  now,
		LastAccess: now,
	}, nil
}

// Touch bumps the last-access timestamp, extending the session's TTL
// window from now.
func (s *Session[Data]) Touch() {
	s.LastAccess = time.Now()
}

// Expired reports whether the session's last access is more than maxAge in
// the past. A non-positive maxAge means sessions never expire.
func (s Session[Data]) Expired(maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return time.Since(s.LastAccess) > maxAge
}

// GenerateID creates a cryptographically secure session identifier using
// 32 bytes (256 bits) encoded as a base64 URL-safe string without padding.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
