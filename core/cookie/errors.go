package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSecret is returned when the manager is created without any
	// non-empty secret.
	ErrNoSecret = errors.New("cookie: at least one secret is required")

	// ErrSecretTooShort is returned when a secret is shorter than the
	// 32 characters required for AES-256.
	ErrSecretTooShort = errors.New("cookie: secret too short")

	// ErrCookieNotFound is returned when the request carries no cookie
	// with the requested name.
	ErrCookieNotFound = errors.New("cookie: not found")

	// ErrInvalidFormat is returned when a signed or encrypted value does
	// not match the expected wire format.
	ErrInvalidFormat = errors.New("cookie: invalid format")

	// ErrInvalidSignature is returned when a signed value fails
	// verification against every configured secret.
	ErrInvalidSignature = errors.New("cookie: invalid signature")

	// ErrDecryptionFailed is returned when an encrypted value cannot be
	// decrypted with any configured secret.
	ErrDecryptionFailed = errors.New("cookie: decryption failed")

	// ErrMalformedHeader is returned by Parse when the Cookie header
	// cannot be decoded.
	ErrMalformedHeader = errors.New("cookie: malformed header")
)

// ErrCookieTooLarge is returned when the serialized cookie exceeds the
// manager's size limit.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie: %q is %d bytes, limit is %d", e.Name, e.Size, e.Max)
}
