package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	// MaxCookieSize is the maximum serialized size for a cookie (4KB).
	MaxCookieSize = 4096
	// minSecretLength is the minimum secret length for AES-256.
	minSecretLength = 32
	// flashPrefix namespaces flash cookies to prevent conflicts.
	flashPrefix = "__flash_"
)

// Manager handles HTTP cookie operations with optional signing and
// encryption. Secrets are ordered: the first one signs/encrypts, the rest
// are accepted during verification to support key rotation.
type Manager struct {
	secrets  []string
	defaults Options
	maxSize  int
}

// ManagerOption configures the Manager itself (not individual cookies).
type ManagerOption func(*Manager)

// WithMaxSize sets the maximum serialized cookie size.
func WithMaxSize(size int) ManagerOption {
	return func(m *Manager) {
		if size > 0 {
			m.maxSize = size
		}
	}
}

// New creates a cookie manager with the given secrets and default cookie
// options. At least one secret of 32+ characters is required.
func New(secrets []string, opts ...Option) (*Manager, error) {
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	for i := range secrets {
		if len(secrets[i]) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d",
				ErrSecretTooShort, i, len(secrets[i]), minSecretLength)
		}
	}

	// Secure defaults
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	defaults = applyOptions(defaults, opts)

	return &Manager{
		secrets:  secrets,
		defaults: defaults,
		maxSize:  MaxCookieSize,
	}, nil
}

// NewWithOptions creates a cookie manager with additional manager options.
func NewWithOptions(secrets []string, cookieOpts []Option, managerOpts ...ManagerOption) (*Manager, error) {
	m, err := New(secrets, cookieOpts...)
	if err != nil {
		return nil, err
	}
	for _, opt := range managerOpts {
		opt(m)
	}
	return m, nil
}

// Set stores a plain cookie value.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	options := applyOptions(m.defaults, opts)

	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	}

	if header := cookie.String(); len(header) > m.maxSize {
		return ErrCookieTooLarge{Name: name, Size: len(header), Max: m.maxSize}
	}

	http.SetCookie(w, cookie)
	return nil
}

// Get retrieves a plain cookie value.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

// Delete removes a cookie by answering with an already-expired replacement.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     m.defaults.Path,
		Domain:   m.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: m.defaults.HttpOnly,
		SameSite: m.defaults.SameSite,
		Secure:   m.defaults.Secure,
	})
}

// SetSigned stores an HMAC-signed cookie value.
func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) error {
	return m.Set(w, name, m.Sign(value), opts...)
}

// GetSigned retrieves and verifies a signed cookie value.
func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	signed, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.Verify(signed)
}

// SetEncrypted stores an AES-256-GCM encrypted cookie value.
func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	encrypted, err := m.encrypt(value)
	if err != nil {
		return err
	}
	return m.Set(w, name, encrypted, opts...)
}

// GetEncrypted retrieves and decrypts a cookie value.
func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	encrypted, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.decrypt(encrypted)
}

// SetFlash stores a one-time message that is deleted after reading.
func (m *Manager) SetFlash(w http.ResponseWriter, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}
	return m.SetEncrypted(w, flashPrefix+key, string(data))
}

// GetFlash retrieves and deletes a flash message.
func (m *Manager) GetFlash(w http.ResponseWriter, r *http.Request, key string, dest any) error {
	cookieName := flashPrefix + key

	data, err := m.GetEncrypted(r, cookieName)
	if err != nil {
		return err
	}

	// Delete immediately after reading
	m.Delete(w, cookieName)

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshal flash: %w", err)
	}
	return nil
}

// Sign returns the signed wire form of value: base64(value)|base64(hmac).
// The primary (first) secret produces the signature.
func (m *Manager) Sign(value string) string {
	payload := base64.URLEncoding.EncodeToString([]byte(value))
	return payload + "|" + m.mac(m.secrets[0], []byte(value))
}

// Verify checks a signed wire value and returns the original. Every
// configured secret is tried so rotated-out keys keep verifying.
func (m *Manager) Verify(signed string) (string, error) {
	payload, sig, ok := strings.Cut(signed, "|")
	if !ok {
		return "", ErrInvalidFormat
	}

	value, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidFormat
	}

	for _, secret := range m.secrets {
		want := m.mac(secret, value)
		if subtle.ConstantTimeCompare([]byte(sig), []byte(want)) == 1 {
			return string(value), nil
		}
	}
	return "", ErrInvalidSignature
}

func (m *Manager) mac(secret string, value []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(value)
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// aead builds an AES-256-GCM cipher keyed by the first 32 bytes of secret.
func (m *Manager) aead(secret string) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(secret[:minSecretLength]))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals value with the primary secret. The nonce is prepended to
// the ciphertext before base64 encoding.
func (m *Manager) encrypt(value string) (string, error) {
	gcm, err := m.aead(m.secrets[0])
	if err != nil {
		return "", err
	}

	sealed := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(value)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, sealed); err != nil {
		return "", err
	}

	sealed = gcm.Seal(sealed, sealed[:gcm.NonceSize()], []byte(value), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// decrypt opens a sealed value, trying every secret for key rotation.
func (m *Manager) decrypt(encrypted string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrInvalidFormat
	}

	for _, secret := range m.secrets {
		gcm, err := m.aead(secret)
		if err != nil || len(raw) < gcm.NonceSize() {
			continue
		}
		plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
		if err == nil {
			return string(plaintext), nil
		}
	}
	return "", ErrDecryptionFailed
}
