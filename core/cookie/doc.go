// Package cookie provides secure HTTP cookie management with signing,
// encryption, and flash messages, plus a strict Cookie header parser for
// middleware that needs to report malformed headers explicitly.
//
// # Features
//
//   - AES-256-GCM encryption for sensitive data
//   - HMAC-SHA256 signing for tamper detection
//   - Automatic key rotation support
//   - Flash messages (one-time read cookies)
//   - 4KB size limit enforcement
//   - Secure defaults (HttpOnly, SameSite protection)
//   - Environment-based configuration
//
// # Basic Usage
//
// Create a manager with secret keys and use it to manage cookies:
//
//	manager, err := cookie.New([]string{"your-32-char-secret-key-here!!!!"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Set a simple cookie
//	err = manager.Set(w, "user_id", "12345", cookie.WithMaxAge(3600))
//
//	// Get a cookie value
//	value, err := manager.Get(r, "user_id")
//	if errors.Is(err, cookie.ErrCookieNotFound) {
//		// Cookie doesn't exist
//	}
//
//	// Delete a cookie
//	manager.Delete(w, "user_id")
//
// # Signed and Encrypted Cookies
//
// Signed cookies detect tampering, encrypted cookies additionally hide the
// value:
//
//	err = manager.SetSigned(w, "role", "admin")
//	role, err := manager.GetSigned(r, "role")
//
//	err = manager.SetEncrypted(w, "token", secretToken)
//	token, err := manager.GetEncrypted(r, "token")
//
// The first secret signs and encrypts; older secrets are still accepted
// during verification, so keys can be rotated without invalidating cookies.
//
// # Header Parsing
//
// Parse decodes a raw Cookie header and reports malformed input as an
// error rather than silently returning a partial map:
//
//	cookies, err := cookie.Parse(r.Header.Get("Cookie"))
//	if err != nil {
//		cookies = map[string]string{} // fail open
//	}
package cookie
