package cookie

import "strings"

// Parse decodes a raw Cookie header into a name→value map. It returns an
// explicit error for a malformed header instead of a partial result; the
// caller's policy decides what to substitute. The pipeline middleware
// swaps in the empty map so the chain continues (fail-open).
//
// Duplicate names keep the first occurrence, matching browser ordering
// where the most specific cookie is sent first.
func Parse(header string) (map[string]string, error) {
	cookies := make(map[string]string)
	if header == "" {
		return cookies, nil
	}

	for pair := range strings.SplitSeq(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, ErrMalformedHeader
		}

		name = strings.TrimSpace(name)
		if name == "" || !validCookieName(name) {
			return nil, ErrMalformedHeader
		}

		value = strings.TrimSpace(value)
		// Strip optional double quotes around the value.
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}

		if _, exists := cookies[name]; !exists {
			cookies[name] = value
		}
	}

	return cookies, nil
}

// validCookieName reports whether name is a valid RFC 6265 cookie-name
// (an HTTP token: no separators, no control characters).
func validCookieName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || strings.IndexByte(`()<>@,;:\"/[]?={}`, c) >= 0 {
			return false
		}
	}
	return true
}
