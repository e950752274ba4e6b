package refurl

import (
	"encoding/base64"
	"net/url"
)

// Resolve decodes an opaque URL-safe-base64 continuation reference and
// returns the landing destination after successful verification.
//
// The decoded value is honoured only when it is a well-formed absolute URL
// carrying the given plan query parameter; anything else — bad base64, a
// relative URL, a URL without the marker — falls back to the default
// destination. The result is never empty and never an error.
func Resolve(ref, planParam, fallback string) string {
	if ref == "" {
		return fallback
	}
	raw, err := base64.RawURLEncoding.DecodeString(ref)
	if err != nil {
		// Tolerate padded input from older callers.
		raw, err = base64.URLEncoding.DecodeString(ref)
		if err != nil {
			return fallback
		}
	}
	u, err := url.Parse(string(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fallback
	}
	if planParam != "" && u.Query().Get(planParam) == "" {
		return fallback
	}
	return u.String()
}
