package security

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID used for player and token ids
func NewID() string {
	return uuid.New().String()
}

// BearerToken extracts the token from an Authorization header, falling back to the
// token query parameter used by websocket clients that cannot set headers
func BearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
