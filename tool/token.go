package tool

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// tokenBytes gives 256 bits of entropy per capability token, well past
// the point where guessing is feasible.
const tokenBytes = 32

// GenerateSessionID returns a new opaque session identifier.
func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateToken returns an unguessable capability token drawn from
// crypto/rand. Possession of the token is the whole authentication
// scheme, so running out of entropy is not survivable.
func GenerateToken() string {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		DefaultLogger.Fatalf("failed to read random bytes for token: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
