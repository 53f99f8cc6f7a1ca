// Package security holds token generation and identity-provider assertion
// verification for the auth plane.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the entropy of a session token. 32 bytes = 256 bits.
const tokenBytes = 32

// NewSessionToken returns a cryptographically random opaque session token.
// Tokens are stored verbatim and looked up by equality on an indexed column.
func NewSessionToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
