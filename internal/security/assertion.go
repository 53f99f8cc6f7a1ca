package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenant-auth-plane/internal/platform/ids"
)

// ErrInvalidAssertion is returned when a login assertion is malformed, has a
// bad signature, wrong issuer/audience, or is expired.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// AssertionClaims are the claims the identity provider puts on a login
// assertion. Subject carries the user id.
type AssertionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity is the verified content of a login assertion.
type Identity struct {
	UserID ids.UserID
	Email  string
}

// AssertionVerifier verifies RS256/ES256 assertions issued by the external
// identity provider. A verified assertion is the only input from which a
// session may be created.
type AssertionVerifier struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewAssertionVerifier returns a verifier for assertions signed by the given
// public key with the expected issuer and audience.
func NewAssertionVerifier(publicKey crypto.PublicKey, issuer, audience string) *AssertionVerifier {
	return &AssertionVerifier{publicKey: publicKey, issuer: issuer, audience: audience}
}

// Verify checks signature, issuer, audience, and expiry, then parses the
// subject into the canonical typed user id. Any failure maps to
// ErrInvalidAssertion; callers treat it as a 401, never as a server error.
func (v *AssertionVerifier) Verify(assertion string) (*Identity, error) {
	claims := &AssertionClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims,
		func(t *jwt.Token) (any, error) { return v.publicKey, nil },
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidAssertion
	}

	userID, err := ids.ParseUserID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	return &Identity{UserID: userID, Email: claims.Email}, nil
}

// SignAssertion signs an assertion for dev tooling and tests. method is chosen
// from the key type like the identity provider would (RS256 for RSA, ES256 for
// ECDSA).
func SignAssertion(key crypto.Signer, issuer, audience string, userID ids.UserID, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	method, err := signingMethodFor(key)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(method, claims).SignedString(key)
}

func signingMethodFor(key crypto.Signer) (jwt.SigningMethod, error) {
	switch key.Public().(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		return jwt.SigningMethodES256, nil
	default:
		return nil, ErrInvalidKey
	}
}
