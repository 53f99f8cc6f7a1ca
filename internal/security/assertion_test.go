package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"tenant-auth-plane/internal/platform/ids"
)

func newVerifier(t *testing.T) (*AssertionVerifier, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewAssertionVerifier(&key.PublicKey, "test-idp", "test-api"), key
}

func TestVerify_ValidAssertion(t *testing.T) {
	v, key := newVerifier(t)
	userID := ids.NewUserID()

	assertion, err := SignAssertion(key, "test-idp", "test-api", userID, "a@example.com", time.Minute)
	if err != nil {
		t.Fatalf("SignAssertion: %v", err)
	}

	id, err := v.Verify(assertion)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != userID {
		t.Errorf("UserID = %v, want %v", id.UserID, userID)
	}
	if id.Email != "a@example.com" {
		t.Errorf("Email = %q", id.Email)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	v, key := newVerifier(t)
	assertion, err := SignAssertion(key, "someone-else", "test-api", ids.NewUserID(), "a@example.com", time.Minute)
	if err != nil {
		t.Fatalf("SignAssertion: %v", err)
	}
	if _, err := v.Verify(assertion); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("err = %v, want ErrInvalidAssertion", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	v, _ := newVerifier(t)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	assertion, err := SignAssertion(otherKey, "test-idp", "test-api", ids.NewUserID(), "a@example.com", time.Minute)
	if err != nil {
		t.Fatalf("SignAssertion: %v", err)
	}
	if _, err := v.Verify(assertion); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("err = %v, want ErrInvalidAssertion", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	v, key := newVerifier(t)
	assertion, err := SignAssertion(key, "test-idp", "test-api", ids.NewUserID(), "a@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("SignAssertion: %v", err)
	}
	if _, err := v.Verify(assertion); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("err = %v, want ErrInvalidAssertion", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	v, _ := newVerifier(t)
	if _, err := v.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("err = %v, want ErrInvalidAssertion", err)
	}
}
