package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCallerTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	now := time.Unix(1_700_000_000, 0)

	token, err := IssueCallerToken("alice", time.Hour, secret, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sub, err := CallerFromToken(token, secret, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("expected alice, got %q", sub)
	}

	if _, err := CallerFromToken(token, secret, now.Add(time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if _, err := CallerFromToken(token, []byte("other"), now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}

func TestCallerTokenWithoutExpiry(t *testing.T) {
	secret := []byte("s3cret")
	token, err := IssueCallerToken("bob", 0, secret, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := CallerFromToken(token, secret, time.Now()); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestParseRejectsTampering(t *testing.T) {
	secret := []byte("s3cret")
	token, err := SignHS256(map[string]any{"sub": "alice"}, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	forged, _ := SignHS256(map[string]any{"sub": "mallory"}, secret)
	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := ParseAndVerifyHS256(tampered, secret); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
	if _, err := ParseAndVerifyHS256("not-a-token", secret); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected malformed token, got %v", err)
	}
	if _, err := IssueCallerToken("", time.Hour, secret, time.Now()); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected missing subject, got %v", err)
	}
}
