package token

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	raw, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestExpiryReadsExpClaim(t *testing.T) {
	want := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw := signedToken(t, jwtlib.MapClaims{"sub": "u1", "exp": want.Unix()})

	got, ok := Expiry(raw)
	if !ok {
		t.Fatalf("expected readable expiry")
	}
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExpiryWithoutExpClaim(t *testing.T) {
	raw := signedToken(t, jwtlib.MapClaims{"sub": "u1"})
	if _, ok := Expiry(raw); ok {
		t.Fatalf("token without exp must not report an expiry")
	}
}

func TestExpiryRejectsOpaqueToken(t *testing.T) {
	if _, ok := Expiry("not-a-jwt"); ok {
		t.Fatalf("opaque token must not report an expiry")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := signedToken(t, jwtlib.MapClaims{"exp": now.Add(-time.Minute).Unix()})
	future := signedToken(t, jwtlib.MapClaims{"exp": now.Add(time.Minute).Unix()})

	if !Expired(past, now) {
		t.Fatalf("token with past exp should be expired")
	}
	if Expired(future, now) {
		t.Fatalf("token with future exp should not be expired")
	}
	if Expired("opaque", now) {
		t.Fatalf("unreadable token must never be reported expired")
	}
}
