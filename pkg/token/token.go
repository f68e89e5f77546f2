package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Expiry extracts the expiration time from a bearer token, best effort.
// The session treats tokens as opaque; this exists purely so the clients
// can display when a sign-in will lapse. Returns false for tokens that are
// not JWTs or carry no exp claim.
func Expiry(raw string) (time.Time, bool) {
	parser := jwtlib.NewParser()
	claims := jwtlib.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the token carries an exp claim in the past.
// Tokens without a readable expiry are never reported as expired; the
// backend remains the authority on validity.
func Expired(raw string, now time.Time) bool {
	exp, ok := Expiry(raw)
	return ok && exp.Before(now)
}
