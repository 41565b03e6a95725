package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of registered claims the client reads.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// LooksLikeJWT reports whether tok has the three-segment JWS shape.
func LooksLikeJWT(tok string) bool {
	return strings.Count(tok, ".") == 2 && !strings.ContainsAny(tok, " \t\r\n")
}

// Inspect decodes the claims of a JWT without checking its signature.
// ok is false for opaque tokens and for JWTs whose payload cannot be decoded.
func Inspect(tok string) (Claims, bool) {
	if !LooksLikeJWT(tok) {
		return Claims{}, false
	}

	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &rc); err != nil {
		return Claims{}, false
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	return c, true
}

// ExpiresAt returns the exp claim of a JWT. ok is false when tok is not a
// JWT or carries no exp claim.
func ExpiresAt(tok string) (time.Time, bool) {
	c, ok := Inspect(tok)
	if !ok || c.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return c.ExpiresAt, true
}

// Expired reports whether tok is a JWT whose exp claim is not after now.
// Opaque tokens are never reported as expired.
func Expired(tok string, now time.Time) bool {
	exp, ok := ExpiresAt(tok)
	return ok && !now.Before(exp)
}
