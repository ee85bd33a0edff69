package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session token lifetime used when the deployment
// doesn't configure one.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the session-token claims. The subject is the user ID; everything
// else is standard registered claims. Custom fields should only ever be added,
// never renamed, to keep old tokens parseable.
type Claims struct {
	jwt.RegisteredClaims
}

// NewClaims builds minimally-correct claims for a session token bound to
// subject, expiring ttl after now.
func NewClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
