package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints signed tokens from claims.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a raw token and gives you back the claims if it's legit.
type Verifier interface {
	Verify(raw string) (Claims, error)
}

// Verification failure reasons. These stay internal to the service for
// logging; the HTTP layer collapses all of them to a single 401 so the
// response gives no oracle about why a token was rejected.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
)

// DefaultLeeway absorbs small clock skew between the issuing process and a
// verifying process when validating exp/nbf. This is a deliberate policy
// choice, not something the token format requires.
const DefaultLeeway = 30 * time.Second

// HS256 signs and verifies tokens with a single shared symmetric secret.
// The secret is fixed for the life of the process; rotating it means
// restarting with a new one, which invalidates all outstanding tokens.
type HS256 struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewHS256 builds a combined signer/verifier. The secret must be non-empty;
// issuer is enforced on verification when non-empty.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &HS256{secret: secret, issuer: issuer, leeway: DefaultLeeway}, nil
}

// Sign produces a compact HS256-signed token for the given claims.
func (h *HS256) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(h.secret)
}

// Verify parses and validates raw, returning the embedded claims. Rejections
// map to the sentinel errors above; anything unexpected is reported as
// malformed rather than leaking parser internals.
func (h *HS256) Verify(raw string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(h.leeway),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}

	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !tok.Valid {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
