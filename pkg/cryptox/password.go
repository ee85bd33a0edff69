package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the floor for the bcrypt work factor. Anything below this
	// verifies too fast to meaningfully resist offline brute force.
	MinCost = 10

	// DefaultCost keeps verification in the 50-250ms range on current
	// server hardware.
	DefaultCost = 12
)

// ErrMismatch is the single failure mode for VerifyPassword. A malformed or
// empty stored hash produces the same error as a wrong password so callers
// cannot tell the two cases apart.
var ErrMismatch = errors.New("cryptox: password does not match")

// dummyHash is a real bcrypt digest of a random throwaway value. It exists so
// that code paths which have no stored hash to compare against (unknown
// account, empty hash column) can still burn a full bcrypt verification and
// stay timing-indistinguishable from a wrong-password rejection.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// HashPassword returns a bcrypt digest of password. The salt is generated per
// call and embedded in the returned string, so no separate salt storage is
// needed. Costs below MinCost are raised to MinCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < MinCost {
		cost = MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext candidate against a stored bcrypt
// digest. bcrypt performs the comparison in constant time relative to the
// candidate. Every failure, including an unparseable stored hash, collapses
// to ErrMismatch.
func VerifyPassword(password, encodedHash string) error {
	if bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) != nil {
		return ErrMismatch
	}
	return nil
}

// BurnVerification runs a full-cost comparison against the built-in dummy
// digest and always reports a mismatch. Call it on lookup misses so the
// response time matches a real wrong-password check.
func BurnVerification(password string) error {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
	return ErrMismatch
}
