package domain

import "time"

// Roles a user record can hold. Role gating is layered on top of
// authentication; the gate itself admits any authenticated identity.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses. Inactive accounts keep their record but can no longer
// authenticate or use outstanding tokens.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is the canonical user record. Field naming drift in upstream data
// sources is resolved at the store boundary; nothing above the store ever
// sees an alternative schema.
type User struct {
	ID           string
	Email        string // stored lowercase; matching is case-insensitive
	Name         string
	PasswordHash string // bcrypt encoded; never serialized
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy safe for any outbound payload: the password hash
// is cleared. Persisted records always carry a non-empty hash, so callers can
// use an empty hash as a marker that the value has been stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool { return u.Status == StatusActive }
