package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brightpay/console/internal/console/domain"
	"github.com/brightpay/console/internal/console/store"
	"github.com/brightpay/console/pkg/cryptox"
	"github.com/brightpay/console/pkg/idx"
	"github.com/brightpay/console/pkg/jwtx"
	"github.com/brightpay/console/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two sub-cases are logged internally but must be indistinguishable
	// to the caller to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidToken covers every token rejection: malformed, bad
	// signature, expired, or the account no longer being usable.
	ErrInvalidToken = errors.New("invalid_token")

	ErrEmailTaken   = errors.New("email_taken")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrWeakPassword = errors.New("weak_password")
)

// MinPasswordLength is enforced before any store access.
const MinPasswordLength = 6

// Tokens is the cryptographic transform the service issues and checks session
// tokens with. *jwtx.HS256 satisfies it.
type Tokens interface {
	jwtx.Signer
	jwtx.Verifier
}

// AuthService orchestrates login, registration and token verification over
// the credential store, the password hasher and the token transform. It is
// stateless and safe for concurrent use.
type AuthService struct {
	Store      store.Store
	Tokens     Tokens
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Login authenticates an email/password pair and issues a session token.
// A lookup miss still burns a full hash comparison so that unknown-email and
// wrong-password responses are timing-indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	log := slogx.FromContext(ctx)
	email = NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.BurnVerification(password)
			log.Info("login rejected", "reason", "unknown_email")
			return domain.User{}, "", ErrInvalidCredentials
		}
		return domain.User{}, "", fmt.Errorf("login: lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login rejected", "reason", "wrong_password", "user_id", user.ID)
		return domain.User{}, "", ErrInvalidCredentials
	}

	if !user.IsActive() {
		log.Info("login rejected", "reason", "inactive_account", "user_id", user.ID)
		return domain.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("login: issue token: %w", err)
	}

	return user.Sanitized(), token, nil
}

// Register creates a new active account and issues a session token. Input is
// validated before any store access; the store's unique index on email is the
// final arbiter under concurrent registration with the same address.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (domain.User, string, error) {
	log := slogx.FromContext(ctx)
	email = NormalizeEmail(email)

	if err := ValidateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}

	// Cheap early check for a friendlier failure; the insert below still
	// handles the race where two registrations pass this at once.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, "", fmt.Errorf("register: lookup user: %w", err)
	}

	hash, err := cryptox.HashPassword(password, s.BcryptCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Info("registration lost uniqueness race", "email_domain", emailDomain(email))
			return domain.User{}, "", ErrEmailTaken
		}
		return domain.User{}, "", fmt.Errorf("register: create user: %w", err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("register: issue token: %w", err)
	}

	log.Info("user registered", "user_id", user.ID)
	return user.Sanitized(), token, nil
}

// VerifyToken validates a raw bearer token and resolves it to a live account.
// A deleted account invalidates its outstanding tokens immediately; so does a
// deactivated one, which is stricter than pure expiry-based invalidation.
func (s *AuthService) VerifyToken(ctx context.Context, raw string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.Tokens.Verify(raw)
	if err != nil {
		// Keep the precise reason for diagnostics; the caller only ever
		// sees ErrInvalidToken.
		log.Warn("token rejected", "reason", err.Error())
		return domain.User{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("token rejected", "reason", "account_gone", "user_id", claims.Subject)
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, fmt.Errorf("verify token: lookup user: %w", err)
	}

	if !user.IsActive() {
		log.Warn("token rejected", "reason", "account_inactive", "user_id", user.ID)
		return domain.User{}, ErrInvalidToken
	}

	return user.Sanitized(), nil
}

func (s *AuthService) issueToken(subject string) (string, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultTokenTTL
	}
	return s.Tokens.Sign(jwtx.NewClaims(subject, s.Issuer, ttl, time.Now().UTC()))
}

// NormalizeEmail produces the canonical form used for storage and matching:
// trimmed and lowercased. Matching is therefore case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail enforces the minimal shape: exactly one '@' with non-empty
// local and domain parts. Deliverability is not this system's problem.
func ValidateEmail(email string) error {
	local, dom, ok := strings.Cut(email, "@")
	if !ok || local == "" || dom == "" || strings.Contains(dom, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func emailDomain(email string) string {
	if _, dom, ok := strings.Cut(email, "@"); ok {
		return dom
	}
	return ""
}
