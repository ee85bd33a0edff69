package service

import (
	"context"
	"testing"
	"time"

	"github.com/brightpay/console/internal/console/domain"
	"github.com/brightpay/console/internal/console/store"
	"github.com/brightpay/console/internal/console/store/drivers/sqlite"
	"github.com/brightpay/console/pkg/cryptox"
	"github.com/brightpay/console/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) (*AuthService, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())

	tokens, err := jwtx.NewHS256([]byte("test-secret"), "console-test")
	require.NoError(t, err)

	return &AuthService{
		Store:      st,
		Tokens:     tokens,
		Issuer:     "console-test",
		TokenTTL:   time.Hour,
		BcryptCost: cryptox.MinCost,
	}, st
}

func TestRegisterLoginVerifyFlow(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	user, t1, err := auth.Register(ctx, "a@b.com", "Alice", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, t1)
	require.Equal(t, "a@b.com", user.Email)
	require.Equal(t, domain.RoleUser, user.Role)
	require.Equal(t, domain.StatusActive, user.Status)
	require.Empty(t, user.PasswordHash, "returned identity must be sanitized")

	t.Run("registration token verifies to same subject", func(t *testing.T) {
		identity, err := auth.VerifyToken(ctx, t1)
		require.NoError(t, err)
		require.Equal(t, user.ID, identity.ID)
		require.Equal(t, "a@b.com", identity.Email)
		require.Empty(t, identity.PasswordHash)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, _, err := auth.Login(ctx, "a@b.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("login succeeds and both tokens share a subject", func(t *testing.T) {
		logged, t2, err := auth.Login(ctx, "a@b.com", "secret1")
		require.NoError(t, err)
		require.Equal(t, user.ID, logged.ID)
		require.Empty(t, logged.PasswordHash)

		identity, err := auth.VerifyToken(ctx, t2)
		require.NoError(t, err)
		require.Equal(t, user.ID, identity.ID)
	})

	t.Run("email matching is case-insensitive", func(t *testing.T) {
		logged, _, err := auth.Login(ctx, "A@B.COM", "secret1")
		require.NoError(t, err)
		require.Equal(t, user.ID, logged.ID)
	})
}

func TestLoginUnknownAndWrongAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	_, _, err := auth.Register(ctx, "known@example.com", "", "secret1")
	require.NoError(t, err)

	_, _, errUnknown := auth.Login(ctx, "nobody@example.com", "whatever")
	_, _, errWrong := auth.Login(ctx, "known@example.com", "wrong-password")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	t.Run("rejects malformed emails before the store", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "@nodomain", "nolocal@", "two@@ats", "a@b@c"} {
			_, _, err := auth.Register(ctx, email, "", "secret1")
			require.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
		}
	})

	t.Run("rejects short passwords before the store", func(t *testing.T) {
		_, _, err := auth.Register(ctx, "ok@example.com", "", "short")
		require.ErrorIs(t, err, ErrWeakPassword)

		users, err := st.Users().ListUsers(ctx)
		require.NoError(t, err)
		require.Empty(t, users, "nothing may be persisted on validation failure")
	})
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	_, _, err := auth.Register(ctx, "dup@example.com", "First", "secret1")
	require.NoError(t, err)

	_, _, err = auth.Register(ctx, "dup@example.com", "Second", "secret2")
	require.ErrorIs(t, err, ErrEmailTaken)

	t.Run("case variant is still the same address", func(t *testing.T) {
		_, _, err := auth.Register(ctx, "DUP@Example.com", "Third", "secret3")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	users, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1, "no duplicate record may exist")
}

func TestRegisterUniquenessRaceFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	_, st := newTestAuth(t)

	// Simulate losing the race: a duplicate insert that slipped past the
	// service's early lookup. The unique index is the arbiter and the
	// violation must surface as AlreadyExists.
	hash, err := cryptox.HashPassword("secret1", cryptox.MinCost)
	require.NoError(t, err)

	err = st.Users().CreateUser(ctx, domain.User{
		ID:           "01JD0000000000000000000001",
		Email:        "raced@example.com",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
	})
	require.NoError(t, err)

	err = st.Users().CreateUser(ctx, domain.User{
		ID:           "01JD0000000000000000000002",
		Email:        "raced@example.com",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestVerifyTokenRejections(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	user, token, err := auth.Register(ctx, "gone@example.com", "", "secret1")
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := auth.VerifyToken(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other, err := jwtx.NewHS256([]byte("other-secret"), "console-test")
		require.NoError(t, err)
		forged, err := other.Sign(jwtx.NewClaims(user.ID, "console-test", time.Hour, time.Now().UTC()))
		require.NoError(t, err)

		_, err = auth.VerifyToken(ctx, forged)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := auth.Tokens.Sign(jwtx.NewClaims(
			user.ID, "console-test", time.Hour, time.Now().UTC().Add(-2*time.Hour)))
		require.NoError(t, err)

		_, err = auth.VerifyToken(ctx, expired)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("deactivated account invalidates outstanding tokens", func(t *testing.T) {
		inactive := domain.StatusInactive
		require.NoError(t, st.Users().UpdateUser(ctx, user.ID, store.UserPatch{Status: &inactive}))

		_, err := auth.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)

		// Reactivate: the token works again since it never expired.
		active := domain.StatusActive
		require.NoError(t, st.Users().UpdateUser(ctx, user.ID, store.UserPatch{Status: &active}))
		_, err = auth.VerifyToken(ctx, token)
		require.NoError(t, err)
	})

	t.Run("deleted account invalidates outstanding tokens", func(t *testing.T) {
		require.NoError(t, st.Users().DeleteUser(ctx, user.ID))

		_, err := auth.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLoginInactiveAccount(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	user, _, err := auth.Register(ctx, "sleepy@example.com", "", "secret1")
	require.NoError(t, err)

	inactive := domain.StatusInactive
	require.NoError(t, st.Users().UpdateUser(ctx, user.ID, store.UserPatch{Status: &inactive}))

	_, _, err = auth.Login(ctx, "sleepy@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateEmail("a@b.com"))
	require.NoError(t, ValidateEmail("first.last@sub.domain.org"))
	require.ErrorIs(t, ValidateEmail("a@"), ErrInvalidEmail)
	require.ErrorIs(t, ValidateEmail("@b"), ErrInvalidEmail)
	require.ErrorIs(t, ValidateEmail("ab.com"), ErrInvalidEmail)
	require.ErrorIs(t, ValidateEmail("a@b@c.com"), ErrInvalidEmail)
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
}
