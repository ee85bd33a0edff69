package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brightpay/console/internal/console/domain"
	"github.com/brightpay/console/internal/console/service"
	"github.com/brightpay/console/internal/console/store"
	"github.com/brightpay/console/internal/console/store/drivers/sqlite"
	"github.com/brightpay/console/pkg/cryptox"
	"github.com/brightpay/console/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := jwtx.NewHS256([]byte("test-secret"), "console-test")
	require.NoError(t, err)

	auth := &service.AuthService{
		Store:      st,
		Tokens:     tokens,
		Issuer:     "console-test",
		TokenTTL:   time.Hour,
		BcryptCost: cryptox.MinCost,
	}
	users := &service.UserService{Store: st, BcryptCost: cryptox.MinCost}

	r := NewRouter("test", false, st, slog.New(slog.DiscardHandler))
	r.AuthService = auth
	r.UserService = users
	r.ApplyRoutes()
	return r, st
}

// seedAdmin creates an admin account directly in the service layer and returns
// a session token for it obtained through the login endpoint.
func seedAdmin(t *testing.T, r *Router) string {
	t.Helper()

	_, err := r.UserService.Create(context.Background(), service.CreateUserInput{
		Email:    "admin@example.com",
		Name:     "Admin",
		Password: "secret1",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func doJSON(t *testing.T, r *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "name": "New", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)
	require.Equal(t, "new@example.com", created.User.Email)
	require.Equal(t, domain.RoleUser, created.User.Role)

	t.Run("response carries no hash material", func(t *testing.T) {
		body := rec.Body.String()
		require.NotContains(t, body, "password")
		require.NotContains(t, body, "$2a$")
	})

	t.Run("login with the same credentials", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "new@example.com", "password": "secret1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, created.User.ID, resp.User.ID)
	})

	t.Run("wrong password yields a uniform 401", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "new@example.com", "password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "invalid credentials", resp.Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "new@example.com",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email": "new@example.com", "password": "secret1",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "already registered")
	})
}

func TestVerifyEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "v@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	t.Run("valid token resolves the identity", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/auth/verify", created.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]UserResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, created.User.ID, resp["user"].ID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/auth/verify", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/auth/verify", "garbage", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUsersRoutesRequireAdminForMutations(t *testing.T) {
	r, _ := newTestRouter(t)
	adminToken := seedAdmin(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "member@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var member AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &member))

	t.Run("any authenticated identity may read", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/users", member.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []UserResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		require.Len(t, users, 2)
		require.NotContains(t, rec.Body.String(), "$2a$")
	})

	t.Run("unauthenticated reads are rejected", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin mutations get 403", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/users", member.Token, map[string]string{
			"email": "x@example.com", "password": "secret1",
		})
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, r, http.MethodDelete, "/api/users/"+member.User.ID, member.Token, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin full lifecycle", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/users", adminToken, map[string]string{
			"email": "managed@example.com", "name": "Managed", "password": "secret1",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var created UserResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

		rec = doJSON(t, r, http.MethodPut, "/api/users/"+created.ID, adminToken, map[string]string{
			"name": "Renamed",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Renamed")

		rec = doJSON(t, r, http.MethodGet, "/api/users/"+created.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, r, http.MethodDelete, "/api/users/"+created.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/api/users/"+created.ID, adminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deactivated account loses access", func(t *testing.T) {
		status := domain.StatusInactive
		rec := doJSON(t, r, http.MethodPut, "/api/users/"+member.User.ID, adminToken,
			map[string]string{"status": status})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/api/users", member.Token, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLoginRateLimit(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := map[string]string{"email": "rl@example.com", "password": "nope"}
	for i := 0; i < 5; i++ {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login", "", payload)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/auth/login", "", payload)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	t.Run("other sources are unaffected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"rl@example.com","password":"nope"}`))
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSystemEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("livez", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "ok", resp.Status)
		require.Equal(t, "test", resp.Version)
	})

	t.Run("readyz with a live store", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"store"`)
	})

	t.Run("readyz after the store is gone", func(t *testing.T) {
		router, st := newTestRouter(t)
		require.NoError(t, st.Close())

		rec := doJSON(t, router, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unknown routes get a JSON 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/nope", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		require.Contains(t, rec.Body.String(), "route not found")
	})
}
