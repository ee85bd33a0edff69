package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/brightpay/console/internal/console/domain"
	"github.com/brightpay/console/internal/console/service"
	"github.com/brightpay/console/pkg/httpx"
)

// AuthnMiddleware is the authentication gate. It extracts the bearer token,
// delegates verification (signature, expiry, live account check) to the auth
// service and attaches the resolved identity to the request context. Any
// failure terminates the request with 401 before the downstream handler runs.
func AuthnMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httpx.WriteBearerError(w, "missing bearer token")
				return
			}

			identity, err := auth.VerifyToken(r.Context(), raw)
			if err != nil {
				writeServiceError(w, r, err, false)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole layers role gating on top of the authentication gate. It only
// consumes the identity the gate attached; it never re-verifies the token.
func RequireRole(role string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromCtx(r.Context())
			if !ok {
				httpx.WriteBearerError(w, "missing bearer token")
				return
			}
			if identity.Role != role {
				httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
					Message: "insufficient privileges",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	return raw, raw != ""
}

func withIdentity(ctx context.Context, u domain.User) context.Context {
	ctx = context.WithValue(ctx, httpx.CtxKeyUserID, u.ID)
	return context.WithValue(ctx, httpx.CtxKeyIdentity, u)
}

func identityFromCtx(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(httpx.CtxKeyIdentity).(domain.User)
	return u, ok
}
