package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID holds the authenticated subject's user ID (string).
	CtxKeyUserID ctxKey = "user_id"

	// CtxKeyIdentity holds the full request-scoped identity attached by the
	// authentication gate. It is owned by the request and must never be
	// cached across requests.
	CtxKeyIdentity ctxKey = "identity"
)

// UserIDFromCtx returns the authenticated user ID, or "" when the request
// never passed the authentication gate.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
