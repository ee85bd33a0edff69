package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/brightpay/console/internal/console/domain"
	"github.com/brightpay/console/internal/console/service"
	"github.com/brightpay/console/pkg/httpx"
	"github.com/brightpay/console/pkg/slogx"
)

// UserResponse is the outbound representation of a user record. There is no
// password hash field at all, so it cannot leak by accident.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// ErrorResponse is the uniform error payload. Detail is only populated in
// dev deployments.
type ErrorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// writeServiceError maps service-layer sentinels onto HTTP statuses. Input
// problems come back as 400 with the field-level reason; credential and token
// problems collapse to uniform 401s; anything unexpected is a 500 that never
// exposes internals unless the deployment runs in dev mode.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, dev bool) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "email must have one @ with non-empty local and domain parts"})
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "password must be at least 6 characters"})
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "email already registered"})
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidState):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid role or status value"})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteBearerError(w, "invalid or expired token")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{Message: "user not found"})
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		resp := ErrorResponse{Message: "internal server error"}
		if dev {
			resp.Detail = err.Error()
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, resp)
	}
}
