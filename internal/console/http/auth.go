package http

import (
	"encoding/json"
	"net/http"

	"github.com/brightpay/console/internal/console/service"
	"github.com/brightpay/console/pkg/httpx"
)

type LoginHandler struct {
	AuthService *service.AuthService
	DevMode     bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP handles login.
//
//	@Summary		Authenticate with email and password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	AuthResponse	"User and session token"
//	@Failure		400		{object}	ErrorResponse	"Malformed request body"
//	@Failure		401		{object}	ErrorResponse	"Invalid credentials"
//	@Router			/api/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "request body must be valid JSON"})
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "email and password are required"})
		return
	}

	user, token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AuthResponse{User: toUserResponse(user), Token: token})
}

type RegisterHandler struct {
	AuthService *service.AuthService
	DevMode     bool
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ServeHTTP handles registration.
//
//	@Summary		Register a new account
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"New account details"
//	@Success		201		{object}	AuthResponse	"Created user and session token"
//	@Failure		400		{object}	ErrorResponse	"Validation failed or email taken"
//	@Failure		500		{object}	ErrorResponse	"Internal error"
//	@Router			/api/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "request body must be valid JSON"})
		return
	}

	user, token, err := h.AuthService.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, AuthResponse{User: toUserResponse(user), Token: token})
}

// VerifyHandler echoes the identity the authentication gate resolved. It sits
// behind the gate, so reaching it at all means the token checked out.
type VerifyHandler struct{}

// ServeHTTP handles token verification.
//
//	@Summary		Verify the presented bearer token
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	map[string]UserResponse	"Resolved user"
//	@Failure		401	{object}	ErrorResponse			"Missing or invalid token"
//	@Router			/api/auth/verify [get].
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]UserResponse{"user": toUserResponse(identity)})
}
