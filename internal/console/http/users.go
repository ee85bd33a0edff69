package http

import (
	"encoding/json"
	"net/http"

	"github.com/brightpay/console/internal/console/service"
	"github.com/brightpay/console/pkg/httpx"
)

// UsersHandler exposes the admin record management routes. All of them sit
// behind the authentication gate; mutations additionally require the admin
// role (wired in the router, not here).
type UsersHandler struct {
	UserService *service.UserService
	DevMode     bool
}

// HandleList godoc
//
//	@Summary	List user records
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}		UserResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/api/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}

	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Fetch one user record
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	UserResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// HandleCreate godoc
//
//	@Summary	Create a user record (admin)
//	@Tags		Users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		createUserRequest	true	"New user"
//	@Success	201		{object}	UserResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	403		{object}	ErrorResponse
//	@Router		/api/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "request body must be valid JSON"})
		return
	}

	user, err := h.UserService.Create(r.Context(), service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

// HandleUpdate godoc
//
//	@Summary	Update a user record (admin)
//	@Tags		Users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"User ID"
//	@Param		request	body		updateUserRequest	true	"Fields to change"
//	@Success	200		{object}	UserResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "request body must be valid JSON"})
		return
	}

	user, err := h.UserService.Update(r.Context(), r.PathValue("id"), service.UpdateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleDelete godoc
//
//	@Summary	Delete a user record (admin)
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, h.DevMode)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
