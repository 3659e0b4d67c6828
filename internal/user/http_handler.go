package user

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"socialapi/internal/httpx"
	"socialapi/internal/logging"
)

type HTTPHandler struct {
	service *Service
	log     logging.Logger
}

func NewHTTPHandler(service *Service, log logging.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

type registerReq struct {
	Email     string `json:"email" validate:"required,email,max=60"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	Password  string `json:"password" validate:"required,password_strength"`
	FirstName string `json:"first_name" validate:"omitempty,max=60"`
	LastName  string `json:"last_name" validate:"omitempty,max=60"`
	Birthdate string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toResponse(u User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.Birthdate != nil {
		resp.Birthdate = u.Birthdate.Format("2006-01-02")
	}
	return resp
}

// RegisterUser handles POST /auth/signup
// @Summary Register a new user
// @Description Create a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerReq true "Registration request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/signup [post]
func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	in := RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if req.Birthdate != "" {
		// Already checked by the datetime rule.
		b, _ := time.Parse("2006-01-02", req.Birthdate)
		in.Birthdate = &b
	}

	u, err := h.service.Register(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Email or username already taken", nil)
			return
		}
		h.internalError(w, r, "register user", err)
		return
	}

	if base := httpx.BaseURLFrom(r); base != "" {
		w.Header().Set("Location", base+"/users/"+u.ID)
	}
	httpx.JSONSuccessCreated(w, r, toResponse(u))
}

// GetCurrentUser handles GET /me
// @Summary Get current user
// @Description Get the authenticated user's information
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /me [get]
func (h *HTTPHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, httpx.UserIDFrom(r))
}

// GetUser handles GET /users/{id}
// @Summary Get a user
// @Description Admin-only lookup of any account
// @Tags users
// @Produce json
// @Security Bearer
// @Param id path string true "User ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/{id} [get]
func (h *HTTPHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, r.PathValue("id"))
}

func (h *HTTPHandler) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get user", err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(u), nil)
}

type updateUserReq struct {
	Email     string `json:"email" validate:"omitempty,email,max=60"`
	Username  string `json:"username" validate:"omitempty,min=3,max=30"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
	FirstName string `json:"first_name" validate:"omitempty,max=60"`
	LastName  string `json:"last_name" validate:"omitempty,max=60"`
}

// UpdateUser handles PUT /users/{id}
// @Summary Update a user
// @Description Partial profile update. Owner or admin; only an admin may change the role, which signs the account out everywhere.
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "User ID"
// @Param request body updateUserReq true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /users/{id} [put]
func (h *HTTPHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.Update(r.Context(), actorFrom(r), r.PathValue("id"), UpdateInput{
		Email:     req.Email,
		Username:  req.Username,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, r, "update user", err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(u), nil)
}

// DeleteUser handles DELETE /users/{id}
// @Summary Delete a user
// @Description Delete an account and revoke its sessions. Owner or admin only.
// @Tags users
// @Security Bearer
// @Param id path string true "User ID"
// @Success 204 "No Content"
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/{id} [delete]
func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, "delete user", err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

type updatePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"required"`
}

// UpdatePassword handles PUT /users/{id}/update-password
// @Summary Change password
// @Description Owner must send the old password; admins may omit it.
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "User ID"
// @Param request body updatePasswordReq true "Password change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/{id}/update-password [put]
func (h *HTTPHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), actorFrom(r), r.PathValue("id"), req.OldPassword, req.NewPassword)
	if err != nil {
		h.writeError(w, r, "change password", err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"message": "The password has been updated"}, nil)
}

func actorFrom(r *http.Request) Actor {
	return Actor{ID: httpx.UserIDFrom(r), Role: httpx.RoleFrom(r)}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	case errors.Is(err, ErrForbidden):
		httpx.JSONError(w, r, http.StatusForbidden, "INSUFFICIENT_RIGHTS", "Insufficient rights", nil)
	case errors.Is(err, ErrBadCredentials):
		httpx.JSONError(w, r, http.StatusUnauthorized, "BAD_CREDENTIALS", "Bad credentials", nil)
	case errors.Is(err, ErrOldPasswordNeeded):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "old_password and new_password are required", nil)
	case errors.Is(err, ErrAlreadyExists):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Email or username already taken", nil)
	case errors.Is(err, ErrInvalidRole):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", []httpx.ErrorDetail{
			{Field: "role", Message: "must be one of: user admin"},
		})
	case errors.Is(err, ErrSamePassword):
		httpx.JSONError(w, r, http.StatusBadRequest, "SAME_PASSWORD", "The new password must differ from the old one", nil)
	case isWeakPassword(err):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", []httpx.ErrorDetail{
			{Field: "new_password", Message: err.Error()},
		})
	default:
		h.internalError(w, r, op, err)
	}
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(r.Context(), op+" failed", "error", err, "request_id", httpx.RequestIDFrom(r))
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
