package auth

import (
	"errors"
	"net/http"

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

type LoginReq struct {
	Username string `json:"username" validate:"required,max=30"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login handles POST /auth/login
// @Summary User login
// @Description Authenticate with username and password. A refresh token is returned only when remember is true.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 503 {object} httpx.ErrorResponse
// @Router /auth/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password, req.Remember)
	if err != nil {
		h.logFailure(r, "login", err)
		WriteError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, loginResponse{
		UserID:       res.UserID,
		Role:         res.Role,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	}, nil)
}

type RefreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshToken handles POST /auth/refresh-token
// @Summary Refresh access token
// @Description Get a new access token using a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshReq true "Refresh token request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 503 {object} httpx.ErrorResponse
// @Router /auth/refresh-token [post]
func (h *HTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logFailure(r, "refresh token", err)
		writeRefreshError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, refreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	}, nil)
}

// Logout handles POST /auth/logout
// @Summary User logout
// @Description Revoke the current access token and delete every refresh token of the caller
// @Tags auth
// @Security Bearer
// @Success 204 "No Content"
// @Failure 401 {object} httpx.ErrorResponse
// @Router /auth/logout [post]
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := Principal{UserID: httpx.UserIDFrom(r), Role: httpx.RoleFrom(r)}

	// The caller is logged out from their point of view either way.
	if err := h.service.Logout(r.Context(), p, httpx.TokenFrom(r)); err != nil {
		h.log.Error(r.Context(), "logout failed", "user_id", p.UserID, "error", err, "request_id", httpx.RequestIDFrom(r))
	}
	httpx.JSONSuccessNoContent(w)
}

func (h *HTTPHandler) logFailure(r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrSessionStateUnavailable):
		h.log.Error(r.Context(), op+" unavailable", "error", err, "request_id", httpx.RequestIDFrom(r))
	case errors.Is(err, ErrConfiguration):
		h.log.Error(r.Context(), op+" misconfigured", "error", err)
	default:
		h.log.Debug(r.Context(), op+" rejected", "error", err)
	}
}
