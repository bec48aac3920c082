package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
)

type RegisterHandler struct {
	UserService *service.UserService
}

// ServeHTTP handles POST /api/register.
//
//	@Summary		Register a user
//	@Description	Creates an account. Usernames are unique. isAdmin defaults to false.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"username, password, isAdmin"
//	@Success		201		{object}	authsdk.MessageResponse	"User registered successfully"
//	@Failure		400		{object}	authsdk.ErrorResponse	"username_taken or invalid_request"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.ErrorResponse	"server_error"
//	@Router			/api/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.UserService.Register(r.Context(), req.Username, req.Password, req.IsAdmin); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}
