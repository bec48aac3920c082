package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
)

// LogoutHandler revokes a refresh token. It answers 200 for every token,
// known or not, so it says nothing about which tokens are live.
type LogoutHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP handles POST /api/logout.
//
//	@Summary		Log out
//	@Description	Revokes the refresh token. Idempotent, unknown tokens are accepted too.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TokenRequest	true	"token"
//	@Success		200		{object}	authsdk.MessageResponse	"You have been logged out"
//	@Router			/api/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TokenRequest
	// A body we can't read still logs nobody out, but it's not an error.
	_ = httpx.DecodeJSON(r, maxBodyBytes, &req)

	_ = h.TokenService.Logout(r.Context(), req.Token)
	writeMessage(w, http.StatusOK, "You have been logged out")
}
