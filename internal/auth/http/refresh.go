package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
)

type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP handles POST /api/refresh.
//
//	@Summary		Rotate a refresh token
//	@Description	Redeems a refresh token for a new access token and a new refresh token.
//	@Description	The submitted refresh token stops working, presenting it again is rejected with 403.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TokenRequest	true	"token"
//	@Success		200		{object}	authsdk.TokenResponse	"accessToken, refreshToken"
//	@Failure		401		{object}	authsdk.ErrorResponse	"no token presented"
//	@Failure		403		{object}	authsdk.ErrorResponse	"token invalid, expired or already used"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/api/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TokenRequest
	// No readable body means no token was presented, the service answers 401.
	if err := httpx.DecodeJSON(r, maxBodyBytes, &req); err != nil {
		req = authsdk.TokenRequest{}
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
