package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
)

type DeleteUserHandler struct {
	UserService *service.UserService
}

// ServeHTTP handles DELETE /api/users/{id}. Must sit behind AuthnMiddleware.
//
//	@Summary		Delete a user
//	@Description	Deletes the user. Allowed for the user themselves and for admins.
//	@Description	The user's refresh tokens are revoked.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"User ID"
//	@Success		200	{object}	authsdk.MessageResponse	"User has been deleted"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"not allowed to delete this user"
//	@Failure		404	{object}	authsdk.ErrorResponse	"no such user"
//	@Failure		500	{object}	authsdk.ErrorResponse	"server_error"
//	@Router			/api/users/{id} [delete].
func (h *DeleteUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidAccessToken.WriteError(w)
		return
	}

	if err := h.UserService.DeleteUser(ctx, caller, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "User has been deleted")
}
