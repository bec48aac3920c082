package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

// bearerErrorDescription is the only description a caller ever sees. Real
// cause (malformed, bad signature, expired) only goes to the log.
const bearerErrorDescription = "missing or invalid access token"

// AuthnMiddleware requires a valid access token in the Authorization header
// and makes its claims available through ClaimsFromContext.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w)
				log.Debug("bearer token missing")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w)
				log.Warn("jwt verify failed", "err", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+bearerErrorDescription+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthenticated", bearerErrorDescription)
}
