package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
)

// Pinger is a dependency the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// HealthHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Reports "ok" when the credential store (and the registry, when it is remote) is reachable,
//	@Description	"starting" with 503 otherwise. Includes uptime, version and the per-dependency checks.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/api/health [get].
func HealthHandler(startTime time.Time, version string, st Pinger, reg Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		checks := &authsdk.HealthChecks{Store: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(ctx); err != nil {
			checks.Store = "error: " + err.Error()
			status = "starting"
			code = http.StatusServiceUnavailable
		}

		if reg != nil {
			checks.Registry = "ok"
			if err := reg.Ping(ctx); err != nil {
				checks.Registry = "error: " + err.Error()
				status = "starting"
				code = http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
