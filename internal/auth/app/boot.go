package app

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
)

// bootGate is the server's handler for the whole process lifetime. Until the
// backends are connected it answers health checks with "starting" and every
// other route with 503, then it hands over to the router.
type bootGate struct {
	started time.Time
	version string
	next    atomic.Pointer[http.Handler]
}

func newBootGate(version string) *bootGate {
	return &bootGate{started: time.Now(), version: version}
}

// ready switches every following request over to h.
func (g *bootGate) ready(h http.Handler) {
	g.next.Store(&h)
}

func (g *bootGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := g.next.Load(); h != nil {
		(*h).ServeHTTP(w, r)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Retry-After", "1")
	if r.URL.Path == "/api/health" {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{
			Status:  "starting",
			Uptime:  time.Since(g.started).String(),
			Version: g.version,
			Checks:  &authsdk.HealthChecks{Store: "connecting"},
		})
		return
	}
	httpx.WriteError(w, http.StatusServiceUnavailable, authsdk.ErrorCodeServerError, "service is starting")
}
