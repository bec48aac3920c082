package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

// Recover turns a panicking handler into a 500 response. The server keeps
// serving other requests.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// Let net/http handle its own abort sentinel.
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				slogx.FromContext(r.Context()).Error("handler panic",
					"panic", rec,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
