package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"

	_ "github.com/aussiebroadwan/sessionauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits picks the limiter profile of each route group.
type RateLimits struct {
	Credentials httpx.RateLimitConfig // register, login
	Tokens      httpx.RateLimitConfig // refresh, logout
	Users       httpx.RateLimitConfig // user deletion, per caller
	Health      httpx.RateLimitConfig
}

// DefaultRateLimits uses the httpx profiles, which are env-overridable.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Credentials: httpx.StrictLimit,
		Tokens:      httpx.ModerateLimit,
		Users:       httpx.LenientLimit,
		Health:      httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	TokenService *service.TokenService
	UserService  *service.UserService

	// RegistryPinger is pinged by the health check when the registry lives
	// outside the credential store. Optional.
	RegistryPinger Pinger

	CORS   httpx.CORSConfig
	Limits RateLimits
}

// NewRouter builds a router. verifier checks access tokens.
func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		CORS:         httpx.DefaultCORSConfig,
		Limits:       DefaultRateLimits(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	// Request logging is outermost so recovered panics still get a log line
	// with the request id.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
		httpx.CORS(r.CORS),
	}

	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Session Authentication Service API
//	@version		0.1.0
//	@description	Username/password authentication with short-lived access tokens and rotating refresh tokens.
//	@description
//	@description				All tokens are HS256 signed JWTs. Access and refresh tokens use different secrets.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sessionauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credentials endpoints - strict rate limit by IP (brute force)
	r.Mux.Handle("POST /api/register",
		httpx.Chain(&RegisterHandler{UserService: r.UserService},
			httpx.RateLimitByIP(r.Limits.Credentials),
		),
	)
	r.Mux.Handle("POST /api/login",
		httpx.Chain(&LoginHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.Limits.Credentials),
		),
	)

	// Token endpoints - moderate rate limit by IP
	r.Mux.Handle("POST /api/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.Limits.Tokens),
		),
	)
	r.Mux.Handle("POST /api/logout",
		httpx.Chain(&LogoutHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.Limits.Tokens),
		),
	)
}

func (r *Router) registerUsers() {
	secured := httpx.Chain(&DeleteUserHandler{UserService: r.UserService},
		httpx.AuthnMiddleware(r.verifier), // verify access token (iss/exp)
		httpx.RateLimitByUser(r.Limits.Users),
	)

	r.Mux.Handle("DELETE /api/users/{id}", secured)
}

func (r *Router) registerSystem() {
	// Health check - lenient rate limit (monitoring systems may poll frequently)
	r.Mux.Handle("GET /api/health",
		httpx.Chain(HealthHandler(r.startTime, r.buildVersion, r.store, r.RegistryPinger),
			httpx.RateLimitByIP(r.Limits.Health),
		),
	)
}
