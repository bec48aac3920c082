package authsdk

// ============================================================================
// Auth Request/Response Types
// ============================================================================

// RegisterRequest is the JSON body of POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// IsAdmin defaults to false when omitted.
	IsAdmin bool `json:"isAdmin,omitempty"`
}

// LoginRequest is the JSON body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Username     string `json:"username"`
	IsAdmin      bool   `json:"isAdmin"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenRequest carries a refresh token, it is the body of both
// POST /api/refresh and POST /api/logout.
type TokenRequest struct {
	Token string `json:"token"`
}

// TokenResponse is returned by a successful refresh. The refresh token is
// always a new one, the submitted token is no longer valid.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON shape of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	// Status is "ok" when the service can serve requests, "starting" while
	// its dependencies are not reachable yet.
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: ...".
type HealthChecks struct {
	Store    string `json:"store"`
	Registry string `json:"registry,omitempty"`
}
