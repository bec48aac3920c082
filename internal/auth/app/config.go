package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/registry"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	RegistryStore  = "store"
	RegistryRedis  = "redis"
	RegistryMemory = "memory"
)

type Config struct {
	Issuer string // Optional: issuer claim for tokens (default: session-auth)

	AccessSecret    string        // Required: HS256 secret for access tokens
	RefreshSecret   string        // Required: HS256 secret for refresh tokens, must differ from AccessSecret
	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 20s)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime, 0 = never expires (default: 7 days)

	StoreDriver  string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	DatabaseURL  string // Required for postgres: connection URL

	Registry      string // Optional: store, redis or memory (default: store)
	RedisAddr     string // Required for redis: host:port
	RedisPassword string // Optional
	RedisDB       int    // Optional (default: 0)
	RedisPrefix   string // Optional: key prefix (default: auth)

	PepperFile  string   // Optional: path to file containing pepper for password hashing (default: ./pepper)
	CORSOrigins []string // Optional: allowed browser origins (default: *)

	StoreConnectAttempts int           // Store connection attempts at startup (default: 10)
	StoreConnectDelay    time.Duration // Delay between attempts (default: 2s)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 5000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:          getEnvOrDefault("AUTH_ISSUER", "session-auth"),
		AccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),

		StoreDriver:  strings.ToLower(getEnvOrDefault("AUTH_STORE_DRIVER", StoreSQLite)),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:  os.Getenv("AUTH_DATABASE_URL"),

		Registry:      strings.ToLower(getEnvOrDefault("AUTH_REGISTRY", RegistryStore)),
		RedisAddr:     os.Getenv("AUTH_REDIS_ADDR"),
		RedisPassword: os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("AUTH_REDIS_DB", 0),
		RedisPrefix:   getEnvOrDefault("AUTH_REDIS_PREFIX", registry.DefaultRedisPrefix),

		PepperFile:  getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"), // Default to ./pepper
		CORSOrigins: getEnvListOrDefault("AUTH_CORS_ORIGINS", []string{"*"}),

		StoreConnectAttempts: getEnvIntOrDefault("STORE_CONNECT_ATTEMPTS", 10),
		StoreConnectDelay:    getEnvDurationOrDefault("STORE_CONNECT_DELAY", 2*time.Second),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 5000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

// Validate reports every problem with the configuration at once. The
// service must not start without both token secrets.
func (c Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" || c.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required"))
	} else {
		if len(c.AccessSecret) < jwtx.MinSecretLength || len(c.RefreshSecret) < jwtx.MinSecretLength {
			errs = append(errs, fmt.Errorf("JWT secrets must be at least %d bytes", jwtx.MinSecretLength))
		}
		if c.AccessSecret == c.RefreshSecret {
			errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
		}
	}

	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL < 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must not be negative"))
	}

	switch c.StoreDriver {
	case StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.Registry {
	case RegistryStore, RegistryMemory:
	case RegistryRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("AUTH_REDIS_ADDR is required for the redis registry"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_REGISTRY %q", c.Registry))
	}

	if c.StoreConnectAttempts < 1 {
		errs = append(errs, errors.New("STORE_CONNECT_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// A bare integer is seconds, "0" disables expiry for REFRESH_TOKEN_TTL
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma-separated value.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
