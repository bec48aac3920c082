package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/sessionauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestHealthEndpoint verifies the health check reports the store as reachable.
func TestHealthEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	health, err := client.Health(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Store)
	require.NotEmpty(t, health.Version)

	t.Logf("Health endpoint is healthy, uptime %s", health.Uptime)
}
