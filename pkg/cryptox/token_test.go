package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, token, 43)

	token2, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, token, token2, "tokens should be unique")
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("eyJhbGciOiJIUzI1NiJ9.e30.sig")
	require.Len(t, a, 43)
	require.Equal(t, a, FingerprintToken("eyJhbGciOiJIUzI1NiJ9.e30.sig"), "fingerprint should be deterministic")
	require.NotEqual(t, a, FingerprintToken("eyJhbGciOiJIUzI1NiJ9.e30.sig2"))
}
