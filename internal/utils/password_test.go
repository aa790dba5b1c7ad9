package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("pw1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)

	assert.True(t, VerifyPassword(hash, "pw1"))
	assert.False(t, VerifyPassword(hash, "pw2"))
	assert.False(t, VerifyPassword("not-a-hash", "pw1"))
}

func TestHashPasswordCostFallback(t *testing.T) {
	// An out-of-range cost must not error, it falls back to the default.
	hash, err := HashPassword("pw1", 99)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "pw1"))
}

func TestSecureTokenUnique(t *testing.T) {
	t1, err := SecureToken()
	require.NoError(t, err)
	t2, err := SecureToken()
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
	assert.Len(t, t1, 43) // 32 bytes in unpadded URL-safe base64
}
