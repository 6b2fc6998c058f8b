package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	userID := uuid.New()
	token, err := GenerateAccessToken(userID, "user@example.com", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateAccessToken(uuid.New(), "user@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := GenerateAccessToken(uuid.New(), "user@example.com", 15*time.Minute)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "another-secret")
	_, err = ParseAccessToken(token)
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	first, err := NewRefreshToken()
	require.NoError(t, err)
	second, err := NewRefreshToken()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}

func TestHashToken(t *testing.T) {
	digest := HashToken("some-token")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashToken("some-token"))
	assert.NotEqual(t, digest, HashToken("other-token"))
}
