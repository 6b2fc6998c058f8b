package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralCode(t *testing.T) {
	userID, err := uuid.Parse("a1b2c3d4-0000-4000-8000-000000000000")
	require.NoError(t, err)

	code := ReferralCode(userID)
	assert.Equal(t, "REF-A1B2C3D4", code)

	// deterministic for the same user
	assert.Equal(t, code, ReferralCode(userID))
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t,
		"https://app.example.com/signup?ref=REF-A1B2C3D4",
		ReferralLink("https://app.example.com", "REF-A1B2C3D4"))

	t.Run("trailing slash on base url", func(t *testing.T) {
		assert.Equal(t,
			"https://app.example.com/signup?ref=REF-A1B2C3D4",
			ReferralLink("https://app.example.com/", "REF-A1B2C3D4"))
	})
}
