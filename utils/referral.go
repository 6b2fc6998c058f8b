package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ReferralCode derives a user's share code from their identity. The mapping
// is deterministic, so regenerating for the same user always yields the same
// code.
func ReferralCode(userID uuid.UUID) string {
	return "REF-" + strings.ToUpper(userID.String()[:8])
}

// ReferralLink builds the signup link that carries a referral code.
func ReferralLink(baseURL, code string) string {
	return fmt.Sprintf("%s/signup?ref=%s", strings.TrimRight(baseURL, "/"), code)
}
