package profile

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("profile not found")

type Profile struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	AvatarURL       *string    `json:"avatar_url"`
	Points          int        `json:"points"`
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastCheckinDate *time.Time `json:"last_checkin_date"`
	ReferralCode    *string    `json:"referral_code"`
	TotalCheckins   int        `json:"total_checkins"`
	TotalReferrals  int        `json:"total_referrals"`
	EmailVerified   bool       `json:"email_verified"`
	IsAdmin         bool       `json:"is_admin"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
