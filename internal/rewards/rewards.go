package rewards

import (
	"time"

	"github.com/google/uuid"

	"flowvaHubAPI/internal/profile"
)

type TransactionType string

const (
	TypeEarned           TransactionType = "earned"
	TypeDailyCheckin     TransactionType = "daily_checkin"
	TypeReferral         TransactionType = "referral"
	TypeRewardRedemption TransactionType = "reward_redemption"
	TypeShareStack       TransactionType = "share_stack"
	TypeSignupBonus      TransactionType = "signup_bonus"
	TypeManualAdjustment TransactionType = "manual_adjustment"
	TypePromotional      TransactionType = "promotional"
	TypeSpent            TransactionType = "spent"
)

// Point values for the accrual operations.
const (
	DailyCheckinPoints = 5
	ShareStackPoints   = 25
	WelcomeBonusPoints = 1000
)

// Transaction is one append-only ledger entry. Entries are never updated or
// deleted; the profile balance is the running sum of a user's entries.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Points      int             `json:"points"`
	Type        TransactionType `json:"type"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Reward struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int    `json:"points_required"`
	IsActive       bool   `json:"is_active"`
}

type NextReward struct {
	Name            string `json:"name"`
	PointsRequired  int    `json:"points_required"`
	ProgressPercent int    `json:"progress_percent"`
}

// UserRewardsData is the single read model the dashboard renders. Degraded
// lists the non-essential sub-reads that fell back to their zero value.
type UserRewardsData struct {
	profile.Profile
	NextReward         *NextReward   `json:"next_reward"`
	PendingReferrals   int           `json:"pending_referrals"`
	RecentTransactions []Transaction `json:"recent_transactions"`
	Degraded           []string      `json:"degraded,omitempty"`
}

// PointsResult is the uniform outcome of an accrual operation. Business
// conflicts (already claimed) come back as Success=false, not as errors.
type PointsResult struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	PointsAwarded int              `json:"points_awarded,omitempty"`
	CurrentStreak int              `json:"current_streak,omitempty"`
	Profile       *profile.Profile `json:"profile,omitempty"`
}

type RedeemResult struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	Reward          *Reward `json:"reward,omitempty"`
	RemainingPoints int     `json:"remaining_points,omitempty"`
}

type CheckinDay struct {
	Date        time.Time `json:"date"`
	StreakAfter int       `json:"streak_after"`
}

// NextStreak computes the streak value a check-in on today produces.
// Consecutive calendar days extend the streak; any gap resets it to 1.
func NextStreak(lastCheckin *time.Time, today time.Time, currentStreak int) int {
	if lastCheckin == nil {
		return 1
	}
	last := civilDate(*lastCheckin)
	days := int(civilDate(today).Sub(last).Hours() / 24)
	if days == 1 {
		return currentStreak + 1
	}
	return 1
}

// ProgressPercent reports how far a balance is toward a threshold, rounded,
// capped at 100. A non-positive threshold yields 0 rather than dividing.
func ProgressPercent(points, threshold int) int {
	if threshold <= 0 || points <= 0 {
		return 0
	}
	pct := (points*100 + threshold/2) / threshold
	if pct > 100 {
		return 100
	}
	return pct
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
