package referral

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

type Referral struct {
	ID                  uuid.UUID  `json:"id"`
	ReferrerID          uuid.UUID  `json:"referrer_id"`
	ReferredEmail       string     `json:"referred_email"`
	Status              string     `json:"status"`
	RewardPointsAwarded *int       `json:"reward_points_awarded"`
	CompletedAt         *time.Time `json:"completed_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

type CreateReferralRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Result is the outcome of creating a referral. A duplicate invite is a
// Success=false result, not an error.
type Result struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ReferralLink string `json:"referral_link,omitempty"`
}
