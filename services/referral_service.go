package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowvaHubAPI/internal/profile"
	"flowvaHubAPI/internal/referral"
	"flowvaHubAPI/utils"
)

// Points credited to the referrer when an invited user signs up.
const referralAwardPoints = 100

type ReferralService struct {
	db      *pgxpool.Pool
	baseURL string
}

func NewReferralService(db *pgxpool.Pool, baseURL string) *ReferralService {
	return &ReferralService{db: db, baseURL: baseURL}
}

// CreateReferral records an invite and returns the share link. The referral
// code is generated lazily and never regenerated; the (referrer, email)
// uniqueness constraint makes the dedup atomic. If referral tracking is
// unavailable the link is still returned.
func (s *ReferralService) CreateReferral(ctx context.Context, userID uuid.UUID, referredEmail string) (*referral.Result, error) {
	email := strings.ToLower(strings.TrimSpace(referredEmail))

	code, err := s.ensureReferralCode(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO referrals (referrer_id, referred_email, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (referrer_id, referred_email) DO NOTHING`,
		userID, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			// Tracking degrades: the link still works, the invite just is
			// not recorded.
			log.Printf("CreateReferral: referrals relation unavailable, returning link only: %v", err)
			return &referral.Result{
				Success:      true,
				Message:      "Referral link created successfully",
				ReferralLink: utils.ReferralLink(s.baseURL, code),
			}, nil
		}
		return nil, fmt.Errorf("failed to record referral: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &referral.Result{Success: false, Message: "Already referred this email"}, nil
	}

	return &referral.Result{
		Success:      true,
		Message:      "Referral link created successfully",
		ReferralLink: utils.ReferralLink(s.baseURL, code),
	}, nil
}

// CompleteReferral flips a pending invite to completed and pays the referrer,
// all in one transaction. Called when the invited email signs up with a
// referral code. Completing an already-completed invite is a no-op.
func (s *ReferralService) CompleteReferral(ctx context.Context, code, referredEmail string) error {
	email := strings.ToLower(strings.TrimSpace(referredEmail))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var referrerID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM profiles WHERE referral_code = $1`, code).Scan(&referrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("unknown referral code %q", code)
		}
		return fmt.Errorf("failed to look up referrer: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE referrals
		SET status = 'completed', completed_at = NOW(), reward_points_awarded = $3
		WHERE referrer_id = $1 AND referred_email = $2 AND status = 'pending'`,
		referrerID, email, referralAwardPoints)
	if err != nil {
		return fmt.Errorf("failed to complete referral: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// No pending invite for this pair; nothing to award.
		return nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET points = points + $2, total_referrals = total_referrals + 1, updated_at = NOW()
		WHERE id = $1`,
		referrerID, referralAwardPoints)
	if err != nil {
		return fmt.Errorf("failed to credit referral points: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_transactions (user_id, points, type, description)
		VALUES ($1, $2, 'referral', $3)`,
		referrerID, referralAwardPoints, "Referral signup: "+email)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit referral completion: %w", err)
	}

	log.Printf("CompleteReferral: %s earned %d points for %s", referrerID, referralAwardPoints, email)
	return nil
}

// ListReferrals returns the user's invites, newest first.
func (s *ReferralService) ListReferrals(ctx context.Context, userID uuid.UUID) ([]referral.Referral, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, referrer_id, referred_email, status, reward_points_awarded, completed_at, created_at
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch referrals: %w", err)
	}
	defer rows.Close()

	list := []referral.Referral{}
	for rows.Next() {
		var r referral.Referral
		err := rows.Scan(&r.ID, &r.ReferrerID, &r.ReferredEmail, &r.Status, &r.RewardPointsAwarded, &r.CompletedAt, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// ensureReferralCode returns the user's code, generating and persisting it on
// first use. The conditional update only fires while the column is NULL, so
// an existing code is never replaced.
func (s *ReferralService) ensureReferralCode(ctx context.Context, userID uuid.UUID) (string, error) {
	_, err := s.db.Exec(ctx, `
		UPDATE profiles SET referral_code = $2, updated_at = NOW()
		WHERE id = $1 AND referral_code IS NULL`,
		userID, utils.ReferralCode(userID))
	if err != nil {
		return "", err
	}

	var code string
	err = s.db.QueryRow(ctx, `SELECT referral_code FROM profiles WHERE id = $1`, userID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", profile.ErrNotFound
		}
		return "", err
	}
	return code, nil
}
