package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowvaHubAPI/internal/profile"
	"flowvaHubAPI/internal/rewards"
)

type RewardsService struct {
	db *pgxpool.Pool
}

func NewRewardsService(db *pgxpool.Pool) *RewardsService {
	return &RewardsService{db: db}
}

// GetRewardsData composes the dashboard read model from four reads. The
// profile is essential; the other three degrade independently to their zero
// value and are named in Degraded so clients can see what is missing.
func (s *RewardsService) GetRewardsData(ctx context.Context, userID uuid.UUID) (*rewards.UserRewardsData, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	data := &rewards.UserRewardsData{
		Profile:            *p,
		RecentTransactions: []rewards.Transaction{},
	}

	var name string
	var required int
	err = s.db.QueryRow(ctx, `
		SELECT name, points_required
		FROM rewards
		WHERE is_active = TRUE AND points_required > $1
		ORDER BY points_required ASC
		LIMIT 1`, p.Points).Scan(&name, &required)
	switch {
	case err == nil:
		data.NextReward = &rewards.NextReward{
			Name:            name,
			PointsRequired:  required,
			ProgressPercent: rewards.ProgressPercent(p.Points, required),
		}
	case errors.Is(err, pgx.ErrNoRows):
		// Every active reward already attained; no progress indicator.
	default:
		log.Printf("GetRewardsData: next reward lookup failed for %s: %v", userID, err)
		data.Degraded = append(data.Degraded, "next_reward")
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM referrals
		WHERE referrer_id = $1 AND status = 'pending'`, userID).Scan(&data.PendingReferrals)
	if err != nil {
		log.Printf("GetRewardsData: pending referral count failed for %s: %v", userID, err)
		data.PendingReferrals = 0
		data.Degraded = append(data.Degraded, "pending_referrals")
	}

	recent, err := s.GetTransactions(ctx, userID, 5)
	if err != nil {
		log.Printf("GetRewardsData: recent transactions failed for %s: %v", userID, err)
		data.Degraded = append(data.Degraded, "recent_transactions")
	} else {
		data.RecentTransactions = recent
	}

	return data, nil
}

// ClaimDailyPoints performs the daily check-in in one transaction. The
// daily_checkins primary key is the "already claimed" authority: two
// concurrent claims race on the insert and exactly one wins.
func (s *RewardsService) ClaimDailyPoints(ctx context.Context, userID uuid.UUID) (*rewards.PointsResult, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var points, currentStreak, longestStreak int
	var lastCheckin *time.Time
	err = tx.QueryRow(ctx, `
		SELECT points, current_streak, longest_streak, last_checkin_date
		FROM profiles
		WHERE id = $1
		FOR UPDATE`, userID).Scan(&points, &currentStreak, &longestStreak, &lastCheckin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	newStreak := rewards.NextStreak(lastCheckin, today, currentStreak)

	_, err = tx.Exec(ctx, `
		INSERT INTO daily_checkins (user_id, checkin_date, streak_after)
		VALUES ($1, $2, $3)`,
		userID, today, newStreak)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &rewards.PointsResult{Success: false, Message: "Already claimed today's points"}, nil
		}
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	if newStreak > longestStreak {
		longestStreak = newStreak
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET points = points + $2,
			current_streak = $3,
			longest_streak = $4,
			last_checkin_date = $5,
			total_checkins = total_checkins + 1,
			updated_at = NOW()
		WHERE id = $1`,
		userID, rewards.DailyCheckinPoints, newStreak, longestStreak, today)
	if err != nil {
		return nil, fmt.Errorf("failed to credit daily points: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_transactions (user_id, points, type, description)
		VALUES ($1, $2, 'daily_checkin', 'Daily check-in')`,
		userID, rewards.DailyCheckinPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	log.Printf("ClaimDailyPoints: %s awarded %d points, streak %d", userID, rewards.DailyCheckinPoints, newStreak)
	return &rewards.PointsResult{
		Success:       true,
		Message:       "Daily points claimed!",
		PointsAwarded: rewards.DailyCheckinPoints,
		CurrentStreak: newStreak,
	}, nil
}

// ShareStack grants the fixed share bonus. Repeatable by design; there is no
// idempotency check on this operation.
func (s *RewardsService) ShareStack(ctx context.Context, userID uuid.UUID) (*rewards.PointsResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var newPoints int
	err = tx.QueryRow(ctx, `
		UPDATE profiles SET points = points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING points`,
		userID, rewards.ShareStackPoints).Scan(&newPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("failed to credit share points: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_transactions (user_id, points, type, description)
		VALUES ($1, $2, 'share_stack', 'Shared your stack')`,
		userID, rewards.ShareStackPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit share: %w", err)
	}

	return &rewards.PointsResult{
		Success:       true,
		Message:       "25 points awarded!",
		PointsAwarded: rewards.ShareStackPoints,
	}, nil
}

// RedeemReward spends points on a catalog entry. The conditional update is
// the whole correctness story: the balance can never go negative, even under
// concurrent redemptions.
func (s *RewardsService) RedeemReward(ctx context.Context, userID uuid.UUID, rewardID int) (*rewards.RedeemResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	r := &rewards.Reward{}
	err = tx.QueryRow(ctx, `
		SELECT id, name, description, points_required, is_active
		FROM rewards
		WHERE id = $1`, rewardID).Scan(&r.ID, &r.Name, &r.Description, &r.PointsRequired, &r.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &rewards.RedeemResult{Success: false, Message: "Reward not found"}, nil
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	if !r.IsActive {
		return &rewards.RedeemResult{Success: false, Message: "Reward is not available"}, nil
	}

	var remaining int
	err = tx.QueryRow(ctx, `
		UPDATE profiles SET points = points - $2, updated_at = NOW()
		WHERE id = $1 AND points >= $2
		RETURNING points`,
		userID, r.PointsRequired).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &rewards.RedeemResult{Success: false, Message: "Not enough points to redeem this reward"}, nil
		}
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_rewards (user_id, reward_id, points_spent)
		VALUES ($1, $2, $3)`,
		userID, r.ID, r.PointsRequired)
	if err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_transactions (user_id, points, type, description)
		VALUES ($1, $2, 'reward_redemption', $3)`,
		userID, -r.PointsRequired, r.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	log.Printf("RedeemReward: %s redeemed %q for %d points", userID, r.Name, r.PointsRequired)
	return &rewards.RedeemResult{
		Success:         true,
		Message:         fmt.Sprintf("Redeemed %s!", r.Name),
		Reward:          r,
		RemainingPoints: remaining,
	}, nil
}

// GetCatalog lists active rewards by ascending threshold.
func (s *RewardsService) GetCatalog(ctx context.Context) ([]rewards.Reward, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, points_required, is_active
		FROM rewards
		WHERE is_active = TRUE
		ORDER BY points_required ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rewards: %w", err)
	}
	defer rows.Close()

	catalog := []rewards.Reward{}
	for rows.Next() {
		var r rewards.Reward
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.PointsRequired, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		catalog = append(catalog, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return catalog, nil
}

// GetTransactions returns the most recent ledger entries, newest first.
func (s *RewardsService) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]rewards.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, points, type, description, created_at
		FROM points_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer rows.Close()

	txs := []rewards.Transaction{}
	for rows.Next() {
		var t rewards.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Points, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txs, nil
}

// GetCheckinCalendar returns the check-in days of one month for the streak
// calendar view.
func (s *RewardsService) GetCheckinCalendar(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]rewards.CheckinDay, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := s.db.Query(ctx, `
		SELECT checkin_date, streak_after
		FROM daily_checkins
		WHERE user_id = $1 AND checkin_date >= $2 AND checkin_date < $3
		ORDER BY checkin_date ASC`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch check-ins: %w", err)
	}
	defer rows.Close()

	days := []rewards.CheckinDay{}
	for rows.Next() {
		var d rewards.CheckinDay
		if err := rows.Scan(&d.Date, &d.StreakAfter); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}
