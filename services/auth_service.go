package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowvaHubAPI/internal/profile"
	"flowvaHubAPI/internal/rewards"
	"flowvaHubAPI/internal/session"
	"flowvaHubAPI/utils"
)

const (
	accessTokenTTL       = 15 * time.Minute
	refreshTokenTTL      = 30 * 24 * time.Hour
	verificationTokenTTL = 24 * time.Hour
	maxVerifyAttempts    = 5
)

const profileColumns = `id, email, full_name, avatar_url, points, current_streak, longest_streak,
	last_checkin_date, referral_code, total_checkins, total_referrals, email_verified, is_admin,
	created_at, updated_at`

type AuthService struct {
	db                  *pgxpool.Pool
	referralService     *ReferralService
	requireConfirmation bool
}

func NewAuthService(db *pgxpool.Pool, referralService *ReferralService, requireConfirmation bool) *AuthService {
	return &AuthService{
		db:                  db,
		referralService:     referralService,
		requireConfirmation: requireConfirmation,
	}
}

// SignUp creates the identity. When email confirmation is disabled the
// profile is created immediately with the welcome bonus and a token pair is
// returned; otherwise the bonus is deferred to VerifyEmail.
func (s *AuthService) SignUp(ctx context.Context, req *profile.SignUpRequest) (*session.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
	INSERT INTO profiles (email, password_hash, full_name, email_verified)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + profileColumns

	p, err := scanProfile(tx.QueryRow(ctx, query, email, hash, strings.TrimSpace(req.FullName), !s.requireConfirmation))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &session.AuthResult{Success: false, Message: "An account with this email already exists"}, nil
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if s.requireConfirmation {
		token, err := utils.NewRefreshToken()
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO email_verification_tokens (email, token, referral_code, expires_at)
			VALUES ($1, $2, NULLIF($3, ''), $4)`,
			email, token, req.ReferralCode, time.Now().Add(verificationTokenTTL))
		if err != nil {
			return nil, fmt.Errorf("failed to create verification token: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit signup: %w", err)
		}

		// TODO: send the token by email once an outbound mail provider is wired up.
		log.Printf("SignUp: verification token issued for %s", email)
		return &session.AuthResult{
			Success:              true,
			Message:              "Please check your email to confirm your account",
			VerificationRequired: true,
		}, nil
	}

	if err := awardSignupBonus(ctx, tx, p.ID); err != nil {
		return nil, err
	}
	p.Points = rewards.WelcomeBonusPoints

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit signup: %w", err)
	}

	if req.ReferralCode != "" {
		if err := s.referralService.CompleteReferral(ctx, req.ReferralCode, email); err != nil {
			log.Printf("SignUp: referral completion for code %s failed: %v", req.ReferralCode, err)
		}
	}

	tokens, err := s.issueTokens(ctx, p.ID, p.Email)
	if err != nil {
		return nil, err
	}

	log.Printf("SignUp: created profile %s for %s", p.ID, email)
	return &session.AuthResult{
		Success: true,
		Message: "Account created successfully! Welcome to FlowvaHub",
		Profile: p,
		Tokens:  tokens,
	}, nil
}

// SignIn authenticates with email/password. Bad credentials and unconfirmed
// email come back as failed results, not errors.
func (s *AuthService) SignIn(ctx context.Context, req *profile.SignInRequest) (*session.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var hash string
	p := &profile.Profile{}
	query := `SELECT password_hash, ` + profileColumns + ` FROM profiles WHERE email = $1`
	err := s.db.QueryRow(ctx, query, email).Scan(
		&hash,
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Points, &p.CurrentStreak, &p.LongestStreak,
		&p.LastCheckinDate, &p.ReferralCode, &p.TotalCheckins, &p.TotalReferrals, &p.EmailVerified,
		&p.IsAdmin, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &session.AuthResult{Success: false, Message: "Invalid email or password"}, nil
		}
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	if !utils.CheckPassword(hash, req.Password) {
		return &session.AuthResult{Success: false, Message: "Invalid email or password"}, nil
	}

	if s.requireConfirmation && !p.EmailVerified {
		return &session.AuthResult{
			Success: false,
			Message: "Please confirm your email address before signing in",
		}, nil
	}

	tokens, err := s.issueTokens(ctx, p.ID, p.Email)
	if err != nil {
		return nil, err
	}

	return &session.AuthResult{Success: true, Message: "Welcome to FlowvaHub!", Profile: p, Tokens: tokens}, nil
}

// RefreshSession rotates a refresh token and re-fetches the profile so
// callers re-sync their cached balance after accrual operations.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*session.AuthResult, error) {
	var userID uuid.UUID
	var expiresAt time.Time

	// Single conditional update: two concurrent refreshes race here and only
	// one wins the rotation.
	err := s.db.QueryRow(ctx, `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
		RETURNING user_id, expires_at`,
		utils.HashToken(refreshToken)).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	if time.Now().After(expiresAt) {
		return nil, session.ErrInvalidSession
	}

	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, p.ID, p.Email)
	if err != nil {
		return nil, err
	}

	return &session.AuthResult{Success: true, Message: "Session refreshed", Profile: p, Tokens: tokens}, nil
}

// SignOut revokes the session. Unlike the other auth operations this
// propagates failure as an error: there is no safe degraded state.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sessions SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		utils.HashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrInvalidSession
	}
	return nil
}

// VerifyEmail consumes a pending verification token, marks the profile
// confirmed and awards the deferred welcome bonus.
func (s *AuthService) VerifyEmail(ctx context.Context, req *profile.VerifyEmailRequest) (*session.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var tokenID uuid.UUID
	var token string
	var referralCode *string
	var expiresAt time.Time
	var attempts int
	var verified bool
	err = tx.QueryRow(ctx, `
		SELECT id, token, referral_code, expires_at, attempts, verified
		FROM email_verification_tokens
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`, email).Scan(&tokenID, &token, &referralCode, &expiresAt, &attempts, &verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &session.AuthResult{Success: false, Message: "No verification pending for this email"}, nil
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	switch {
	case verified:
		return &session.AuthResult{Success: false, Message: "Email already verified"}, nil
	case attempts >= maxVerifyAttempts:
		return &session.AuthResult{Success: false, Message: "Too many verification attempts"}, nil
	case time.Now().After(expiresAt):
		return &session.AuthResult{Success: false, Message: "Verification code expired"}, nil
	case token != req.Token:
		if _, err := tx.Exec(ctx, `UPDATE email_verification_tokens SET attempts = attempts + 1 WHERE id = $1`, tokenID); err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit attempt: %w", err)
		}
		return &session.AuthResult{Success: false, Message: "Invalid verification code"}, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE email_verification_tokens SET verified = TRUE WHERE id = $1`, tokenID); err != nil {
		return nil, fmt.Errorf("failed to mark token verified: %w", err)
	}

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE profiles SET email_verified = TRUE, updated_at = NOW()
		WHERE email = $1
		RETURNING id`, email).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("failed to confirm profile: %w", err)
	}

	if err := awardSignupBonus(ctx, tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit verification: %w", err)
	}

	if referralCode != nil {
		if err := s.referralService.CompleteReferral(ctx, *referralCode, email); err != nil {
			log.Printf("VerifyEmail: referral completion for code %s failed: %v", *referralCode, err)
		}
	}

	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, p.ID, p.Email)
	if err != nil {
		return nil, err
	}

	log.Printf("VerifyEmail: confirmed %s", email)
	return &session.AuthResult{Success: true, Message: "Email verified. Welcome to FlowvaHub!", Profile: p, Tokens: tokens}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *profile.UpdateProfileRequest) (*profile.Profile, error) {
	query := `
	UPDATE profiles
	SET
		full_name = COALESCE(NULLIF($2, ''), full_name),
		avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, query, userID, req.FullName, req.AvatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

func (s *AuthService) issueTokens(ctx context.Context, userID uuid.UUID, email string) (*session.TokenPair, error) {
	access, err := utils.GenerateAccessToken(userID, email, accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := utils.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		userID, utils.HashToken(refresh), time.Now().Add(refreshTokenTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &session.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(accessTokenTTL.Seconds()),
	}, nil
}

// awardSignupBonus credits the welcome bonus exactly once per user. The
// partial unique index on the ledger makes retries no-ops.
func awardSignupBonus(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO points_transactions (user_id, points, type, description)
		VALUES ($1, $2, 'signup_bonus', 'Welcome bonus')
		ON CONFLICT DO NOTHING`,
		userID, rewards.WelcomeBonusPoints)
	if err != nil {
		return fmt.Errorf("failed to record welcome bonus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles SET points = points + $2, updated_at = NOW()
		WHERE id = $1`,
		userID, rewards.WelcomeBonusPoints)
	if err != nil {
		return fmt.Errorf("failed to credit welcome bonus: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	err := row.Scan(
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Points, &p.CurrentStreak, &p.LongestStreak,
		&p.LastCheckinDate, &p.ReferralCode, &p.TotalCheckins, &p.TotalReferrals, &p.EmailVerified,
		&p.IsAdmin, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
