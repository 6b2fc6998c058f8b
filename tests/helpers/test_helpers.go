package helpers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowvaHubAPI/middleware"
	"flowvaHubAPI/utils"
)

// SetupTestDB creates a test database connection. Integration tests are
// skipped when no test database is configured.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB removes rows created by tests and closes the pool. Child
// tables cascade from profiles.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, "DELETE FROM referrals WHERE referred_email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup referral test data: %v", err)
	}
	_, err = pool.Exec(ctx, "DELETE FROM email_verification_tokens WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup verification test data: %v", err)
	}
	_, err = pool.Exec(ctx, "DELETE FROM profiles WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	pool.Close()
}

// CreateTestProfile inserts a profile with a known balance and returns its ID.
func CreateTestProfile(t *testing.T, pool *pgxpool.Pool, email string, points int) uuid.UUID {
	ctx := context.Background()

	hash, err := utils.HashPassword("test-password-123")
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	id := uuid.New()
	code := utils.ReferralCode(id)
	_, err = pool.Exec(ctx, `
		INSERT INTO profiles (id, email, password_hash, full_name, points, referral_code, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		id, email, hash, "Test User", points, code)
	if err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return id
}

// CreateTestReward inserts a redeemable catalog entry and returns its ID.
func CreateTestReward(t *testing.T, pool *pgxpool.Pool, name string, pointsRequired int, active bool) int {
	ctx := context.Background()

	var id int
	err := pool.QueryRow(ctx, `
		INSERT INTO rewards (name, description, points_required, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		name, "test reward", pointsRequired, active).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test reward: %v", err)
	}
	return id
}

// AuthenticatedRequest attaches a user identity to the request context the
// same way the auth middleware does after verifying a bearer token.
func AuthenticatedRequest(r *http.Request, userID uuid.UUID, email string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.EmailKey, email)
	return r.WithContext(ctx)
}

// TestEmail returns a unique address matching the cleanup filter.
func TestEmail(prefix string) string {
	return fmt.Sprintf("test-%s-%s@example.com", prefix, uuid.New().String()[:8])
}
