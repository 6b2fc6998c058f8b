package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowvaHubAPI/handlers"
	"flowvaHubAPI/internal/rewards"
	"flowvaHubAPI/services"
	"flowvaHubAPI/tests/helpers"
)

func TestClaimDaily_AwardsPointsOnce(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("claim")
	userID := helpers.CreateTestProfile(t, pool, email, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/claim-daily", nil)
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()

	rewardsHandler.ClaimDaily(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var result rewards.PointsResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 5, result.PointsAwarded)
	assert.Equal(t, 1, result.CurrentStreak)

	var points, totalCheckins int
	err := pool.QueryRow(context.Background(),
		"SELECT points, total_checkins FROM profiles WHERE id = $1", userID).Scan(&points, &totalCheckins)
	require.NoError(t, err)
	assert.Equal(t, 105, points)
	assert.Equal(t, 1, totalCheckins)

	// Second claim the same day is rejected and leaves the balance alone
	req = httptest.NewRequest(http.MethodPost, "/api/v1/rewards/claim-daily", nil)
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr = httptest.NewRecorder()
	rewardsHandler.ClaimDaily(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Already claimed")

	err = pool.QueryRow(context.Background(),
		"SELECT points FROM profiles WHERE id = $1", userID).Scan(&points)
	require.NoError(t, err)
	assert.Equal(t, 105, points)

	// Exactly one ledger entry for the check-in
	var count int
	err = pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM points_transactions
		WHERE user_id = $1 AND type = 'daily_checkin'`, userID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClaimDaily_ConcurrentClaimsAwardOnce(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)

	email := helpers.TestEmail("race")
	userID := helpers.CreateTestProfile(t, pool, email, 0)

	ctx := context.Background()
	results := make(chan *rewards.PointsResult, 2)
	errs := make(chan error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := rewardsService.ClaimDailyPoints(ctx, userID)
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	successes := 0
	for result := range results {
		if result.Success {
			successes++
		} else {
			assert.Contains(t, result.Message, "Already claimed")
		}
	}
	assert.Equal(t, 1, successes)

	var points, count int
	err := pool.QueryRow(ctx,
		"SELECT points FROM profiles WHERE id = $1", userID).Scan(&points)
	require.NoError(t, err)
	assert.Equal(t, 5, points)

	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM points_transactions
		WHERE user_id = $1 AND type = 'daily_checkin'`, userID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClaimDaily_ExtendsStreakFromYesterday(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("streak")
	userID := helpers.CreateTestProfile(t, pool, email, 0)

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	_, err := pool.Exec(context.Background(), `
		UPDATE profiles SET current_streak = 3, longest_streak = 3, last_checkin_date = $2
		WHERE id = $1`, userID, yesterday)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/claim-daily", nil)
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()
	rewardsHandler.ClaimDaily(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var result rewards.PointsResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 4, result.CurrentStreak)

	var longest int
	err = pool.QueryRow(context.Background(),
		"SELECT longest_streak FROM profiles WHERE id = $1", userID).Scan(&longest)
	require.NoError(t, err)
	assert.Equal(t, 4, longest)
}

func TestShareStack_AwardsPoints(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("share")
	userID := helpers.CreateTestProfile(t, pool, email, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/share-stack", nil)
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()
	rewardsHandler.ShareStack(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var result rewards.PointsResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 25, result.PointsAwarded)

	var points int
	err := pool.QueryRow(context.Background(),
		"SELECT points FROM profiles WHERE id = $1", userID).Scan(&points)
	require.NoError(t, err)
	assert.Equal(t, 25, points)
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("redeem-poor")
	userID := helpers.CreateTestProfile(t, pool, email, 100)
	rewardID := helpers.CreateTestReward(t, pool, "Test Gift Card", 5000, true)

	body := `{"reward_id": ` + strconv.Itoa(rewardID) + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/redeem", strings.NewReader(body))
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()
	rewardsHandler.Redeem(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)

	var result rewards.RedeemResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Not enough points")

	// Balance untouched
	var points int
	err := pool.QueryRow(context.Background(),
		"SELECT points FROM profiles WHERE id = $1", userID).Scan(&points)
	require.NoError(t, err)
	assert.Equal(t, 100, points)
}

func TestRedeem_DebitsBalanceAndRecordsLedger(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("redeem")
	userID := helpers.CreateTestProfile(t, pool, email, 2500)
	rewardID := helpers.CreateTestReward(t, pool, "Test Theme", 2000, true)

	body := `{"reward_id": ` + strconv.Itoa(rewardID) + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/redeem", strings.NewReader(body))
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()
	rewardsHandler.Redeem(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var result rewards.RedeemResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 500, result.RemainingPoints)
	require.NotNil(t, result.Reward)
	assert.Equal(t, "Test Theme", result.Reward.Name)

	var entryPoints int
	err := pool.QueryRow(context.Background(), `
		SELECT points FROM points_transactions
		WHERE user_id = $1 AND type = 'reward_redemption'`, userID).Scan(&entryPoints)
	require.NoError(t, err)
	assert.Equal(t, -2000, entryPoints)

	var redemptions int
	err = pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM user_rewards WHERE user_id = $1", userID).Scan(&redemptions)
	require.NoError(t, err)
	assert.Equal(t, 1, redemptions)
}

func TestRedeem_InactiveReward(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("redeem-inactive")
	userID := helpers.CreateTestProfile(t, pool, email, 10000)
	rewardID := helpers.CreateTestReward(t, pool, "Retired Reward", 1000, false)

	body := `{"reward_id": ` + strconv.Itoa(rewardID) + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/redeem", strings.NewReader(body))
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()
	rewardsHandler.Redeem(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)

	var result rewards.RedeemResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not available")
}

func TestGetDashboard_ReportsProgress(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	email := helpers.TestEmail("dashboard")
	userID := helpers.CreateTestProfile(t, pool, email, 50000)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards/dashboard", nil)
	req = helpers.AuthenticatedRequest(req, userID, email)
	rr := httptest.NewRecorder()
	rewardsHandler.GetDashboard(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var data rewards.UserRewardsData
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &data))
	assert.Equal(t, userID, data.ID)
	assert.Equal(t, 50000, data.Points)
	assert.Empty(t, data.Degraded)
	assert.NotNil(t, data.RecentTransactions)
}

func TestGetDashboard_Unauthenticated(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	rewardsService := services.NewRewardsService(pool)
	rewardsHandler := handlers.NewRewardsHandler(rewardsService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards/dashboard", nil)
	rr := httptest.NewRecorder()
	rewardsHandler.GetDashboard(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
