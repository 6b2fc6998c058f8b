package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"flowvaHubAPI/internal/profile"
	"flowvaHubAPI/internal/rewards"
	"flowvaHubAPI/middleware"
	"flowvaHubAPI/services"
)

type RewardsHandler struct {
	rewardsService *services.RewardsService
}

func NewRewardsHandler(rewardsService *services.RewardsService) *RewardsHandler {
	return &RewardsHandler{
		rewardsService: rewardsService,
	}
}

func (h *RewardsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	data, err := h.rewardsService.GetRewardsData(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch rewards data")
		return
	}

	respondWithJSON(w, http.StatusOK, data)
}

func (h *RewardsHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.rewardsService.ClaimDailyPoints(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to claim points")
		return
	}

	if !result.Success {
		middleware.ObserveAccrualConflict("claim_daily")
		respondWithJSON(w, http.StatusConflict, result)
		return
	}

	middleware.ObservePointsAwarded(string(rewards.TypeDailyCheckin), result.PointsAwarded)
	respondWithJSON(w, http.StatusOK, result)
}

func (h *RewardsHandler) ShareStack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.rewardsService.ShareStack(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to award points")
		return
	}

	middleware.ObservePointsAwarded(string(rewards.TypeShareStack), result.PointsAwarded)
	respondWithJSON(w, http.StatusOK, result)
}

func (h *RewardsHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	catalog, err := h.rewardsService.GetCatalog(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch rewards")
		return
	}

	respondWithJSON(w, http.StatusOK, catalog)
}

func (h *RewardsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		RewardID int `json:"reward_id" validate:"required,gt=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.rewardsService.RedeemReward(ctx, userID, req.RewardID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to redeem reward")
		return
	}

	if !result.Success {
		middleware.ObserveAccrualConflict("redeem_reward")
		respondWithJSON(w, http.StatusConflict, result)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *RewardsHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.rewardsService.GetTransactions(ctx, userID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, txs)
}

func (h *RewardsHandler) GetCheckinCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()
	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = time.Month(m)
	}

	days, err := h.rewardsService.GetCheckinCalendar(ctx, userID, year, month)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch check-in calendar")
		return
	}

	respondWithJSON(w, http.StatusOK, days)
}
