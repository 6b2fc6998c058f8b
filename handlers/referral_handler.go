package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"flowvaHubAPI/internal/profile"
	"flowvaHubAPI/internal/referral"
	"flowvaHubAPI/middleware"
	"flowvaHubAPI/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
}

func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

func (h *ReferralHandler) CreateReferral(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req referral.CreateReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.referralService.CreateReferral(ctx, userID, req.Email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to create referral")
		return
	}

	if !result.Success {
		middleware.ObserveAccrualConflict("create_referral")
		respondWithJSON(w, http.StatusConflict, result)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReferralHandler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	list, err := h.referralService.ListReferrals(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch referrals")
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}
