package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"flowvaHubAPI/internal/profile"
	"flowvaHubAPI/internal/session"
	"flowvaHubAPI/services"
)

var validate = validator.New()

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req profile.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.SignUp(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	if !result.Success {
		respondWithJSON(w, http.StatusConflict, result)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req profile.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.SignIn(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	if !result.Success {
		respondWithJSON(w, http.StatusUnauthorized, result)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req profile.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req profile.SignOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.SignOut(ctx, req.RefreshToken); err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			respondWithError(w, http.StatusUnauthorized, "Session not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req profile.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.VerifyEmail(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	}

	if !result.Success {
		respondWithJSON(w, http.StatusBadRequest, result)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
