package handlers

import (
	"net/http"

	"famhub-backend/application/ports"
	"famhub-backend/domain/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProfileHandler serves the user profile endpoints.
type ProfileHandler struct {
	profiles ports.ProfileRepository
	logger   *zap.Logger
}

// NewProfileHandler creates the profile handler.
func NewProfileHandler(profiles ports.ProfileRepository, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger.Named("profiles")}
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=1000"`
	PhotoKey    *string `json:"photoKey" validate:"omitempty,max=1024"`
	IsPrivate   *bool   `json:"isPrivate"`
}

// GetMyProfile handles GET /profiles/me. The profile is created on first
// access from the caller's token claims.
func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.EnsureProfile(r.Context(), model.UserProfile{
		UserID:      identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.Email,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// GetProfile handles GET /profiles/{userID}.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /profiles/{userID}. Absent fields are left
// unchanged.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), identity, chi.URLParam(r, "userID"), ports.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		PhotoKey:    req.PhotoKey,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// DeactivateProfile handles POST /profiles/{userID}/deactivate.
func (h *ProfileHandler) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := h.profiles.DeactivateProfile(r.Context(), identity, chi.URLParam(r, "userID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
