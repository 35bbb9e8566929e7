// internal/profile/handlers.go
// HTTP handlers for profile endpoints

package profile

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

// Handler handles profile HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a profile handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMe returns the authenticated user's own profile
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, profile)
}

// GetByID returns another user's public profile
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.ErrorResponse(w, apperrors.BadRequest("invalid_user_id", "User ID must be numeric"))
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	// Email stays private on other users' profiles
	profile.Email = ""

	utils.SuccessResponse(w, http.StatusOK, profile)
}

// UpdateMe applies a partial update to the authenticated user's profile
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, apperrors.BadRequest("invalid_body", "Request body must be valid JSON"))
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, profile)
}
