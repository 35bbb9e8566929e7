// internal/search/handlers.go
// Search endpoints over posts and users

package search

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/beegin-app/beegin-backend/internal/auth"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
	"github.com/beegin-app/beegin-backend/internal/posts"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

// Handler handles search HTTP requests
type Handler struct {
	postService    posts.Service
	profileService profile.Service
}

// NewHandler creates a search handler
func NewHandler(postService posts.Service, profileService profile.Service) *Handler {
	return &Handler{postService: postService, profileService: profileService}
}

func getPagination(r *http.Request) (limit, offset int) {
	limit = 20
	page := 1
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	return limit, (page - 1) * limit
}

// SearchPosts matches whole words in post content. media=media
// restricts results to posts with at least one image.
func (h *Handler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	mediaOnly := r.URL.Query().Get("media") == "media"
	viewerID, _ := auth.GetUserIDFromContext(r.Context())

	limit, offset := getPagination(r)
	results, total, err := h.postService.SearchPosts(r.Context(), term, mediaOnly, viewerID, limit, offset)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(results), total, results)
}

// SearchUsers matches display names and slugs
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))

	limit, offset := getPagination(r)
	users, total, err := h.profileService.SearchUsers(r.Context(), term, limit, offset)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(users), total, users)
}
