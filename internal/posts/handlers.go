// internal/posts/handlers.go
// HTTP handlers for post endpoints

package posts

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/query"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

// Handler handles post HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a post handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid_id", "ID must be a positive number")
	}
	return id, nil
}

func viewerID(r *http.Request) int64 {
	id, _ := auth.GetUserIDFromContext(r.Context())
	return id
}

// CreatePost accepts either a JSON body or a multipart form with a
// content field and image files.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
		return
	}

	var req CreatePostRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			utils.ErrorResponse(w, apperrors.BadRequest("invalid_form", "Malformed multipart form"))
			return
		}

		req.Content = r.FormValue("content")
		if parentStr := r.FormValue("parent"); parentStr != "" {
			parent, err := strconv.ParseInt(parentStr, 10, 64)
			if err != nil {
				utils.ErrorResponse(w, apperrors.BadRequest("invalid_parent", "Parent must be a post ID"))
				return
			}
			req.Parent = &parent
		}

		if r.MultipartForm != nil {
			urls, err := h.service.UploadImages(r.Context(), r.MultipartForm.File["images"])
			if err != nil {
				utils.ErrorResponse(w, err)
				return
			}
			req.Images = urls
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ErrorResponse(w, apperrors.BadRequest("invalid_body", "Request body must be valid JSON"))
			return
		}
	}

	post, err := h.service.CreatePost(r.Context(), userID, &req)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusCreated, post)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	post, err := h.service.GetPost(r.Context(), postID, viewerID(r))
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, post)
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, apperrors.BadRequest("invalid_body", "Request body must be valid JSON"))
		return
	}

	post, err := h.service.UpdatePost(r.Context(), userID, postID, &req)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, post)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, postID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	if err := h.service.LikePost(r.Context(), userID, postID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusCreated, "Post liked")
}

func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	if err := h.service.UnlikePost(r.Context(), userID, postID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Post unliked")
}

func (h *Handler) IsPostLiked(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	liked, err := h.service.IsPostLiked(r.Context(), userID, postID)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, map[string]bool{"isLiked": liked})
}

func (h *Handler) GetLikers(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	opts := query.Parse(r.URL.Query())
	likers, total, err := h.service.GetLikers(r.Context(), postID, opts)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(likers), total, likers)
}

func (h *Handler) GetSharers(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	opts := query.Parse(r.URL.Query())
	shares, total, err := h.service.GetSharers(r.Context(), postID, viewerID(r), opts)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(shares), total, shares)
}

// GetMyPosts serves the authenticated user's own timeline
func (h *Handler) GetMyPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
		return
	}

	opts := query.Parse(r.URL.Query())
	posts, total, err := h.service.GetUserPosts(r.Context(), userID, userID, opts)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(posts), total, posts)
}

func (h *Handler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	opts := query.Parse(r.URL.Query())
	posts, total, err := h.service.GetUserPosts(r.Context(), authorID, viewerID(r), opts)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(posts), total, posts)
}

func (h *Handler) GetUserShares(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	opts := query.Parse(r.URL.Query())
	shares, total, err := h.service.GetUserShares(r.Context(), userID, viewerID(r), opts)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(shares), total, shares)
}

func (h *Handler) GetUserLikes(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	opts := query.Parse(r.URL.Query())
	liked, total, err := h.service.GetUserLikes(r.Context(), userID, viewerID(r), opts)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(liked), total, liked)
}

func (h *Handler) GetRandomPosts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	posts, err := h.service.GetRandomPosts(r.Context(), viewerID(r), limit)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ListResponse(w, len(posts), posts)
}
