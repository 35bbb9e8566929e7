// internal/comments/handlers.go
// HTTP handlers for comment endpoints

package comments

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

// Handler handles comment HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a comment handler
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

func viewerID(r *http.Request) int64 {
	id, _ := auth.GetUserIDFromContext(r.Context())
	return id
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, apperrors.BadRequest("invalid_body", "Request body must be valid JSON"))
		return
	}

	comment, err := h.service.CreateComment(r.Context(), userID, postID, &req)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusCreated, comment)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	limit, offset := getPagination(r)
	comments, total, err := h.service.ListComments(r.Context(), postID, viewerID(r), limit, offset)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(comments), total, comments)
}

func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	comment, err := h.service.GetComment(r.Context(), commentID, viewerID(r))
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, comment)
}

func (h *Handler) ListReplies(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	limit, offset := getPagination(r)
	replies, total, err := h.service.ListReplies(r.Context(), commentID, viewerID(r), limit, offset)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(replies), total, replies)
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, apperrors.BadRequest("invalid_body", "Request body must be valid JSON"))
		return
	}

	comment, err := h.service.UpdateComment(r.Context(), userID, commentID, &req)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, comment)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	if err := h.service.DeleteComment(r.Context(), userID, commentID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	if err := h.service.LikeComment(r.Context(), userID, commentID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusCreated, "Comment liked")
}

func (h *Handler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	if err := h.service.UnlikeComment(r.Context(), userID, commentID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Comment unliked")
}

func (h *Handler) GetLikers(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	limit, offset := getPagination(r)
	likers, total, err := h.service.GetLikers(r.Context(), commentID, limit, offset)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(likers), total, likers)
}
