package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
	"github.com/streamtube/backend/internal/validate"
)

// CommentHandler implements the per-video comment endpoints.
type CommentHandler struct {
	Comments CommentStore

	NowFunc func() time.Time
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video ID")
		return
	}

	page := parsePage(r)
	comments, total, err := h.Comments.ListByVideo(ctx, videoID, page)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPaginated(comments, page, total), "comments fetched successfully")
}

// Create handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video ID")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   owner.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	summary := owner.Summary()
	comment.Owner = &summary
	respondJSON(ctx, w, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, status, msg := h.ownedComment(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	updated, err := h.Comments.Update(ctx, comment.ID, req.Content)
	if err != nil {
		respondStoreError(ctx, w, err, "comment not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, status, msg := h.ownedComment(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondStoreError(ctx, w, err, "comment not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "comment deleted successfully")
}

func (h CommentHandler) ownedComment(r *http.Request) (models.Comment, int, string) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return models.Comment{}, http.StatusUnauthorized, "authentication required"
	}

	id, ok := parseID(chi.URLParam(r, "commentId"))
	if !ok {
		return models.Comment{}, http.StatusBadRequest, "invalid comment ID"
	}

	comment, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, http.StatusNotFound, "comment not found"
		}
		logging.FromContext(ctx).Error("comment lookup failed", "commentId", id, "error", err)
		return models.Comment{}, http.StatusInternalServerError, "internal server error"
	}

	if comment.OwnerID != owner.ID {
		return models.Comment{}, http.StatusForbidden, "you do not own this comment"
	}

	return comment, 0, ""
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
