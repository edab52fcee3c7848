package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/repositories"
)

// DashboardHandler serves the channel owner's analytics views.
type DashboardHandler struct {
	Videos VideoStore
}

// Stats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	stats, err := h.Videos.ChannelStats(ctx, owner.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, stats, "channel stats fetched successfully")
}

// ChannelVideos handles GET /api/v1/dashboard/videos. Unlike the public
// catalog this includes the owner's unpublished videos, and isPublished can
// narrow the listing to drafts or published only.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := repositories.VideoFilter{
		OwnerID:   owner.ID,
		Category:  strings.TrimSpace(q.Get("category")),
		Search:    strings.TrimSpace(q.Get("query")),
		SortBy:    q.Get("sortBy"),
		SortOrder: sortOrderParam(q),
	}
	if raw := q.Get("isPublished"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid isPublished value")
			return
		}
		filter.IsPublished = &published
	}

	page := parsePage(r)
	videos, total, err := h.Videos.List(ctx, filter, page)
	if err != nil {
		respondStoreError(ctx, w, err, "videos not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPaginated(videos, page, total), "channel videos fetched successfully")
}

// VideoAnalytics handles GET /api/v1/dashboard/videos/{videoId}. Analytics are
// restricted to the video's owner.
func (h DashboardHandler) VideoAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video ID")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("video lookup failed", "videoId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if video.OwnerID != owner.ID {
		respondError(ctx, w, http.StatusForbidden, "you do not own this video")
		return
	}

	analytics, err := h.Videos.Analytics(ctx, id)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, analytics, "video analytics fetched successfully")
}
