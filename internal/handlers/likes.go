package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/models"
)

// LikeHandler implements the polymorphic like toggles.
type LikeHandler struct {
	Likes LikeStore
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId")
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, kind models.LikeTarget, param string) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	targetID, ok := parseID(chi.URLParam(r, param))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid "+string(kind)+" ID")
		return
	}

	liked, err := h.Likes.Toggle(ctx, user.ID, kind, targetID)
	if err != nil {
		respondStoreError(ctx, w, err, string(kind)+" not found", "")
		return
	}

	message := string(kind) + " unliked successfully"
	if liked {
		message = string(kind) + " liked successfully"
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	page := parsePage(r)
	videos, total, err := h.Likes.LikedVideos(ctx, user.ID, page)
	if err != nil {
		respondStoreError(ctx, w, err, "videos not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPaginated(videos, page, total), "liked videos fetched successfully")
}
