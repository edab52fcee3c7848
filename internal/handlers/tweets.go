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

// TweetHandler implements the channel feed post endpoints.
type TweetHandler struct {
	Tweets TweetStore

	NowFunc func() time.Time
}

type tweetRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req tweetRequest
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
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondStoreError(ctx, w, err, "owner not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, tweet, "tweet created successfully")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := parseID(chi.URLParam(r, "userId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid user ID")
		return
	}

	tweets, err := h.Tweets.ListByOwner(ctx, ownerID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, tweets, "user tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweet, status, msg := h.ownedTweet(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	updated, err := h.Tweets.Update(ctx, tweet.ID, req.Content)
	if err != nil {
		respondStoreError(ctx, w, err, "tweet not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweet, status, msg := h.ownedTweet(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		respondStoreError(ctx, w, err, "tweet not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "tweet deleted successfully")
}

func (h TweetHandler) ownedTweet(r *http.Request) (models.Tweet, int, string) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return models.Tweet{}, http.StatusUnauthorized, "authentication required"
	}

	id, ok := parseID(chi.URLParam(r, "tweetId"))
	if !ok {
		return models.Tweet{}, http.StatusBadRequest, "invalid tweet ID"
	}

	tweet, err := h.Tweets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Tweet{}, http.StatusNotFound, "tweet not found"
		}
		logging.FromContext(ctx).Error("tweet lookup failed", "tweetId", id, "error", err)
		return models.Tweet{}, http.StatusInternalServerError, "internal server error"
	}

	if tweet.OwnerID != owner.ID {
		return models.Tweet{}, http.StatusForbidden, "you do not own this tweet"
	}

	return tweet, 0, ""
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
