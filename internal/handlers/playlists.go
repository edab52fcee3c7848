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

// PlaylistHandler implements playlist management endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore

	NowFunc func() time.Time
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondStoreError(ctx, w, err, "owner not found", "playlist already exists")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseID(chi.URLParam(r, "playlistId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid playlist ID")
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlist, "playlist fetched successfully")
}

// ListByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := parseID(chi.URLParam(r, "userId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid user ID")
		return
	}

	playlists, err := h.Playlists.ListByOwner(ctx, ownerID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlists, "user playlists fetched successfully")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, status, msg := h.ownedPlaylist(r, "playlistId")
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	updated, err := h.Playlists.Update(ctx, playlist.ID, req.Name, req.Description)
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, status, msg := h.ownedPlaylist(r, "playlistId")
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		respondStoreError(ctx, w, err, "playlist not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "playlist deleted successfully")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, status, msg := h.ownedPlaylist(r, "playlistId")
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	videoID, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video ID")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		respondStoreError(ctx, w, err, "video not found", "video already in playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "video added to playlist successfully")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, status, msg := h.ownedPlaylist(r, "playlistId")
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	videoID, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video ID")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		respondStoreError(ctx, w, err, "video not in playlist", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "video removed from playlist successfully")
}

func (h PlaylistHandler) ownedPlaylist(r *http.Request, param string) (models.Playlist, int, string) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return models.Playlist{}, http.StatusUnauthorized, "authentication required"
	}

	id, ok := parseID(chi.URLParam(r, param))
	if !ok {
		return models.Playlist{}, http.StatusBadRequest, "invalid playlist ID"
	}

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Playlist{}, http.StatusNotFound, "playlist not found"
		}
		logging.FromContext(ctx).Error("playlist lookup failed", "playlistId", id, "error", err)
		return models.Playlist{}, http.StatusInternalServerError, "internal server error"
	}

	if playlist.OwnerID != owner.ID {
		return models.Playlist{}, http.StatusForbidden, "you do not own this playlist"
	}

	return playlist, 0, ""
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
