package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/media"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
	"github.com/streamtube/backend/internal/validate"
)

// maxVideoMemory bounds the in-memory portion of video multipart parsing.
// Larger uploads spill to disk via the multipart reader.
const maxVideoMemory = 32 << 20

// VideoHandler implements the video catalog and upload endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Users   UserStore
	Media   MediaUploader
	Cleanup AssetCleaner

	NowFunc func() time.Time
}

// List handles GET /api/v1/videos. Only published videos are listed.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	published := true
	filter := repositories.VideoFilter{
		IsPublished: &published,
		Category:    strings.TrimSpace(q.Get("category")),
		Search:      strings.TrimSpace(q.Get("query")),
		SortBy:      q.Get("sortBy"),
		SortOrder:   sortOrderParam(q),
	}
	if raw := q.Get("userId"); raw != "" {
		ownerID, ok := parseID(raw)
		if !ok {
			respondError(ctx, w, http.StatusBadRequest, "invalid user ID")
			return
		}
		filter.OwnerID = ownerID
	}

	page := parsePage(r)
	videos, total, err := h.Videos.List(ctx, filter, page)
	if err != nil {
		respondStoreError(ctx, w, err, "videos not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPaginated(videos, page, total), "videos fetched successfully")
}

type publishRequest struct {
	Title       string `validate:"required,max=120"`
	Description string `validate:"required,max=5000"`
	Category    string `validate:"max=60"`
}

// Publish handles POST /api/v1/videos (multipart with videoFile and thumbnail).
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxVideoMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := publishRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    strings.TrimSpace(r.FormValue("category")),
	}
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
		return
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}
	defer thumbFile.Close()

	videoAsset, err := h.Media.Upload(ctx, videoFile, videoHeader, media.UploadOptions{
		KeyPrefix:     "videos",
		ProbeDuration: true,
	})
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video file")
		return
	}

	thumbAsset, err := h.Media.Upload(ctx, thumbFile, thumbHeader, media.UploadOptions{KeyPrefix: "thumbnails"})
	if err != nil {
		logger.Error("thumbnail upload failed", "error", err)
		_ = h.Cleanup.Enqueue(ctx, videoAsset.Key)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     videoAsset.URL,
		VideoKey:     videoAsset.Key,
		Thumbnail:    thumbAsset.URL,
		ThumbnailKey: thumbAsset.Key,
		Duration:     videoAsset.Duration,
		IsPublished:  true,
		Category:     req.Category,
		Tags:         splitTags(r.FormValue("tags")),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		_ = h.Cleanup.Enqueue(ctx, videoAsset.Key)
		_ = h.Cleanup.Enqueue(ctx, thumbAsset.Key)
		respondStoreError(ctx, w, err, "owner not found", "video already exists")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}. Fetching a published video
// increments its view counter and records the viewer's watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	viewer, ok := auth.UserFromContext(ctx)
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
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	// Unpublished videos are visible to their owner only.
	if !video.IsPublished && video.OwnerID != viewer.ID {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if video.IsPublished {
		if err := h.Videos.IncrementViews(ctx, id); err != nil {
			logger.Warn("failed to increment views", "videoId", id, "error", err)
		} else {
			video.Views++
		}
		if err := h.Users.RecordWatch(ctx, viewer.ID, id); err != nil {
			logger.Warn("failed to record watch", "videoId", id, "userId", viewer.ID, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, video, "video fetched successfully")
}

type updateVideoRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// Update handles PATCH /api/v1/videos/{videoId}. Accepts JSON, or multipart
// when the thumbnail is being replaced.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, status, msg := h.ownedVideo(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	var req updateVideoRequest
	var thumbAsset media.Asset

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxImageMemory); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		req.Title = strings.TrimSpace(r.FormValue("title"))
		req.Description = strings.TrimSpace(r.FormValue("description"))
		req.Category = strings.TrimSpace(r.FormValue("category"))
		req.Tags = splitTags(r.FormValue("tags"))

		if file, header, err := r.FormFile("thumbnail"); err == nil {
			defer file.Close()
			thumbAsset, err = h.Media.Upload(ctx, file, header, media.UploadOptions{KeyPrefix: "thumbnails"})
			if err != nil {
				logger.Error("thumbnail upload failed", "error", err)
				respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
				return
			}
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	priorThumbKey := ""
	if title := strings.TrimSpace(req.Title); title != "" {
		video.Title = title
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		video.Description = desc
	}
	if category := strings.TrimSpace(req.Category); category != "" {
		video.Category = category
	}
	if req.Tags != nil {
		video.Tags = req.Tags
	}
	if thumbAsset.Key != "" {
		priorThumbKey = video.ThumbnailKey
		video.Thumbnail = thumbAsset.URL
		video.ThumbnailKey = thumbAsset.Key
	}
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		_ = h.Cleanup.Enqueue(ctx, thumbAsset.Key)
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	_ = h.Cleanup.Enqueue(ctx, priorThumbKey)
	respondJSON(ctx, w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, status, msg := h.ownedVideo(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	_ = h.Cleanup.Enqueue(ctx, video.VideoKey)
	_ = h.Cleanup.Enqueue(ctx, video.ThumbnailKey)

	respondJSON(ctx, w, http.StatusOK, nil, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, status, msg := h.ownedVideo(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	updated, err := h.Videos.TogglePublish(ctx, video.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "publish status toggled successfully")
}

// ownedVideo loads the addressed video and verifies the authenticated user
// owns it. A non-zero status means the request must be rejected.
func (h VideoHandler) ownedVideo(r *http.Request) (models.Video, int, string) {
	ctx := r.Context()

	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return models.Video{}, http.StatusUnauthorized, "authentication required"
	}

	id, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		return models.Video{}, http.StatusBadRequest, "invalid video ID"
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, http.StatusNotFound, "video not found"
		}
		logging.FromContext(ctx).Error("video lookup failed", "videoId", id, "error", err)
		return models.Video{}, http.StatusInternalServerError, "internal server error"
	}

	if video.OwnerID != owner.ID {
		return models.Video{}, http.StatusForbidden, "you do not own this video"
	}

	return video, 0, ""
}

// sortOrderParam reads the sort direction, preferring sortOrder over the
// legacy sortType alias.
func sortOrderParam(q url.Values) string {
	if v := q.Get("sortOrder"); v != "" {
		return v
	}
	return q.Get("sortType")
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
