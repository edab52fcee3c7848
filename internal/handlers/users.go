package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/media"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
	"github.com/streamtube/backend/internal/validate"
)

// maxImageMemory bounds the in-memory portion of image multipart parsing.
const maxImageMemory = 10 << 20

// UserHandler implements registration, authentication, and profile endpoints.
type UserHandler struct {
	Users   UserStore
	Tokens  TokenManager
	Media   MediaUploader
	Cleanup AssetCleaner

	SecureCookies bool
	NowFunc       func() time.Time
}

type registerRequest struct {
	FullName string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=30"`
	Password string `validate:"required,min=8,max=72"`
}

// Register handles POST /api/v1/users/register (multipart).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := registerRequest{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.TrimSpace(strings.ToLower(r.FormValue("email"))),
		Username: strings.TrimSpace(strings.ToLower(r.FormValue("username"))),
		Password: r.FormValue("password"),
	}
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	if _, err := h.Users.FindByUsernameOrEmail(ctx, req.Username, req.Email); err == nil {
		respondError(ctx, w, http.StatusConflict, "user with this email or username already exists")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer avatarFile.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	avatar, err := h.Media.Upload(ctx, avatarFile, avatarHeader, media.UploadOptions{KeyPrefix: "avatars"})
	if err != nil {
		logger.Error("register avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	var cover media.Asset
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		cover, err = h.Media.Upload(ctx, coverFile, coverHeader, media.UploadOptions{KeyPrefix: "covers"})
		if err != nil {
			logger.Error("register cover upload failed", "error", err)
			_ = h.Cleanup.Enqueue(ctx, avatar.Key)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
	}

	now := h.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Avatar:     avatar.URL,
		AvatarKey:  avatar.Key,
		CoverImage: cover.URL,
		CoverKey:   cover.Key,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		_ = h.Cleanup.Enqueue(ctx, avatar.Key)
		_ = h.Cleanup.Enqueue(ctx, cover.Key)
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "user with this email or username already exists")
			return
		}
		logger.Error("register failed to create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	user.Password = ""
	respondJSON(ctx, w, http.StatusCreated, user, "user registered successfully")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User   models.User      `json:"user"`
	Tokens models.TokenPair `json:"tokens"`
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" && req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email is required")
		return
	}
	if req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "password is required")
		return
	}

	user, err := h.Users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.Error("login user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.Tokens.IssuePair(ctx, user)
	if err != nil {
		logger.Error("login failed to issue tokens", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	user.Password = ""
	user.RefreshToken = ""
	setAuthCookies(w, pair, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, authResponse{User: user, Tokens: pair}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Tokens.Revoke(ctx, user.ID); err != nil {
		logging.FromContext(ctx).Error("logout failed to revoke token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	clearAuthCookies(w, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, nil, "user logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken handles POST /api/v1/users/refresh-token. The incoming token
// is read from the refresh cookie or the request body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	incoming := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		incoming = cookie.Value
	}
	if incoming == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			incoming = strings.TrimSpace(req.RefreshToken)
		}
	}
	if incoming == "" {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	pair, _, err := h.Tokens.Rotate(ctx, incoming)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenMismatch):
			respondError(ctx, w, http.StatusUnauthorized, "refresh token is expired or used")
		case errors.Is(err, auth.ErrInvalidToken):
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		default:
			logging.FromContext(ctx).Error("refresh rotation failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	setAuthCookies(w, pair, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, pair, "access token refreshed")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	user, err := h.Users.FindByID(ctx, identity.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found", "")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		respondError(ctx, w, http.StatusUnauthorized, "invalid current password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logging.FromContext(ctx).Error("change password hash failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.Users.UpdatePassword(ctx, identity.ID, string(hashed)); err != nil {
		respondStoreError(ctx, w, err, "user not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user, "current user fetched successfully")
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if problems := validate.Struct(req); problems != nil {
		respondJSON(ctx, w, http.StatusBadRequest, problems, "validation failed")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, identity.ID, req.FullName, req.Email)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found", "email already in use")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user, "account updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar (multipart).
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars",
		func(identity models.User) string { return identity.AvatarKey },
		h.Users.UpdateAvatar,
		"avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image (multipart).
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers",
		func(identity models.User) string { return identity.CoverKey },
		h.Users.UpdateCoverImage,
		"cover image updated successfully")
}

func (h UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field, keyPrefix string,
	oldKey func(models.User) string,
	update func(ctx context.Context, id, url, key string) (models.User, error),
	message string,
) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" file is required")
		return
	}
	defer file.Close()

	asset, err := h.Media.Upload(ctx, file, header, media.UploadOptions{KeyPrefix: keyPrefix})
	if err != nil {
		logger.Error("image upload failed", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store "+field)
		return
	}

	user, err := update(ctx, identity.ID, asset.URL, asset.Key)
	if err != nil {
		_ = h.Cleanup.Enqueue(ctx, asset.Key)
		respondStoreError(ctx, w, err, "user not found", "")
		return
	}

	if prior := oldKey(identity); prior != "" {
		_ = h.Cleanup.Enqueue(ctx, prior)
	}

	respondJSON(ctx, w, http.StatusOK, user, message)
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewer, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	username := strings.TrimSpace(strings.ToLower(chi.URLParam(r, "username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is missing")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewer.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel does not exist", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	page := parsePage(r)
	entries, total, err := h.Users.WatchHistory(ctx, user.ID, page)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPaginated(entries, page, total), "watch history fetched successfully")
}

// RecordWatch handles POST /api/v1/users/history/{videoId}.
func (h UserHandler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID, ok := parseID(chi.URLParam(r, "videoId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid video ID")
		return
	}

	if err := h.Users.RecordWatch(ctx, user.ID, videoID); err != nil {
		respondStoreError(ctx, w, err, "video not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "watch recorded successfully")
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
