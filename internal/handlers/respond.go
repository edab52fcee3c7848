package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

// apiResponse is the uniform envelope carried by every response.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", message)
	default:
		logger.Warn("request returned client error", "status", status, "message", message)
	}

	respondJSON(ctx, w, status, nil, message)
}

// respondStoreError translates repository failures. Unexpected causes are
// logged with the original error and surfaced as an opaque 500.
func respondStoreError(ctx context.Context, w http.ResponseWriter, err error, notFoundMsg, conflictMsg string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, conflictMsg)
	default:
		logging.FromContext(ctx).Error("store operation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}

// parseID validates a client-supplied identifier before it reaches any query.
func parseID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// parsePage reads the page/limit query parameters, defaulting to page 1 of 10.
func parsePage(r *http.Request) repositories.Page {
	page := repositories.Page{Number: 1, Limit: 10}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	return page
}

// paginated wraps a result slice with the standard pagination metadata.
type paginated struct {
	Items any                   `json:"items"`
	Info  repositories.PageInfo `json:"pagination"`
}

func newPaginated(items any, page repositories.Page, total int64) paginated {
	return paginated{Items: items, Info: repositories.NewPageInfo(page, total)}
}

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

func setAuthCookies(w http.ResponseWriter, pair models.TokenPair, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter, secure bool) {
	expired := time.Unix(0, 0)
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  expired,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
