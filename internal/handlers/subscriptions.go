package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamtube/backend/internal/auth"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channelID, ok := parseID(chi.URLParam(r, "channelId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	if channelID == user.ID {
		respondError(ctx, w, http.StatusBadRequest, "you cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, user.ID, channelID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found", "")
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, ok := parseID(chi.URLParam(r, "channelId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID, ok := parseID(chi.URLParam(r, "subscriberId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid subscriber ID")
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		respondStoreError(ctx, w, err, "subscriber not found", "")
		return
	}

	respondJSON(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}
