package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/models"
)

func likedState(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var got map[string]bool
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal toggle payload: %v", err)
	}
	return got["liked"]
}

func TestToggleLikeAlternates(t *testing.T) {
	alice, _ := seededUsers()
	env := newTestEnv(alice)
	env.likes.targets[videoID] = true

	token := env.tokens.accessFor(aliceID)
	path := "/api/v1/likes/toggle/v/" + videoID

	rec := env.do(t, http.MethodPost, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !likedState(t, rec) {
		t.Fatal("expected first toggle to like")
	}

	rec = env.do(t, http.MethodPost, path, token, nil)
	if likedState(t, rec) {
		t.Fatal("expected second toggle to unlike")
	}

	rec = env.do(t, http.MethodPost, path, token, nil)
	if !likedState(t, rec) {
		t.Fatal("expected third toggle to like again")
	}
}

func TestToggleLikeMissingTarget(t *testing.T) {
	alice, _ := seededUsers()
	env := newTestEnv(alice)

	rec := env.do(t, http.MethodPost, "/api/v1/likes/toggle/c/"+uuid.NewString(), env.tokens.accessFor(aliceID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for missing comment, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSubscriptionToggleAndSelfBlock(t *testing.T) {
	alice, bob := seededUsers()
	env := newTestEnv(alice, bob)
	env.subscriptions.channels[bobID] = true

	token := env.tokens.accessFor(aliceID)

	rec := env.do(t, http.MethodPost, "/api/v1/subscriptions/c/"+aliceID, token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for self subscription, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/subscriptions/c/"+bobID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !env.subscriptions.subs[aliceID+"|"+bobID] {
		t.Fatal("expected subscription to be recorded")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/subscriptions/c/"+bobID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if env.subscriptions.subs[aliceID+"|"+bobID] {
		t.Fatal("expected second toggle to unsubscribe")
	}
}

func TestCommentLifecycle(t *testing.T) {
	alice, bob := seededUsers()
	env := newTestEnv(alice, bob)
	env.comments.videos[videoID] = true

	aliceToken := env.tokens.accessFor(aliceID)
	bobToken := env.tokens.accessFor(bobID)

	rec := env.do(t, http.MethodPost, "/api/v1/comments/"+videoID, aliceToken, commentRequest{Content: "nice video"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var created models.Comment
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal comment: %v", err)
	}

	// Another user cannot edit it.
	rec = env.do(t, http.MethodPatch, "/api/v1/comments/c/"+created.ID, bobToken, commentRequest{Content: "hijack"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for non-owner edit, got %d", http.StatusForbidden, rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/comments/c/"+created.ID, aliceToken, commentRequest{Content: "edited"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/comments/c/"+created.ID, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(env.comments.comments) != 0 {
		t.Fatal("expected comment to be deleted")
	}
}

func TestCommentRejectsEmptyContent(t *testing.T) {
	alice, _ := seededUsers()
	env := newTestEnv(alice)
	env.comments.videos[videoID] = true

	rec := env.do(t, http.MethodPost, "/api/v1/comments/"+videoID, env.tokens.accessFor(aliceID), commentRequest{Content: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestTweetOwnership(t *testing.T) {
	alice, bob := seededUsers()
	env := newTestEnv(alice, bob)

	aliceToken := env.tokens.accessFor(aliceID)

	rec := env.do(t, http.MethodPost, "/api/v1/tweets/", aliceToken, tweetRequest{Content: "hello feed"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var created models.Tweet
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal tweet: %v", err)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/tweets/"+created.ID, env.tokens.accessFor(bobID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for non-owner delete, got %d", http.StatusForbidden, rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/tweets/"+created.ID, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
}

func TestPlaylistAddVideoRejectsDuplicates(t *testing.T) {
	alice, _ := seededUsers()
	env := newTestEnv(alice)

	token := env.tokens.accessFor(aliceID)

	rec := env.do(t, http.MethodPost, "/api/v1/playlists/", token, playlistRequest{Name: "favorites"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var playlist models.Playlist
	if err := json.Unmarshal(data, &playlist); err != nil {
		t.Fatalf("unmarshal playlist: %v", err)
	}

	addPath := "/api/v1/playlists/add/" + videoID + "/" + playlist.ID
	rec = env.do(t, http.MethodPatch, addPath, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodPatch, addPath, token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d for duplicate add, got %d", http.StatusConflict, rec.Code)
	}

	removePath := "/api/v1/playlists/remove/" + videoID + "/" + playlist.ID
	rec = env.do(t, http.MethodPatch, removePath, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodPatch, removePath, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d removing absent video, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDashboardRestrictedToOwner(t *testing.T) {
	alice, bob := seededUsers()
	env := newTestEnv(alice, bob)
	seedVideo(env, videoID, aliceID, true)
	env.videos.stats[videoID] = models.VideoAnalytics{ID: videoID, Views: 0, LikesCount: 3, CommentsCount: 2, EngagementRate: 500}

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/videos/"+videoID, env.tokens.accessFor(bobID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for non-owner analytics, got %d", http.StatusForbidden, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/videos/"+videoID, env.tokens.accessFor(aliceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/stats", env.tokens.accessFor(aliceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var stats models.ChannelStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.TotalVideos != 1 {
		t.Fatalf("expected 1 video in stats, got %d", stats.TotalVideos)
	}
}

func dashboardVideos(t *testing.T, rec *httptest.ResponseRecorder) []models.VideoWithStats {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var page struct {
		Items []models.VideoWithStats `json:"items"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	return page.Items
}

func TestDashboardVideosFilterByPublishState(t *testing.T) {
	alice, _ := seededUsers()
	env := newTestEnv(alice)
	seedVideo(env, videoID, aliceID, true)
	draftID := "44444444-4444-4444-4444-444444444444"
	seedVideo(env, draftID, aliceID, false)

	// Without the filter the owner sees drafts and published alike.
	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/videos", env.tokens.accessFor(aliceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if items := dashboardVideos(t, rec); len(items) != 2 {
		t.Fatalf("expected 2 videos without filter, got %d", len(items))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/videos?isPublished=false", env.tokens.accessFor(aliceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	items := dashboardVideos(t, rec)
	if len(items) != 1 || items[0].ID != draftID {
		t.Fatalf("expected only the draft, got %+v", items)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/videos?isPublished=true", env.tokens.accessFor(aliceID), nil)
	if items := dashboardVideos(t, rec); len(items) != 1 || items[0].ID != videoID {
		t.Fatalf("expected only the published video, got %+v", items)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/videos?isPublished=banana", env.tokens.accessFor(aliceID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for bad filter value, got %d", http.StatusBadRequest, rec.Code)
	}
}
