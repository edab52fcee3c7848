package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/media"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

// fakeUserStore is an in-memory UserStore keyed by user id.
type fakeUserStore struct {
	users   map[string]models.User
	history map[string][]models.WatchHistoryEntry
	watched map[string][]string
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{
		users:   make(map[string]models.User),
		history: make(map[string][]models.WatchHistoryEntry),
		watched: make(map[string][]string),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindProfileByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	user.RefreshToken = ""
	return user, nil
}

func (s *fakeUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (models.User, error) {
	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) UpdateAccount(_ context.Context, id, fullName, email string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.ID != id && existing.Email == email {
			return models.User{}, repositories.ErrConflict
		}
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	user.Password = ""
	return user, nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, url, key string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.Avatar, user.AvatarKey = url, key
	s.users[id] = user
	user.Password = ""
	return user, nil
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id, url, key string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.CoverImage, user.CoverKey = url, key
	s.users[id] = user
	user.Password = ""
	return user, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{UserSummary: user.Summary(), CoverImage: user.CoverImage}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *fakeUserStore) WatchHistory(_ context.Context, userID string, page repositories.Page) ([]models.WatchHistoryEntry, int64, error) {
	entries := s.history[userID]
	return entries, int64(len(entries)), nil
}

func (s *fakeUserStore) RecordWatch(_ context.Context, userID, videoID string) error {
	s.watched[userID] = append(s.watched[userID], videoID)
	return nil
}

// fakeTokens implements TokenManager and middleware.AccessVerifier with
// predictable token strings.
type fakeTokens struct {
	users   map[string]models.User
	refresh map[string]string
	seq     int
}

func newFakeTokens(users ...models.User) *fakeTokens {
	t := &fakeTokens{users: make(map[string]models.User), refresh: make(map[string]string)}
	for _, u := range users {
		t.users[u.ID] = u
	}
	return t
}

func (t *fakeTokens) accessFor(userID string) string { return "access-" + userID }

func (t *fakeTokens) IssuePair(_ context.Context, user models.User) (models.TokenPair, error) {
	t.users[user.ID] = user
	t.seq++
	refresh := fmt.Sprintf("refresh-%s-%d", user.ID, t.seq)
	t.refresh[user.ID] = refresh
	return models.TokenPair{
		AccessToken:      t.accessFor(user.ID),
		AccessExpiresAt:  time.Now().Add(time.Minute),
		RefreshToken:     refresh,
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (t *fakeTokens) Rotate(ctx context.Context, refreshToken string) (models.TokenPair, models.User, error) {
	for userID, current := range t.refresh {
		if current == refreshToken {
			pair, err := t.IssuePair(ctx, t.users[userID])
			return pair, t.users[userID], err
		}
	}
	if strings.HasPrefix(refreshToken, "refresh-") {
		return models.TokenPair{}, models.User{}, auth.ErrTokenMismatch
	}
	return models.TokenPair{}, models.User{}, auth.ErrInvalidToken
}

func (t *fakeTokens) Revoke(_ context.Context, userID string) error {
	delete(t.refresh, userID)
	return nil
}

func (t *fakeTokens) VerifyAccess(token string) (auth.AccessClaims, error) {
	id, ok := strings.CutPrefix(token, "access-")
	if !ok {
		return auth.AccessClaims{}, auth.ErrInvalidToken
	}
	if _, exists := t.users[id]; !exists {
		return auth.AccessClaims{}, auth.ErrInvalidToken
	}
	return auth.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: id}}, nil
}

// fakeMedia stores nothing and derives URLs from the upload options.
type fakeMedia struct {
	uploads []string
	fail    bool
}

func (m *fakeMedia) Upload(_ context.Context, _ multipart.File, header *multipart.FileHeader, opts media.UploadOptions) (media.Asset, error) {
	if m.fail {
		return media.Asset{}, fmt.Errorf("upload failed")
	}
	key := opts.KeyPrefix + "/" + header.Filename
	m.uploads = append(m.uploads, key)
	asset := media.Asset{URL: "https://cdn.test/" + key, Key: key, Size: header.Size}
	if opts.ProbeDuration {
		asset.Duration = 12.5
	}
	return asset, nil
}

// fakeCleaner records enqueued keys.
type fakeCleaner struct {
	keys []string
}

func (c *fakeCleaner) Enqueue(_ context.Context, key string) error {
	if key != "" {
		c.keys = append(c.keys, key)
	}
	return nil
}

// fakeVideoStore is an in-memory VideoStore.
type fakeVideoStore struct {
	videos map[string]models.Video
	stats  map[string]models.VideoAnalytics
}

func newFakeVideoStore(videos ...models.Video) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[string]models.Video), stats: make(map[string]models.VideoAnalytics)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) List(_ context.Context, filter repositories.VideoFilter, page repositories.Page) ([]models.VideoWithStats, int64, error) {
	var out []models.VideoWithStats
	for _, v := range s.videos {
		if filter.IsPublished != nil && v.IsPublished != *filter.IsPublished {
			continue
		}
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(v.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, models.VideoWithStats{Video: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeVideoStore) Update(_ context.Context, video models.Video) error {
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeVideoStore) TogglePublish(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

func (s *fakeVideoStore) Analytics(_ context.Context, id string) (models.VideoAnalytics, error) {
	analytics, ok := s.stats[id]
	if !ok {
		return models.VideoAnalytics{}, repositories.ErrNotFound
	}
	return analytics, nil
}

func (s *fakeVideoStore) ChannelStats(_ context.Context, ownerID string) (models.ChannelStats, error) {
	stats := models.ChannelStats{}
	for _, v := range s.videos {
		if v.OwnerID != ownerID {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += v.Views
		if v.IsPublished {
			stats.PublishedVideos++
		}
	}
	return stats, nil
}

// fakeLikeStore toggles in memory with the same alternation the database
// unique index enforces.
type fakeLikeStore struct {
	likes   map[string]bool
	targets map[string]bool
}

func newFakeLikeStore(targetIDs ...string) *fakeLikeStore {
	s := &fakeLikeStore{likes: make(map[string]bool), targets: make(map[string]bool)}
	for _, id := range targetIDs {
		s.targets[id] = true
	}
	return s
}

func (s *fakeLikeStore) Toggle(_ context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error) {
	if !s.targets[targetID] {
		return false, repositories.ErrNotFound
	}
	key := userID + "|" + string(kind) + "|" + targetID
	if s.likes[key] {
		delete(s.likes, key)
		return false, nil
	}
	s.likes[key] = true
	return true, nil
}

func (s *fakeLikeStore) LikedVideos(_ context.Context, userID string, page repositories.Page) ([]models.VideoWithStats, int64, error) {
	return nil, 0, nil
}

type fakeSubscriptionStore struct {
	channels map[string]bool
	subs     map[string]bool
}

func newFakeSubscriptionStore(channelIDs ...string) *fakeSubscriptionStore {
	s := &fakeSubscriptionStore{channels: make(map[string]bool), subs: make(map[string]bool)}
	for _, id := range channelIDs {
		s.channels[id] = true
	}
	return s
}

func (s *fakeSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	if !s.channels[channelID] {
		return false, repositories.ErrNotFound
	}
	key := subscriberID + "|" + channelID
	if s.subs[key] {
		delete(s.subs, key)
		return false, nil
	}
	s.subs[key] = true
	return true, nil
}

func (s *fakeSubscriptionStore) Subscribers(_ context.Context, channelID string) ([]models.UserSummary, error) {
	if !s.channels[channelID] {
		return nil, repositories.ErrNotFound
	}
	return []models.UserSummary{}, nil
}

func (s *fakeSubscriptionStore) SubscribedChannels(_ context.Context, subscriberID string) ([]models.UserSummary, error) {
	return []models.UserSummary{}, nil
}

type fakeCommentStore struct {
	comments map[string]models.Comment
	videos   map[string]bool
}

func newFakeCommentStore(videoIDs ...string) *fakeCommentStore {
	s := &fakeCommentStore{comments: make(map[string]models.Comment), videos: make(map[string]bool)}
	for _, id := range videoIDs {
		s.videos[id] = true
	}
	return s
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	if !s.videos[comment.VideoID] {
		return repositories.ErrNotFound
	}
	s.comments[comment.ID] = comment
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) ListByVideo(_ context.Context, videoID string, page repositories.Page) ([]models.Comment, int64, error) {
	var out []models.Comment
	for _, c := range s.comments {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeCommentStore) Update(_ context.Context, id, content string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type fakeTweetStore struct {
	tweets map[string]models.Tweet
}

func newFakeTweetStore() *fakeTweetStore {
	return &fakeTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *fakeTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *fakeTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *fakeTweetStore) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	var out []models.Tweet
	for _, tw := range s.tweets {
		if tw.OwnerID == ownerID {
			out = append(out, tw)
		}
	}
	return out, nil
}

func (s *fakeTweetStore) Update(_ context.Context, id, content string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	tweet.Content = content
	s.tweets[id] = tweet
	return tweet, nil
}

func (s *fakeTweetStore) Delete(_ context.Context, id string) error {
	if _, ok := s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return nil
}

type fakePlaylistStore struct {
	playlists map[string]models.Playlist
	members   map[string]map[string]bool
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{playlists: make(map[string]models.Playlist), members: make(map[string]map[string]bool)}
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.playlists[playlist.ID] = playlist
	s.members[playlist.ID] = make(map[string]bool)
	return nil
}

func (s *fakePlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *fakePlaylistStore) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	var out []models.Playlist
	for _, p := range s.playlists {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePlaylistStore) Update(_ context.Context, id, name, description string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.Name, playlist.Description = name, description
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	members, ok := s.members[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	if members[videoID] {
		return repositories.ErrConflict
	}
	members[videoID] = true
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	members, ok := s.members[playlistID]
	if !ok || !members[videoID] {
		return repositories.ErrNotFound
	}
	delete(members, videoID)
	return nil
}

// testEnv bundles the fakes behind a routed handler.
type testEnv struct {
	router        chi.Router
	users         *fakeUserStore
	tokens        *fakeTokens
	videos        *fakeVideoStore
	comments      *fakeCommentStore
	likes         *fakeLikeStore
	subscriptions *fakeSubscriptionStore
	playlists     *fakePlaylistStore
	tweets        *fakeTweetStore
	media         *fakeMedia
	cleaner       *fakeCleaner
}

func newTestEnv(seedUsers ...models.User) *testEnv {
	env := &testEnv{
		users:         newFakeUserStore(seedUsers...),
		tokens:        newFakeTokens(seedUsers...),
		videos:        newFakeVideoStore(),
		comments:      newFakeCommentStore(),
		likes:         newFakeLikeStore(),
		subscriptions: newFakeSubscriptionStore(),
		playlists:     newFakePlaylistStore(),
		tweets:        newFakeTweetStore(),
		media:         &fakeMedia{},
		cleaner:       &fakeCleaner{},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Dependencies{
		Users:         env.users,
		Tokens:        env.tokens,
		Verifier:      env.tokens,
		Videos:        env.videos,
		Comments:      env.comments,
		Likes:         env.likes,
		Subscriptions: env.subscriptions,
		Playlists:     env.playlists,
		Tweets:        env.tweets,
		Media:         env.media,
		Cleanup:       env.cleaner,
	})
	env.router = router
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for name, filename := range files {
		part, err := writer.CreateFormFile(name, filename)
		if err != nil {
			t.Fatalf("create file part %s: %v", name, err)
		}
		if _, err := part.Write([]byte("file-bytes")); err != nil {
			t.Fatalf("write file part %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}

const (
	aliceID = "11111111-1111-1111-1111-111111111111"
	bobID   = "22222222-2222-2222-2222-222222222222"
	videoID = "33333333-3333-3333-3333-333333333333"
)

func seededUsers() (models.User, models.User) {
	alice := models.User{ID: aliceID, Username: "alice", Email: "alice@example.com", FullName: "Alice Example"}
	bob := models.User{ID: bobID, Username: "bob", Email: "bob@example.com", FullName: "Bob Example"}
	return alice, bob
}
