package handlers

import (
	"context"
	"mime/multipart"

	"github.com/streamtube/backend/internal/media"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindProfileByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, url, key string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url, key string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string, page repositories.Page) ([]models.WatchHistoryEntry, int64, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
}

// TokenManager issues, rotates, and revokes the signed bearer credentials.
type TokenManager interface {
	IssuePair(ctx context.Context, user models.User) (models.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (models.TokenPair, models.User, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for video workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, filter repositories.VideoFilter, page repositories.Page) ([]models.VideoWithStats, int64, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
	Analytics(ctx context.Context, id string) (models.VideoAnalytics, error)
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// CommentStore captures persistence for comment workflows.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string, page repositories.Page) ([]models.Comment, int64, error)
	Update(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore captures persistence for the like toggles.
type LikeStore interface {
	Toggle(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error)
	LikedVideos(ctx context.Context, userID string, page repositories.Page) ([]models.VideoWithStats, int64, error)
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.UserSummary, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.UserSummary, error)
}

// PlaylistStore captures persistence for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	Update(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// MediaUploader moves multipart files into durable media storage.
type MediaUploader interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, opts media.UploadOptions) (media.Asset, error)
}

// AssetCleaner schedules best-effort deletion of replaced or removed assets.
type AssetCleaner interface {
	Enqueue(ctx context.Context, key string) error
}
