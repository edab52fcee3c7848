package models

import "time"

// User represents an account within the StreamTube platform. Password and
// RefreshToken never serialize into responses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	AvatarKey    string    `json:"-"`
	CoverImage   string    `json:"coverImage,omitempty"`
	CoverKey     string    `json:"-"`
	Password     string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the owner projection joined onto videos, comments, and
// subscription listings.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Avatar   string `json:"avatar"`
}

// Summary returns the public projection of a user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// Video stores the metadata for an uploaded video. VideoKey and ThumbnailKey
// are the object-store deletion handles for the underlying assets.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoFile"`
	VideoKey     string    `json:"-"`
	Thumbnail    string    `json:"thumbnail"`
	ThumbnailKey string    `json:"-"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	Category     string    `json:"category"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VideoWithStats decorates a video with its owner projection and the counts
// computed at query time.
type VideoWithStats struct {
	Video
	Owner         UserSummary `json:"ownerDetails"`
	LikesCount    int64       `json:"likesCount"`
	CommentsCount int64       `json:"commentsCount"`
}

// VideoAnalytics is the per-video dashboard projection.
type VideoAnalytics struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Views          int64     `json:"views"`
	Duration       float64   `json:"duration"`
	CreatedAt      time.Time `json:"createdAt"`
	LikesCount     int64     `json:"likesCount"`
	CommentsCount  int64     `json:"commentsCount"`
	EngagementRate float64   `json:"engagementRate"`
}

// ChannelStats aggregates a channel's videos, views, subscribers, and likes.
type ChannelStats struct {
	TotalVideos     int64   `json:"totalVideos"`
	PublishedVideos int64   `json:"publishedVideos"`
	TotalViews      int64   `json:"totalViews"`
	AvgDuration     float64 `json:"avgDuration"`
	Subscribers     int64   `json:"subscribers"`
	TotalLikes      int64   `json:"totalLikes"`
}

// ChannelProfile is the public channel page for a user.
type ChannelProfile struct {
	UserSummary
	CoverImage        string `json:"coverImage,omitempty"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// Comment is a user remark attached to a video.
type Comment struct {
	ID        string       `json:"id"`
	VideoID   string       `json:"video"`
	OwnerID   string       `json:"owner"`
	Content   string       `json:"content"`
	Owner     *UserSummary `json:"ownerDetails,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// LikeTarget tags which entity kind a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Valid reports whether the target kind is one of the known variants.
func (t LikeTarget) Valid() bool {
	switch t {
	case LikeTargetVideo, LikeTargetComment, LikeTargetTweet:
		return true
	}
	return false
}

// Like joins a user to exactly one liked target. At most one row may exist
// per (LikedBy, TargetKind, TargetID) tuple.
type Like struct {
	ID         string     `json:"id"`
	LikedBy    string     `json:"likedBy"`
	TargetKind LikeTarget `json:"targetKind"`
	TargetID   string     `json:"targetId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Subscription records that a user follows a channel. At most one row may
// exist per (SubscriberID, ChannelID) pair.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Playlist is an ordered, duplicate-free collection of videos.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Videos      []Video   `json:"videos,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Tweet is a short text post on a user's channel feed.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WatchHistoryEntry is a video the user watched, newest first.
type WatchHistoryEntry struct {
	Video
	Owner     UserSummary `json:"ownerDetails"`
	WatchedAt time.Time   `json:"watchedAt"`
}

// TokenPair groups the bearer credentials issued to authenticated users.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
