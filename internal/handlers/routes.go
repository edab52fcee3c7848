package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/streamtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Tokens        TokenManager
	Verifier      middleware.AccessVerifier
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Tweets        TweetStore
	Media         MediaUploader
	Cleanup       AssetCleaner
	DB            Pinger
	AuthLimiter   middleware.RateLimiter

	SecureCookies bool
}

// RegisterRoutes wires HTTP handlers into the provided chi router.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	users := UserHandler{
		Users:         deps.Users,
		Tokens:        deps.Tokens,
		Media:         deps.Media,
		Cleanup:       deps.Cleanup,
		SecureCookies: deps.SecureCookies,
	}
	videos := VideoHandler{Videos: deps.Videos, Users: deps.Users, Media: deps.Media, Cleanup: deps.Cleanup}
	comments := CommentHandler{Comments: deps.Comments}
	likes := LikeHandler{Likes: deps.Likes}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	tweets := TweetHandler{Tweets: deps.Tweets}
	dashboard := DashboardHandler{Videos: deps.Videos}

	authenticated := middleware.Authenticate(deps.Verifier, deps.Users)

	r.Get("/healthz", health.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.AuthLimiter != nil {
					r.Use(middleware.Limit(deps.AuthLimiter))
				}
				r.Post("/register", users.Register)
				r.Post("/login", users.Login)
				r.Post("/refresh-token", users.RefreshToken)
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/c/{username}", users.ChannelProfile)
				r.Get("/history", users.WatchHistory)
				r.Post("/history/{videoId}", users.RecordWatch)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/", videos.List)
			r.Post("/", videos.Publish)
			r.Get("/{videoId}", videos.Get)
			r.Patch("/{videoId}", videos.Update)
			r.Delete("/{videoId}", videos.Delete)
			r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/{videoId}", comments.List)
			r.Post("/{videoId}", comments.Create)
			r.Patch("/c/{commentId}", comments.Update)
			r.Delete("/c/{commentId}", comments.Delete)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/toggle/v/{videoId}", likes.ToggleVideo)
			r.Post("/toggle/c/{commentId}", likes.ToggleComment)
			r.Post("/toggle/t/{tweetId}", likes.ToggleTweet)
			r.Get("/videos", likes.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/c/{channelId}", subscriptions.Toggle)
			r.Get("/c/{channelId}", subscriptions.Subscribers)
			r.Get("/u/{subscriberId}", subscriptions.SubscribedChannels)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", playlists.Create)
			r.Get("/{playlistId}", playlists.Get)
			r.Get("/user/{userId}", playlists.ListByUser)
			r.Patch("/{playlistId}", playlists.Update)
			r.Delete("/{playlistId}", playlists.Delete)
			r.Patch("/add/{videoId}/{playlistId}", playlists.AddVideo)
			r.Patch("/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
		})

		r.Route("/tweets", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", tweets.Create)
			r.Get("/user/{userId}", tweets.ListByUser)
			r.Patch("/{tweetId}", tweets.Update)
			r.Delete("/{tweetId}", tweets.Delete)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/stats", dashboard.Stats)
			r.Get("/videos", dashboard.ChannelVideos)
			r.Get("/videos/{videoId}", dashboard.VideoAnalytics)
		})
	})
}
