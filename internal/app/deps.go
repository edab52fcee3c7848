package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/config"
	"github.com/streamtube/backend/internal/handlers"
	"github.com/streamtube/backend/internal/media"
	"github.com/streamtube/backend/internal/middleware"
	"github.com/streamtube/backend/internal/repositories"
	"github.com/streamtube/backend/internal/storage"
)

// buildDependencies wires together the concrete implementations used by the
// HTTP handlers. The returned cleaner must be shut down after the server to
// drain pending asset deletions.
func buildDependencies(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *media.Cleaner, error) {
	users := repositories.NewPostgresUserRepository(pool)

	tokens, err := auth.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, users)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure token service: %w", err)
	}

	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}

	prober := media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout)
	uploader := media.NewUploader(store, prober, cfg.UploadDir, logger)
	cleaner := media.NewCleaner(store, media.CleanerConfig{
		QueueSize: cfg.CleanerQueue,
		Workers:   cfg.CleanerWorkers,
	}, logger)

	limiter := middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateLimit, 10*time.Minute)

	deps := handlers.Dependencies{
		Users:         users,
		Tokens:        tokens,
		Verifier:      tokens,
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Media:         uploader,
		Cleanup:       cleaner,
		DB:            pool,
		AuthLimiter:   limiter,
		SecureCookies: cfg.SecureCookies,
	}

	return deps, cleaner, nil
}
