package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamtube/backend/internal/db"
	"github.com/streamtube/backend/internal/models"
)

// LikeRepository exposes data access for the polymorphic like join entity.
type LikeRepository interface {
	// Toggle flips the like state for (userID, kind, targetID) and reports
	// whether the target is liked afterwards.
	Toggle(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error)
	LikedVideos(ctx context.Context, userID string, page Page) ([]models.VideoWithStats, int64, error)
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle removes an existing like or creates one. The unique index over
// (liked_by, target_kind, target_id) guarantees at most one row regardless of
// concurrent identical requests: the insert is ON CONFLICT DO NOTHING, so a
// racing duplicate can never produce a second row.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("like toggle: unknown target kind %q", kind)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
    `, userID, kind, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, target_kind, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (liked_by, target_kind, target_id) DO NOTHING
    `, uuid.NewString(), userID, kind, targetID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	return true, nil
}

// LikedVideos lists the videos a user has liked, most recent like first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string, page Page) ([]models.VideoWithStats, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	page = page.Normalize()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM likes
        WHERE liked_by = $1 AND target_kind = 'video'
    `, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count liked videos: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`,
               o.id, o.username, o.full_name, o.avatar_url,
               (SELECT COUNT(*) FROM likes x WHERE x.target_kind = 'video' AND x.target_id = v.id),
               (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id)
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        JOIN users o ON o.id = v.owner_id
        WHERE l.liked_by = $1 AND l.target_kind = 'video'
        ORDER BY l.created_at DESC
        LIMIT $2 OFFSET $3
    `, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	var videos []models.VideoWithStats
	for rows.Next() {
		var v models.VideoWithStats
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.VideoKey,
			&v.Thumbnail, &v.ThumbnailKey, &v.Duration, &v.Views, &v.IsPublished,
			&v.Category, &v.Tags, &v.CreatedAt, &v.UpdatedAt,
			&v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar,
			&v.LikesCount, &v.CommentsCount); err != nil {
			return nil, 0, fmt.Errorf("scan liked video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate liked videos: %w", err)
	}

	return videos, total, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
