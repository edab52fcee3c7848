package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamtube/backend/internal/db"
	"github.com/streamtube/backend/internal/models"
)

// VideoFilter narrows listing queries. Zero-valued fields add no clause.
type VideoFilter struct {
	OwnerID     string
	IsPublished *bool
	Category    string
	Search      string
	SortBy      string
	SortOrder   string
}

// videoSortColumns whitelists caller-supplied sort fields. Unknown fields
// fall back to created_at, so an invalid sort never errors.
var videoSortColumns = map[string]string{
	"createdAt": "created_at",
	"views":     "views",
	"duration":  "duration",
	"title":     "title",
}

func (f VideoFilter) orderClause() string {
	column, ok := videoSortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") || f.SortOrder == "1" {
		direction = "ASC"
	}
	return fmt.Sprintf("ORDER BY v.%s %s", column, direction)
}

// whereClause renders the filter conditions, appending bind values to args.
func (f VideoFilter) whereClause(args *[]any) string {
	var conds []string

	add := func(cond string, value any) {
		*args = append(*args, value)
		conds = append(conds, fmt.Sprintf(cond, len(*args)))
	}

	if f.OwnerID != "" {
		add("v.owner_id = $%d", f.OwnerID)
	}
	if f.IsPublished != nil {
		add("v.is_published = $%d", *f.IsPublished)
	}
	if f.Category != "" {
		add("v.category = $%d", f.Category)
	}
	if f.Search != "" {
		*args = append(*args, "%"+f.Search+"%")
		n := len(*args)
		conds = append(conds, fmt.Sprintf(`(v.title ILIKE $%d OR v.description ILIKE $%d
                OR EXISTS (SELECT 1 FROM unnest(v.tags) tag WHERE tag ILIKE $%d))`, n, n, n))
	}

	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ")
}

// VideoRepository exposes data access for videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, filter VideoFilter, page Page) ([]models.VideoWithStats, int64, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
	Analytics(ctx context.Context, id string) (models.VideoAnalytics, error)
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoColumns = `v.id, v.owner_id, v.title, v.description, v.video_url, v.video_key,
        v.thumbnail_url, v.thumbnail_key, v.duration, v.views, v.is_published,
        v.category, v.tags, v.created_at, v.updated_at`

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.VideoKey,
		&v.Thumbnail, &v.ThumbnailKey, &v.Duration, &v.Views, &v.IsPublished,
		&v.Category, &v.Tags, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, video_key,
                thumbnail_url, thumbnail_key, duration, views, is_published,
                category, tags, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.VideoKey,
		video.Thumbnail, video.ThumbnailKey, video.Duration, video.Views, video.IsPublished,
		video.Category, video.Tags, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// List returns a filtered, sorted page of videos with the owner projection
// and like/comment counts computed per row, plus the total match count.
func (r *PostgresVideoRepository) List(ctx context.Context, filter VideoFilter, page Page) ([]models.VideoWithStats, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	page = page.Normalize()

	var args []any
	where := filter.whereClause(&args)

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
        SELECT `+videoColumns+`,
               o.id, o.username, o.full_name, o.avatar_url,
               (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'video' AND l.target_id = v.id),
               (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id)
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        %s
        %s
        LIMIT $%d OFFSET $%d
    `, where, filter.orderClause(), len(args)-1, len(args))

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
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
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, total, nil
}

// Update modifies the mutable metadata of a video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, thumbnail_key = $5,
            category = $6, tags = $7, updated_at = NOW()
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail, video.ThumbnailKey,
		video.Category, video.Tags)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a video row. Comments, likes, playlist entries, and watch
// history rows cascade at the schema level.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// TogglePublish atomically flips the publish flag and returns the updated row.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos v SET is_published = NOT is_published, updated_at = NOW()
        WHERE id = $1
        RETURNING `+videoColumns+`
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}

	return video, nil
}

// IncrementViews bumps the denormalized view counter.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Analytics computes the per-video dashboard numbers. The engagement-rate
// divisor is floored at one view so a zero-view video yields a finite rate.
func (r *PostgresVideoRepository) Analytics(ctx context.Context, id string) (models.VideoAnalytics, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoAnalytics{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT v.id, v.title, v.views, v.duration, v.created_at,
               (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'video' AND l.target_id = v.id),
               (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id)
        FROM videos v
        WHERE v.id = $1
    `, id)

	var a models.VideoAnalytics
	if err := row.Scan(&a.ID, &a.Title, &a.Views, &a.Duration, &a.CreatedAt,
		&a.LikesCount, &a.CommentsCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoAnalytics{}, ErrNotFound
		}
		return models.VideoAnalytics{}, fmt.Errorf("select video analytics: %w", err)
	}

	a.EngagementRate = EngagementRate(a.LikesCount, a.CommentsCount, a.Views)
	return a, nil
}

// EngagementRate is (likes + comments) / max(views, 1) * 100.
func EngagementRate(likes, comments, views int64) float64 {
	divisor := views
	if divisor < 1 {
		divisor = 1
	}
	return float64(likes+comments) / float64(divisor) * 100
}

// ChannelStats aggregates totals across a channel's videos.
func (r *PostgresVideoRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1 AND is_published),
            COALESCE((SELECT SUM(views) FROM videos WHERE owner_id = $1), 0),
            COALESCE(ROUND((SELECT AVG(duration) FROM videos WHERE owner_id = $1)::numeric, 2), 0),
            (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
            (SELECT COUNT(*)
             FROM likes l
             JOIN videos v ON l.target_kind = 'video' AND l.target_id = v.id
             WHERE v.owner_id = $1)
    `, ownerID)

	var stats models.ChannelStats
	if err := row.Scan(&stats.TotalVideos, &stats.PublishedVideos, &stats.TotalViews,
		&stats.AvgDuration, &stats.Subscribers, &stats.TotalLikes); err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	return stats, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
