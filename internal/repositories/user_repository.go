package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/db"
	"github.com/streamtube/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindProfileByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, url, key string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url, key string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string, page Page) ([]models.WatchHistoryEntry, int64, error)
	RecordWatch(ctx context.Context, userID, videoID string) error

	auth.CredentialStore
}

const userColumns = `id, username, email, full_name, avatar_url, avatar_key,
        cover_url, cover_key, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. Username and email uniqueness is
// enforced by the store.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar_url, avatar_key,
                cover_url, cover_key, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.AvatarKey,
		user.CoverImage, user.CoverKey, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a full user record, including credentials.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindProfileByID fetches a user with the password hash and refresh token
// blanked; this is the projection attached to authenticated requests.
func (r *PostgresUserRepository) FindProfileByID(ctx context.Context, id string) (models.User, error) {
	user, err := r.findOne(ctx, `WHERE id = $1`, id)
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	user.RefreshToken = ""
	return user, nil
}

// FindByUsernameOrEmail fetches a user matching either credential field.
func (r *PostgresUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	return r.findOne(ctx, `WHERE username = $1 OR email = $2`, username, email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, args...)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.Avatar, &user.AvatarKey, &user.CoverImage, &user.CoverKey,
		&user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// UpdateAccount changes the full name and email of a user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET full_name = $2, email = $3, updated_at = NOW()
        WHERE id = $1
    `, id, fullName, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update user account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, ErrNotFound
	}

	return r.FindProfileByID(ctx, id)
}

// UpdateAvatar swaps the avatar asset reference for a user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url, key string) (models.User, error) {
	return r.updateAsset(ctx, `avatar_url`, `avatar_key`, id, url, key)
}

// UpdateCoverImage swaps the cover image asset reference for a user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url, key string) (models.User, error) {
	return r.updateAsset(ctx, `cover_url`, `cover_key`, id, url, key)
}

func (r *PostgresUserRepository) updateAsset(ctx context.Context, urlCol, keyCol, id, url, key string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET `+urlCol+` = $2, `+keyCol+` = $3, updated_at = NOW()
        WHERE id = $1
    `, id, url, key)
	if err != nil {
		return models.User{}, fmt.Errorf("update user asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, ErrNotFound
	}

	return r.FindProfileByID(ctx, id)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = NOW()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveRefreshToken stores the active refresh token for a user, overwriting
// any prior value.
func (r *PostgresUserRepository) SaveRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = $2 WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapRefreshToken replaces the stored refresh token only if it still equals
// current. The conditional UPDATE makes rotation single-use: once swapped,
// the prior token can never rotate again.
func (r *PostgresUserRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, userID, current, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenMismatch
	}

	return nil
}

// ClearRefreshToken removes the active refresh token for a user.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = NULL WHERE id = $1
    `, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

// ChannelProfile resolves the public channel page for a username, including
// subscriber counts and whether the viewer is subscribed.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url, u.cover_url,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (
                   SELECT 1 FROM subscriptions s
                   WHERE s.channel_id = u.id AND s.subscriber_id = $2
               )
        FROM users u
        WHERE u.username = $1
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Avatar,
		&profile.CoverImage, &profile.SubscribersCount, &profile.SubscribedToCount,
		&profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// WatchHistory lists the videos a user watched, most recent first, with the
// owner projection joined onto each entry.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string, page Page) ([]models.WatchHistoryEntry, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	page = page.Normalize()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM watch_history WHERE user_id = $1
    `, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count watch history: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
               v.duration, v.views, v.is_published, v.category, v.tags, v.created_at, v.updated_at,
               o.id, o.username, o.full_name, o.avatar_url,
               h.watched_at
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.watched_at DESC
        LIMIT $2 OFFSET $3
    `, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchHistoryEntry
	for rows.Next() {
		var e models.WatchHistoryEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.VideoURL,
			&e.Thumbnail, &e.Duration, &e.Views, &e.IsPublished, &e.Category, &e.Tags,
			&e.CreatedAt, &e.UpdatedAt,
			&e.Owner.ID, &e.Owner.Username, &e.Owner.FullName, &e.Owner.Avatar,
			&e.WatchedAt); err != nil {
			return nil, 0, fmt.Errorf("scan watch history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, total, nil
}

// RecordWatch appends a video to the user's watch history, bumping it to the
// front when it is already there.
func (r *PostgresUserRepository) RecordWatch(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("record watch: %w", err)
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
