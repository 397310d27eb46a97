package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postcast/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error)
	ListDue(ctx context.Context, now time.Time, maxRetries int) ([]*models.Post, error)
	ListPublishedSince(ctx context.Context, since time.Time, limit int) ([]*models.Post, error)
	SaveAttempt(ctx context.Context, post *models.Post) error
	UpdateEngagement(ctx context.Context, postID string, e models.Engagement) error
	Schedule(ctx context.Context, postID string, scheduledDate time.Time) error
	Cancel(ctx context.Context, postID string) error
	Remove(ctx context.Context, id string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, platform, content, media, hashtags, scheduled_date, status, published_at, external_post_id, retry_count, last_error, likes, comments, shares, reach, impressions, engagement_updated_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post           models.Post
		externalPostID sql.NullString
		lastError      sql.NullString
		publishedAt    sql.NullTime
		engagementAt   sql.NullTime
	)
	err := row.Scan(&post.ID, &post.UserID, &post.Platform, &post.Content, &post.Media, pq.Array(&post.Hashtags),
		&post.ScheduledDate, &post.Status, &publishedAt, &externalPostID, &post.RetryCount, &lastError,
		&post.Engagement.Likes, &post.Engagement.Comments, &post.Engagement.Shares, &post.Engagement.Reach,
		&post.Engagement.Impressions, &engagementAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if engagementAt.Valid {
		post.Engagement.LastUpdated = &engagementAt.Time
	}
	post.ExternalPostID = externalPostID.String
	post.LastError = lastError.String
	return &post, nil
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	query := `
		INSERT INTO posts (id, user_id, platform, content, media, hashtags, scheduled_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	hashtags := post.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	args := []any{post.ID, post.UserID, post.Platform, post.Content, post.Media, pq.Array(hashtags), post.ScheduledDate, post.Status}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&post.CreatedAt, &post.UpdatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&post.CreatedAt, &post.UpdatedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_date DESC`
	return r.queryPosts(ctx, query, userID)
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ListDue returns scheduled posts whose time has come and whose retry budget
// is not exhausted.
func (r *postRepository) ListDue(ctx context.Context, now time.Time, maxRetries int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND scheduled_date <= $2 AND retry_count < $3`
	return r.queryPosts(ctx, query, models.PostStatusScheduled, now, maxRetries)
}

func (r *postRepository) ListPublishedSince(ctx context.Context, since time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND published_at >= $2 AND COALESCE(external_post_id, '') <> '' ORDER BY published_at DESC LIMIT $3`
	return r.queryPosts(ctx, query, models.PostStatusPublished, since, limit)
}

// SaveAttempt writes the scheduling field set of a post in one statement.
// The stored row must still be scheduled; a post cancelled or removed while
// its attempt ran is left alone and ErrPostStateChanged is returned.
func (r *postRepository) SaveAttempt(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET status = $2,
			scheduled_date = $3,
			published_at = $4,
			external_post_id = NULLIF($5, ''),
			retry_count = $6,
			last_error = NULLIF($7, ''),
			updated_at = $8
		WHERE id = $1 AND status = 'scheduled'
	`
	updatedAt := post.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, query, post.ID, post.Status, post.ScheduledDate, post.PublishedAt,
		post.ExternalPostID, post.RetryCount, post.LastError, updatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return ErrPostStateChanged
	}
	return nil
}

// UpdateEngagement replaces the engagement field set of a post.
func (r *postRepository) UpdateEngagement(ctx context.Context, postID string, e models.Engagement) error {
	query := `
		UPDATE posts
		SET likes = $2,
			comments = $3,
			shares = $4,
			reach = $5,
			impressions = $6,
			engagement_updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, postID, e.Likes, e.Comments, e.Shares, e.Reach, e.Impressions, e.LastUpdated)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

// Schedule moves a draft into the scheduled state.
func (r *postRepository) Schedule(ctx context.Context, postID string, scheduledDate time.Time) error {
	query := `UPDATE posts SET status = $2, scheduled_date = $3, updated_at = $4 WHERE id = $1 AND status = 'draft'`
	result, err := r.db.ExecContext(ctx, query, postID, models.PostStatusScheduled, scheduledDate, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotDraft
	}
	return nil
}

func (r *postRepository) Cancel(ctx context.Context, postID string) error {
	query := `UPDATE posts SET status = $2, updated_at = $3 WHERE id = $1 AND status IN ('draft', 'scheduled')`
	result, err := r.db.ExecContext(ctx, query, postID, models.PostStatusCancelled, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotCancellable
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1 AND status <> 'published'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPostPublished
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return ErrPostNotFound
	}
	return nil
}
