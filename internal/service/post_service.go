package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/maheshrc27/postcast/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotOwner       = errors.New("post doesn't exist")
	scheduledLayouts  = []string{time.RFC3339, "2006-01-02T15:04"}
	allowedMediaTypes = map[string]models.MediaType{
		"jpg": models.MediaTypeImage, "png": models.MediaTypeImage,
		"mp4": models.MediaTypeVideo, "mov": models.MediaTypeVideo,
	}
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, uploads []transfer.MediaUpload) ([]*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID string, userID int64) (*models.Post, error)
	History(ctx context.Context, postID string, userID int64) ([]*models.PostingHistory, error)
	Schedule(ctx context.Context, userID int64, postID, scheduledDate string) error
	Cancel(ctx context.Context, userID int64, postID string) error
	Remove(ctx context.Context, userID int64, postID string) error
}

type postService struct {
	db      *sql.DB
	pr      repository.PostRepository
	ph      repository.PostingHistoryRepository
	storage MediaStorage
	now     func() time.Time
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ph repository.PostingHistoryRepository,
	storage MediaStorage) PostService {
	return &postService{
		db:      db,
		pr:      pr,
		ph:      ph,
		storage: storage,
		now:     time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CreatePost stores one post per requested platform, all sharing the same
// content and media.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, uploads []transfer.MediaUpload) ([]*models.Post, error) {
	if pc == nil {
		return nil, invalid("post creation data is nil")
	}
	if strings.TrimSpace(pc.Content) == "" && len(uploads) == 0 {
		return nil, invalid("content or media is required")
	}

	platforms, err := parsePlatforms(pc.Platforms)
	if err != nil {
		return nil, err
	}

	status := models.PostStatusScheduled
	if pc.Draft {
		status = models.PostStatusDraft
	}

	scheduledDate := s.now()
	if pc.ScheduledDate != "" || !pc.Draft {
		scheduledDate, err = s.parseScheduledDate(pc.ScheduledDate)
		if err != nil {
			return nil, err
		}
	}

	media, err := s.processUploads(ctx, userID, uploads)
	if err != nil {
		return nil, fmt.Errorf("error processing files: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	posts := make([]*models.Post, 0, len(platforms))
	for _, platform := range platforms {
		var id string
		id, err = gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate post id: %w", err)
		}

		post := &models.Post{
			ID:            id,
			UserID:        userID,
			Platform:      platform,
			Content:       pc.Content,
			Media:         media,
			Hashtags:      pc.Hashtags,
			ScheduledDate: scheduledDate,
			Status:        status,
		}
		if err = s.pr.Create(ctx, tx, post); err != nil {
			return nil, fmt.Errorf("error creating post: %w", err)
		}
		posts = append(posts, post)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("posts created", "user_id", userID, "count", len(posts), "status", status, "scheduled_date", scheduledDate)
	return posts, nil
}

func parsePlatforms(names []string) ([]models.Platform, error) {
	seen := make(map[models.Platform]struct{}, len(names))
	var platforms []models.Platform
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, err := models.ParsePlatform(name)
		if err != nil {
			return nil, invalid("%v", err)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		platforms = append(platforms, p)
	}
	if len(platforms) == 0 {
		return nil, invalid("no platforms selected")
	}
	return platforms, nil
}

// parseScheduledDate requires a time strictly in the future.
func (s *postService) parseScheduledDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, invalid("scheduled date is required")
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range scheduledLayouts {
		t, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, invalid("invalid scheduled date format %q", value)
	}

	if !t.After(s.now()) {
		return time.Time{}, invalid("scheduled date must be in the future")
	}
	return t.UTC(), nil
}

func (s *postService) processUploads(ctx context.Context, userID int64, uploads []transfer.MediaUpload) (models.MediaList, error) {
	media := make(models.MediaList, 0, len(uploads))
	for _, upload := range uploads {
		kind, err := filetype.Match(upload.Data)
		if err != nil || kind == types.Unknown {
			return nil, invalid("unsupported file type for %s", upload.Filename)
		}
		mediaType, ok := allowedMediaTypes[kind.Extension]
		if !ok {
			return nil, invalid("file type %s is not allowed", kind.Extension)
		}

		key, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		key = fmt.Sprintf("%d/%s.%s", userID, key, kind.Extension)

		url, err := s.storage.Upload(ctx, key, upload.Data, kind.MIME.Value)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}

		media = append(media, models.MediaAttachment{
			Type:    mediaType,
			URL:     url,
			Caption: upload.Caption,
		})
	}
	return media, nil
}

func (s *postService) owned(ctx context.Context, postID string, userID int64) error {
	if userID == 0 {
		return invalid("user is not valid")
	}
	if postID == "" {
		return invalid("post id is not valid")
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		slog.Info("post not owned by user", "post_id", postID, "user_id", userID)
		return ErrNotOwner
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID string, userID int64) (*models.Post, error) {
	if err := s.owned(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil {
		return nil, repository.ErrPostNotFound
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) History(ctx context.Context, postID string, userID int64) ([]*models.PostingHistory, error) {
	if err := s.owned(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.ph.ListByPostID(ctx, postID)
}

func (s *postService) Schedule(ctx context.Context, userID int64, postID, scheduledDate string) error {
	if err := s.owned(ctx, postID, userID); err != nil {
		return err
	}
	t, err := s.parseScheduledDate(scheduledDate)
	if err != nil {
		return err
	}
	return s.pr.Schedule(ctx, postID, t)
}

func (s *postService) Cancel(ctx context.Context, userID int64, postID string) error {
	if err := s.owned(ctx, postID, userID); err != nil {
		return err
	}
	return s.pr.Cancel(ctx, postID)
}

func (s *postService) Remove(ctx context.Context, userID int64, postID string) error {
	if err := s.owned(ctx, postID, userID); err != nil {
		return err
	}
	return s.pr.Remove(ctx, postID)
}
