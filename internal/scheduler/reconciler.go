package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/publisher"
	"github.com/maheshrc27/postcast/internal/repository"
	"golang.org/x/time/rate"
)

type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Reconciler refreshes the stored engagement of recently published posts. It
// only ever writes the engagement field set.
type Reconciler struct {
	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
	registry *publisher.Registry
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewReconciler paces external calls to one per pacing interval; a zero
// interval disables pacing.
func NewReconciler(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	registry *publisher.Registry,
	pacing time.Duration,
	now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &Reconciler{
		posts:    posts,
		accounts: accounts,
		registry: registry,
		limiter:  rate.NewLimiter(limit, 1),
		now:      now,
	}
}

// SyncEngagement re-fetches engagement for posts published in the last
// windowDays, at most batchLimit of them. A failure on one post is counted and
// the batch continues.
func (r *Reconciler) SyncEngagement(ctx context.Context, windowDays, batchLimit int) (SyncResult, error) {
	var res SyncResult

	since := r.now().AddDate(0, 0, -windowDays)
	posts, err := r.posts.ListPublishedSince(ctx, since, batchLimit)
	if err != nil {
		return res, fmt.Errorf("list published posts: %w", err)
	}

	for _, post := range posts {
		if err := r.limiter.Wait(ctx); err != nil {
			return res, err
		}

		if err := r.syncPost(ctx, post); err != nil {
			res.Failed++
			slog.Warn("engagement sync failed", "post_id", post.ID, "platform", post.Platform, "err", err)
			continue
		}
		res.Synced++
	}

	return res, nil
}

func (r *Reconciler) syncPost(ctx context.Context, post *models.Post) error {
	if post.ExternalPostID == "" {
		return fmt.Errorf("post has no external id")
	}

	account, err := r.accounts.GetActiveByPlatform(ctx, post.UserID, post.Platform)
	if err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}
	if account == nil {
		return ErrNoActiveAccount
	}

	p, err := r.registry.Get(post.Platform)
	if err != nil {
		return err
	}

	snapshot, err := p.FetchEngagement(ctx, post, account)
	if err != nil {
		return err
	}
	if snapshot == nil {
		snapshot = &models.Engagement{}
	}

	now := r.now()
	snapshot.LastUpdated = &now
	if err := r.posts.UpdateEngagement(ctx, post.ID, *snapshot); err != nil {
		return fmt.Errorf("store engagement: %w", err)
	}
	return nil
}
