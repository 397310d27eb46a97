package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/publisher"
	"github.com/maheshrc27/postcast/internal/repository"
)

var (
	ErrNoActiveAccount   = errors.New("no active account for platform")
	ErrAttemptInProgress = errors.New("publish attempt already in progress")
)

// Orchestrator runs single publish attempts. Adapter and account resolution
// failures are folded into the post's retry bookkeeping. A post cancelled or
// removed during its attempt is skipped; only a failed store write is
// returned to the caller.
type Orchestrator struct {
	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
	history  repository.PostingHistoryRepository
	registry *publisher.Registry
	policy   models.RetryPolicy
	now      func() time.Time
	inflight *inflight
}

// NewOrchestrator builds an orchestrator. history may be nil; now defaults to
// time.Now.
func NewOrchestrator(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	history repository.PostingHistoryRepository,
	registry *publisher.Registry,
	policy models.RetryPolicy,
	now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		posts:    posts,
		accounts: accounts,
		history:  history,
		registry: registry,
		policy:   policy,
		now:      now,
		inflight: newInflight(),
	}
}

func (o *Orchestrator) Policy() models.RetryPolicy {
	return o.policy
}

// AttemptPublish makes one publish attempt for a post picked by the selector.
func (o *Orchestrator) AttemptPublish(ctx context.Context, due DuePost) error {
	_, err := o.attempt(ctx, due.Post.ID, due.Account, true)
	if errors.Is(err, ErrAttemptInProgress) {
		return nil
	}
	return err
}

// PublishNow attempts a scheduled post immediately, regardless of its
// scheduled date. Posts in any other state are returned unchanged.
func (o *Orchestrator) PublishNow(ctx context.Context, postID string) (*models.Post, error) {
	post, err := o.attempt(ctx, postID, nil, false)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, repository.ErrPostNotFound
	}
	return post, nil
}

func (o *Orchestrator) attempt(ctx context.Context, postID string, account *models.SocialAccount, requireDue bool) (*models.Post, error) {
	if !o.inflight.acquire(postID) {
		slog.Info("publish attempt already in progress", "post_id", postID)
		return nil, ErrAttemptInProgress
	}
	defer o.inflight.release(postID)

	// The caller's copy may be stale; decide on what is stored now.
	post, err := o.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("reload post %s: %w", postID, err)
	}
	if post == nil {
		return nil, nil
	}
	if post.Status != models.PostStatusScheduled || post.RetryCount >= o.policy.MaxRetries {
		slog.Info("post is not eligible for publishing", "post_id", postID, "status", post.Status, "retry_count", post.RetryCount)
		return post, nil
	}
	if requireDue && !post.IsDue(o.now(), o.policy.MaxRetries) {
		slog.Info("post is no longer due", "post_id", postID, "scheduled_date", post.ScheduledDate)
		return post, nil
	}

	attemptNo := post.RetryCount + 1
	account, result, publishErr := o.publish(ctx, post, account)

	now := o.now()
	if publishErr == nil {
		post.MarkPublished(now, result.ID)
	} else {
		post.MarkAttemptFailed(now, publishErr.Error(), o.policy)
	}

	if err := o.posts.SaveAttempt(ctx, post); err != nil {
		if !errors.Is(err, repository.ErrPostStateChanged) && !errors.Is(err, repository.ErrPostNotFound) {
			return nil, fmt.Errorf("persist attempt for post %s: %w", postID, err)
		}
		// Cancelled or removed while the adapter ran. The stored row wins.
		slog.Warn("post changed during publish attempt, result discarded",
			"post_id", postID,
			"platform", post.Platform,
			"attempt", attemptNo,
			"external_id", post.ExternalPostID,
			"publish_err", publishErr)
		o.recordHistory(ctx, post, account, attemptNo, publishErr)
		return o.reload(ctx, postID), nil
	}

	o.recordHistory(ctx, post, account, attemptNo, publishErr)

	if publishErr != nil {
		slog.Warn("publish attempt failed",
			"post_id", post.ID,
			"platform", post.Platform,
			"attempt", attemptNo,
			"kind", publisher.KindOf(publishErr),
			"status", post.Status,
			"next_attempt", post.ScheduledDate,
			"err", publishErr)
	} else {
		slog.Info("post published", "post_id", post.ID, "platform", post.Platform, "external_id", post.ExternalPostID, "attempt", attemptNo)
	}
	return post, nil
}

// reload returns the stored post, or nil when it is gone or unreadable.
func (o *Orchestrator) reload(ctx context.Context, postID string) *models.Post {
	post, err := o.posts.GetByID(ctx, postID)
	if err != nil {
		slog.Error("unable to reload post", "post_id", postID, "err", err)
		return nil
	}
	return post
}

// publish resolves the account when needed and calls the platform adapter.
func (o *Orchestrator) publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (acc *models.SocialAccount, result *publisher.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publisher panicked", "post_id", post.ID, "panic", r)
			result = nil
			err = fmt.Errorf("publisher panicked: %v", r)
		}
	}()

	if account == nil || account.Platform != post.Platform || !account.IsActive() || account.UserID != post.UserID {
		account, err = o.accounts.GetActiveByPlatform(ctx, post.UserID, post.Platform)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve account: %w", err)
		}
		if account == nil {
			return nil, nil, ErrNoActiveAccount
		}
	}

	p, err := o.registry.Get(post.Platform)
	if err != nil {
		return account, nil, err
	}

	result, err = p.Publish(ctx, post, account)
	if err != nil {
		return account, nil, err
	}
	if result == nil || result.ID == "" {
		return account, nil, fmt.Errorf("%s returned no post id", post.Platform)
	}
	return account, result, nil
}

func (o *Orchestrator) recordHistory(ctx context.Context, post *models.Post, account *models.SocialAccount, attemptNo int, publishErr error) {
	if o.history == nil {
		return
	}
	ph := &models.PostingHistory{
		UserID:  post.UserID,
		PostID:  post.ID,
		Attempt: attemptNo,
	}
	if account != nil {
		ph.AccountID = account.ID
	}
	if publishErr != nil {
		ph.ErrorMessage = publishErr.Error()
	} else {
		ph.ExternalPostID = post.ExternalPostID
	}
	if _, err := o.history.Create(ctx, ph); err != nil {
		slog.Error("unable to save posting history", "post_id", post.ID, "err", err)
	}
}
