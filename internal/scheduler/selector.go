// Package scheduler drives posts from scheduled to published or failed and
// keeps the engagement of published posts up to date.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/repository"
)

// DuePost is a post eligible for a publish attempt together with its owner's
// active account for the post's platform. Account is nil when the owner has
// none; that is reported by the attempt, not filtered here.
type DuePost struct {
	Post    *models.Post
	Account *models.SocialAccount
}

type Selector struct {
	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
}

func NewSelector(posts repository.PostRepository, accounts repository.SocialAccountRepository) *Selector {
	return &Selector{posts: posts, accounts: accounts}
}

type accountKey struct {
	userID   int64
	platform models.Platform
}

// SelectDuePosts returns every post with status scheduled, scheduledDate <= now
// and retryCount < maxRetries. Order is unspecified.
func (s *Selector) SelectDuePosts(ctx context.Context, now time.Time, maxRetries int) ([]DuePost, error) {
	posts, err := s.posts.ListDue(ctx, now, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}

	resolved := make(map[accountKey]*models.SocialAccount)
	due := make([]DuePost, 0, len(posts))
	for _, post := range posts {
		if !post.IsDue(now, maxRetries) {
			continue
		}

		key := accountKey{userID: post.UserID, platform: post.Platform}
		account, ok := resolved[key]
		if !ok {
			account, err = s.accounts.GetActiveByPlatform(ctx, post.UserID, post.Platform)
			if err != nil {
				return nil, fmt.Errorf("resolve account for post %s: %w", post.ID, err)
			}
			resolved[key] = account
		}

		due = append(due, DuePost{Post: post, Account: account})
	}
	return due, nil
}
