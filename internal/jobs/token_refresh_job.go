package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/repository"
)

type TokenRefresher interface {
	RefreshAccountToken(ctx context.Context, account *models.SocialAccount) error
}

// TokenRefreshJob renews account tokens that expire within the lead time so
// publish attempts do not fail on an expired credential.
type TokenRefreshJob struct {
	sr        repository.SocialAccountRepository
	refresher TokenRefresher
	lead      time.Duration
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, refresher TokenRefresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:        sr,
		refresher: refresher,
		lead:      30 * time.Minute,
	}
}

func (c *TokenRefreshJob) Run() {
	c.RefreshTokens(context.Background())
}

func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) {
	currentTime := time.Now()

	accounts, err := c.sr.ListExpiring(ctx, currentTime, currentTime.Add(c.lead))
	if err != nil {
		slog.Error("unable to list expiring accounts", "err", err)
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refresher.RefreshAccountToken(ctx, acc); err != nil {
				slog.Info("unable to refresh token", "account_id", acc.ID, "platform", acc.Platform, "err", err)
			}
		}(acc)
	}

	wg.Wait()
}
